package records

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/intrusionbot/internal/common"
	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopLogger() logging.Logger { return logging.Nop{} }

// fakeListenConn feeds notifications from a channel.
type fakeListenConn struct {
	mu      sync.Mutex
	execs   []string
	notes   chan *pgconn.Notification
	waitErr error
	closed  bool
}

func newFakeListenConn() *fakeListenConn {
	return &fakeListenConn{notes: make(chan *pgconn.Notification, 8)}
}

func (c *fakeListenConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, sql)
	return pgconn.NewCommandTag("LISTEN"), nil
}

func (c *fakeListenConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case n, ok := <-c.notes:
		if !ok {
			return nil, c.waitErr
		}
		return n, nil
	}
}

func (c *fakeListenConn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func swapConnect(t *testing.T, fn func(ctx context.Context, dsn string) (listenConn, error)) {
	t.Helper()
	orig := connectListener
	connectListener = fn
	t.Cleanup(func() { connectListener = orig })
}

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	s := newPostgresStore(db, "postgres://test", nopLogger(), PostgresOptions{
		AttachTimeout:  200 * time.Millisecond,
		ReconnectDelay: 10 * time.Millisecond,
	})
	return s, mock, db
}

func TestPostgresStore_SubscribeFailsWhenListenerNotAttached(t *testing.T) {
	s, _, db := newStoreWithMock(t)
	defer db.Close()

	_, err := s.Subscribe(context.Background(), "u1", func(context.Context, *UserRecord) {})
	require.ErrorIs(t, err, common.ErrSubscriptionUnavailable)
}

func TestPostgresStore_ListenDispatchesSnapshots(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	conn := newFakeListenConn()
	swapConnect(t, func(ctx context.Context, dsn string) (listenConn, error) {
		assert.Equal(t, "postgres://test", dsn)
		return conn, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx) }()

	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("listener never attached")
	}

	mock.ExpectQuery(getQuery).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow("u1", false, "", "", ""))
	mock.ExpectQuery(getQuery).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow("u1", true, "http://x/1", "t1", "[http://x/1]"))

	var c collector
	sub, err := s.Subscribe(ctx, "u1", c.fn)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	c.waitFor(t, 1)
	conn.notes <- &pgconn.Notification{Channel: ChangeChannel, Payload: "u1"}
	// nobody listens to u2: no query is issued for it
	conn.notes <- &pgconn.Notification{Channel: ChangeChannel, Payload: "u2"}

	got := c.waitFor(t, 2)
	assert.False(t, got[0].Notify)
	assert.True(t, got[1].Notify)
	assert.Equal(t, "http://x/1", got[1].RecentImageURL)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Listen did not stop")
	}

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []string{"LISTEN " + ChangeChannel}, conn.execs)
}

func TestPostgresStore_ListenReconnectsAndRefreshes(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	first := newFakeListenConn()
	first.waitErr = errors.New("conn reset")
	second := newFakeListenConn()

	var mu sync.Mutex
	calls := 0
	swapConnect(t, func(ctx context.Context, dsn string) (listenConn, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		switch calls {
		case 1:
			return first, nil
		case 2:
			return nil, errors.New("refused")
		default:
			return second, nil
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Listen(ctx) }()
	<-s.Ready()

	mock.ExpectQuery(getQuery).WithArgs("u1").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(getQuery).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow("u1", true, "http://x/9", "t9", "[http://x/9]"))

	var c collector
	_, err := s.Subscribe(ctx, "u1", c.fn)
	require.NoError(t, err)
	got := c.waitFor(t, 1)
	assert.Nil(t, got[0], "missing record is an absent snapshot")

	close(first.notes)

	got = c.waitFor(t, 2)
	assert.True(t, got[1].Notify, "refresh after reconnect")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SubscribeReportsReadFailure(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()
	close(s.ready)

	mock.ExpectQuery(getQuery).WithArgs("u1").WillReturnError(errors.New("db down"))

	_, err := s.Subscribe(context.Background(), "u1", func(context.Context, *UserRecord) {})
	require.ErrorIs(t, err, common.ErrSubscriptionUnavailable)
	assert.Empty(t, s.subs.of("u1"))
}

func TestRunMigrations_UsesEmbeddedDir(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "migrations" {
			return errors.New("unexpected dir")
		}
		return nil
	}
	require.NoError(t, RunMigrations(context.Background(), db))

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	require.EqualError(t, RunMigrations(context.Background(), db), "boom")
}

func TestMigrationsAreEmbedded(t *testing.T) {
	b, err := migrationsFS.ReadFile("migrations/00001_user_records.sql")
	require.NoError(t, err)
	assert.Contains(t, string(b), "pg_notify('"+ChangeChannel+"'")
}
