package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/dmitrijs2005/intrusionbot/internal/common"
	"github.com/dmitrijs2005/intrusionbot/internal/dbx"
	"github.com/dmitrijs2005/intrusionbot/internal/history"
	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ChangeChannel is the LISTEN channel the user_records trigger notifies on.
// The payload is the changed user id.
const ChangeChannel = "user_record_changed"

// listenConn is the part of *pgx.Conn the listener uses.
type listenConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

var (
	openDB = sql.Open

	connectListener = func(ctx context.Context, dsn string) (listenConn, error) {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
)

// PostgresStore keeps records in PostgreSQL. Changes reach subscribers
// through LISTEN/NOTIFY: Listen holds a dedicated connection and re-reads
// the changed row for every notification.
type PostgresStore struct {
	db            *sql.DB
	dsn           string
	logger        logging.Logger
	attachTimeout time.Duration
	reconnect     time.Duration

	subs feedSet

	ready     chan struct{}
	readyOnce sync.Once
}

// PostgresOptions tunes NewPostgresStore.
type PostgresOptions struct {
	// AttachTimeout bounds how long Subscribe waits for the listener.
	AttachTimeout time.Duration
	// ReconnectDelay is the first back-off step after a lost listener connection.
	ReconnectDelay time.Duration
	// SkipMigrations leaves the schema alone.
	SkipMigrations bool
}

// NewPostgresStore opens the database and applies migrations. Call Listen
// to start delivering changes.
func NewPostgresStore(ctx context.Context, dsn string, l logging.Logger, opts PostgresOptions) (*PostgresStore, error) {
	db, err := openDB("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if !opts.SkipMigrations {
		if err := RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
	}

	return newPostgresStore(db, dsn, l, opts), nil
}

func newPostgresStore(db *sql.DB, dsn string, l logging.Logger, opts PostgresOptions) *PostgresStore {
	if opts.AttachTimeout <= 0 {
		opts.AttachTimeout = 5 * time.Second
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	return &PostgresStore{
		db:            db,
		dsn:           dsn,
		logger:        l.With("module", "records"),
		attachTimeout: opts.AttachTimeout,
		reconnect:     opts.ReconnectDelay,
		ready:         make(chan struct{}),
	}
}

// Ready is closed once the listener has attached for the first time.
func (s *PostgresStore) Ready() <-chan struct{} {
	return s.ready
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Listen attaches to ChangeChannel and dispatches notifications until ctx
// is done. Lost connections are re-established with exponential back-off;
// after every reconnect all subscribers get a fresh snapshot since changes
// may have been missed.
func (s *PostgresStore) Listen(ctx context.Context) error {
	err := retry.Do(
		func() error { return s.listenOnce(ctx) },
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(s.reconnect),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn(ctx, "listener connection lost", "attempt", n+1, "error", err)
		}),
	)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *PostgresStore) listenOnce(ctx context.Context) error {
	conn, err := connectListener(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("listener connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// subscribers present before this attach may have missed changes
	stale := s.subs.users()
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info(ctx, "listener attached", "channel", ChangeChannel)

	for _, userID := range stale {
		s.dispatch(ctx, userID)
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		s.dispatch(ctx, n.Payload)
	}
}

func (s *PostgresStore) dispatch(ctx context.Context, userID string) {
	feeds := s.subs.of(userID)
	if len(feeds) == 0 {
		return
	}

	rec, err := s.Get(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.logger.Error(ctx, "snapshot read failed", "user", userID, "error", err)
		return
	}

	for _, f := range feeds {
		f.push(rec)
	}
}

func (s *PostgresStore) Subscribe(ctx context.Context, userID string, fn SnapshotFunc) (Subscription, error) {
	timer := time.NewTimer(s.attachTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
	case <-timer.C:
		return nil, fmt.Errorf("%w: listener not attached after %s", common.ErrSubscriptionUnavailable, s.attachTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", common.ErrSubscriptionUnavailable, ctx.Err())
	}

	// register before the initial read so no change can fall in between;
	// at worst the initial snapshot repeats one the listener already pushed
	f := newFeed(userID, fn, s.subs.remove)
	s.subs.add(f)

	rec, err := s.Get(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.subs.remove(f)
		return nil, fmt.Errorf("%w: %w", common.ErrSubscriptionUnavailable, err)
	}
	f.push(rec)

	go f.run(ctx)
	return f, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*UserRecord, error) {
	return NewPostgresRepository(s.db).Get(ctx, userID)
}

func (s *PostgresStore) SetNotify(ctx context.Context, userID string, notify bool) error {
	return NewPostgresRepository(s.db).SetNotify(ctx, userID, notify)
}

func (s *PostgresStore) AppendImage(ctx context.Context, userID, ref, timestamp string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewPostgresRepository(tx)

		images, err := repo.GetImagesForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		return repo.UpsertImage(ctx, userID, history.Append(images, ref), ref, timestamp)
	})
}
