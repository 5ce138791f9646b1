package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/intrusionbot/internal/common"
	"github.com/dmitrijs2005/intrusionbot/internal/dbx"
)

// PostgresRepository runs the user_records queries on a DB or a Tx.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*UserRecord, error) {
	query :=
		`SELECT user_id, notify, recent_img, last_img_upload, images FROM user_records
		 WHERE user_id = $1
		 `

	rec := &UserRecord{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&rec.UserID, &rec.Notify, &rec.RecentImageURL, &rec.LastImageTimestamp, &rec.ImageHistory)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

// GetImagesForUpdate reads the history field and locks the row for the
// surrounding transaction. A missing row yields an empty history.
func (r *PostgresRepository) GetImagesForUpdate(ctx context.Context, userID string) (string, error) {
	query :=
		`SELECT images FROM user_records
		 WHERE user_id = $1
		 FOR UPDATE
		 `

	var images string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&images)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return images, nil
}

func (r *PostgresRepository) SetNotify(ctx context.Context, userID string, notify bool) error {
	query :=
		`UPDATE user_records SET notify = $2, updated_at = now()
		 WHERE user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID, notify)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) UpsertImage(ctx context.Context, userID, images, ref, timestamp string) error {
	query :=
		`INSERT INTO user_records (user_id, notify, recent_img, last_img_upload, images)
		 VALUES ($1, TRUE, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET notify = TRUE, recent_img = EXCLUDED.recent_img,
		     last_img_upload = EXCLUDED.last_img_upload, images = EXCLUDED.images,
		     updated_at = now()
		 `

	_, err := r.db.ExecContext(ctx, query, userID, ref, timestamp, images)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
