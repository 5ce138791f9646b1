// Package records is the real-time user record store. A record lives at
// users/{UUID}/ and carries the motion notification flag, the newest image
// and the image history. Subscribers receive a snapshot on attach and one
// snapshot per change, in order.
package records

import "context"

// UserRecord is a point-in-time snapshot of users/{UUID}/.
type UserRecord struct {
	UserID             string `json:"user_id"`
	Notify             bool   `json:"notify"`
	RecentImageURL     string `json:"recentImg"`
	LastImageTimestamp string `json:"lastImgUpload"`
	ImageHistory       string `json:"images"`
}

func (r *UserRecord) clone() *UserRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// SnapshotFunc receives snapshots of one record. rec is nil when the record
// does not exist.
type SnapshotFunc func(ctx context.Context, rec *UserRecord)

// Subscription is a live listener on one record.
type Subscription interface {
	// Unsubscribe detaches the listener. It is safe to call more than once.
	Unsubscribe()
}

// Store is implemented by MemoryStore and PostgresStore.
type Store interface {
	// Subscribe attaches fn to the record of userID. Failure to attach is
	// reported as common.ErrSubscriptionUnavailable.
	Subscribe(ctx context.Context, userID string, fn SnapshotFunc) (Subscription, error)

	// Get returns the current record or common.ErrorNotFound.
	Get(ctx context.Context, userID string) (*UserRecord, error)

	// SetNotify updates only the notify field.
	SetNotify(ctx context.Context, userID string, notify bool) error

	// AppendImage records a new motion image: the reference is appended to
	// the history and becomes the recent image, and notify is raised.
	AppendImage(ctx context.Context, userID, ref, timestamp string) error
}
