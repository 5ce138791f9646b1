package common

const (
	// UserRecordPrefix is the path prefix of per-user records: users/{UUID}/.
	UserRecordPrefix = "users/"

	// DefaultImageCount is used when a QueryImages request carries no usable count.
	DefaultImageCount = 5

	// MaxImageCount bounds QueryImages requests.
	MaxImageCount = 10
)

// UserRecordPath returns the record path for a user id.
func UserRecordPath(userID string) string {
	return UserRecordPrefix + userID + "/"
}
