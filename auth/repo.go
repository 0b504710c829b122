package auth

import "time"

// StoredSession is the server side record of an issued session, keyed by its refresh token.
type StoredSession struct {
	RefreshToken     string
	UserID           string
	AccessToken      string
	AccessExpiry     time.Time
	IssuedAt         time.Time
	RefreshExpiresAt time.Time
}

type CodeKind string

const (
	CodeKindConfirmation CodeKind = "confirmation"
	CodeKindRecovery     CodeKind = "recovery"
)

// PendingCode is a single-use code mailed to a user for email confirmation or password recovery.
type PendingCode struct {
	Code      string
	Kind      CodeKind
	Email     string
	ExpiresAt time.Time
}

type SessionRepo interface {
	Upsert(session *StoredSession) error
	Get(refreshToken string) (*StoredSession, error)
	Delete(refreshToken string) error
	DeleteByUserID(userID string) error
	AssignCode(code *PendingCode) error
	// ConsumeCode returns and removes the code if it exists with the given kind.
	ConsumeCode(code string, kind CodeKind) (*PendingCode, error)
}
