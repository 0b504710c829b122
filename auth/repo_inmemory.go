package auth

import (
	"sync"

	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"github.com/pkg/errors"
)

var _ SessionRepo = (*InMemorySessionRepo)(nil)

type InMemorySessionRepo struct {
	sessions map[string]*StoredSession
	codes    map[string]*PendingCode
	lock     sync.RWMutex
}

func NewInMemorySessionRepo() *InMemorySessionRepo {
	return &InMemorySessionRepo{
		sessions: make(map[string]*StoredSession),
		codes:    make(map[string]*PendingCode),
	}
}

func (sr *InMemorySessionRepo) Upsert(session *StoredSession) error {
	if session == nil || session.RefreshToken == "" {
		return errors.New("[InMemorySessionRepo.Upsert] refresh token is required")
	}
	sr.lock.Lock()
	defer sr.lock.Unlock()
	stored := *session
	sr.sessions[session.RefreshToken] = &stored
	return nil
}

func (sr *InMemorySessionRepo) Get(refreshToken string) (*StoredSession, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[refreshToken]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	stored := *session
	return &stored, nil
}

func (sr *InMemorySessionRepo) Delete(refreshToken string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if _, ok := sr.sessions[refreshToken]; !ok {
		return apperrors.ErrSessionNotFound
	}
	delete(sr.sessions, refreshToken)
	return nil
}

func (sr *InMemorySessionRepo) DeleteByUserID(userID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	for refreshToken, session := range sr.sessions {
		if session.UserID == userID {
			delete(sr.sessions, refreshToken)
		}
	}
	return nil
}

func (sr *InMemorySessionRepo) AssignCode(code *PendingCode) error {
	if code == nil || code.Code == "" {
		return errors.New("[InMemorySessionRepo.AssignCode] code is required")
	}
	sr.lock.Lock()
	defer sr.lock.Unlock()
	stored := *code
	sr.codes[code.Code] = &stored
	return nil
}

func (sr *InMemorySessionRepo) ConsumeCode(code string, kind CodeKind) (*PendingCode, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	pending, ok := sr.codes[code]
	if !ok || pending.Kind != kind {
		return nil, errors.Wrapf(apperrors.ErrInvalidToken, "[InMemorySessionRepo.ConsumeCode] no %s code", kind)
	}
	delete(sr.codes, code)
	return pending, nil
}

// Len reports the number of live sessions.
func (sr *InMemorySessionRepo) Len() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
