package users

import (
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"github.com/jrsteele09/bogo-finds/internal/utils"
)

var _ UserRepo = (*InMemoryUserRepo)(nil)

// InMemoryUserRepo keeps users in process memory. Lookups by email are
// case-insensitive. Returned users are copies.
type InMemoryUserRepo struct {
	users    map[string]*User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewInMemoryUserRepo() *InMemoryUserRepo {
	return &InMemoryUserRepo{
		users:    make(map[string]*User),
		emailIds: make(map[string]string),
	}
}

func (ur *InMemoryUserRepo) Upsert(user *User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = NormaliseEmail(user.Email)
	if previous, ok := ur.users[user.ID]; ok && previous.Email != user.Email {
		delete(ur.emailIds, previous.Email)
	}
	ur.users[user.ID] = copyUser(user)
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *InMemoryUserRepo) Delete(email string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email = NormaliseEmail(email)
	userID, ok := ur.emailIds[email]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	delete(ur.emailIds, email)
	delete(ur.users, userID)
	return nil
}

func (ur *InMemoryUserRepo) GetByEmail(email string) (*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[NormaliseEmail(email)]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return copyUser(ur.users[id]), nil
}

func (ur *InMemoryUserRepo) GetByID(id string) (*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return copyUser(user), nil
}

func (ur *InMemoryUserRepo) SetConfirmed(email string, confirmed bool) error {
	return ur.update(email, func(u *User) { u.Confirmed = confirmed })
}

func (ur *InMemoryUserRepo) SetPasswordHash(email, hash string) error {
	return ur.update(email, func(u *User) { u.PasswordHash = hash })
}

func (ur *InMemoryUserRepo) update(email string, fn func(*User)) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	id, ok := ur.emailIds[NormaliseEmail(email)]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	fn(ur.users[id])
	return nil
}

func copyUser(u *User) *User {
	c := *u
	c.Metadata = utils.CloneMetadata(u.Metadata)
	return &c
}
