package users

type UserRepo interface {
	Upsert(user *User) error
	Delete(email string) error
	GetByEmail(email string) (*User, error)
	GetByID(ID string) (*User, error)
	SetConfirmed(email string, confirmed bool) error
	SetPasswordHash(email, hash string) error
}
