package sessions

import "context"

// ChangeHandler receives session change notifications. session is nil on sign-out.
type ChangeHandler func(event Event, session *Session)

// Subscription is returned by AuthProvider.OnSessionChange.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() {
	f()
}

// AuthProvider is the external auth collaborator. Implementations own token
// storage and networking; the store only observes sessions through it.
type AuthProvider interface {
	// GetCurrentSession returns nil, nil when nobody is signed in.
	GetCurrentSession(ctx context.Context) (*Session, error)
	OnSessionChange(handler ChangeHandler) Subscription
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string, metadata map[string]any) error
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
}
