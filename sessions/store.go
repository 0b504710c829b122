package sessions

import (
	"context"
	"fmt"
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Store keeps {user, session, profile, loading} consistent with an AuthProvider.
//
// Lifecycle: NewStore, then Subscribe and Initialize (either order), then
// Teardown. After Teardown every late notification or initial fetch result is
// dropped without touching state.
type Store struct {
	provider AuthProvider
	observer func(Event)

	mu           sync.RWMutex
	state        State
	listener     func(State)
	subscribed   bool
	subscription Subscription
	initialized  bool
	disposed     bool
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithEventObserver is called with every applied event (e.g. for metrics).
func WithEventObserver(observer func(Event)) StoreOption {
	return func(s *Store) {
		s.observer = observer
	}
}

// NewStore creates a store in the loading state.
func NewStore(provider AuthProvider, options ...StoreOption) (*Store, error) {
	if provider == nil {
		return nil, errors.New("[NewStore] auth provider is required")
	}
	s := &Store{
		provider: provider,
		state:    State{Loading: true},
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Initialize fetches the current session once. Loading becomes false whatever
// the outcome; a provider error or panic counts as signed out. Calls after the
// first, or after Teardown, do nothing. There is no cancellation: if Teardown
// happens while the fetch is in flight its result is discarded.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.disposed || s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.mu.Unlock()

	session, err := s.fetchSession(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("[Store.Initialize] auth provider unavailable, continuing signed out")
		session = nil
	}
	s.apply(EventInitialSession, session)
}

func (s *Store) fetchSession(ctx context.Context) (session *Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			session, err = nil, errors.Wrap(apperrors.ErrProviderUnavailable, fmt.Sprintf("panic: %v", r))
		}
	}()
	return s.provider.GetCurrentSession(ctx)
}

// Subscribe registers with the provider for session changes. Each notification
// replaces the whole {user, session, profile} triple; handler (may be nil) is
// then called with the new state outside the store lock.
func (s *Store) Subscribe(handler func(State)) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return apperrors.ErrStoreDisposed
	}
	if s.subscribed {
		s.mu.Unlock()
		return apperrors.ErrAlreadySubscribed
	}
	s.subscribed = true
	s.listener = handler
	s.mu.Unlock()

	subscription := s.provider.OnSessionChange(s.handleChange)

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return apperrors.ErrStoreDisposed
	}
	s.subscription = subscription
	s.mu.Unlock()
	return nil
}

func (s *Store) handleChange(event Event, session *Session) {
	s.apply(event, session)
}

func (s *Store) apply(event Event, session *Session) {
	session = session.Clone()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		log.Debug().Str("event", string(event)).Msg("[Store] notification after teardown ignored")
		return
	}
	s.state = State{Session: session, Profile: DeriveProfile(session)}
	if session != nil {
		user := session.User
		s.state.User = &user
	}
	state := s.state
	listener := s.listener
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(event)
	}
	if listener != nil {
		listener(state)
	}
}

// Teardown releases the provider subscription. Safe to call more than once.
func (s *Store) Teardown() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	subscription := s.subscription
	s.subscription = nil
	s.listener = nil
	s.mu.Unlock()

	if subscription != nil {
		subscription.Unsubscribe()
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Disposed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disposed
}

func (s *Store) checkAlive() error {
	if s.Disposed() {
		return apperrors.ErrStoreDisposed
	}
	return nil
}

// SignIn asks the provider to authenticate. State changes arrive through the
// subscription, not from this call.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	if err := s.checkAlive(); err != nil {
		return err
	}
	if err := s.provider.SignIn(ctx, strings.TrimSpace(email), password); err != nil {
		return errors.Wrap(err, "[Store.SignIn]")
	}
	return nil
}

// SignUpRequest carries the sign-up form. Name and Phone go into user metadata.
type SignUpRequest struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

func (r SignUpRequest) metadata() map[string]any {
	metadata := map[string]any{}
	if name := strings.TrimSpace(r.Name); name != "" {
		metadata["name"] = name
	}
	if phone := strings.TrimSpace(r.Phone); phone != "" {
		metadata["phone"] = phone
	}
	return metadata
}

func (s *Store) SignUp(ctx context.Context, req SignUpRequest) error {
	if err := s.checkAlive(); err != nil {
		return err
	}
	if err := s.provider.SignUp(ctx, strings.TrimSpace(req.Email), req.Password, req.metadata()); err != nil {
		return errors.Wrap(err, "[Store.SignUp]")
	}
	return nil
}

// SignOut never fails from the caller's point of view: the signed-out state
// arrives as a notification, so provider errors are only logged.
func (s *Store) SignOut(ctx context.Context) {
	if err := s.provider.SignOut(ctx); err != nil {
		log.Err(err).Msg("[Store.SignOut] sign out failed")
	}
}

func (s *Store) ResetPassword(ctx context.Context, email string) error {
	if err := s.checkAlive(); err != nil {
		return err
	}
	if err := s.provider.ResetPassword(ctx, strings.TrimSpace(email)); err != nil {
		return errors.Wrap(err, "[Store.ResetPassword]")
	}
	return nil
}
