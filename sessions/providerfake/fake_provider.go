package providerfake

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/bogo-finds/sessions"
	"golang.org/x/oauth2"
)

var _ sessions.AuthProvider = (*FakeProvider)(nil)

// FakeProvider is a scriptable sessions.AuthProvider. Set the *Err fields to
// make the matching call fail.
type FakeProvider struct {
	GetSessionErr error
	SignInErr     error
	SignUpErr     error
	SignOutErr    error
	ResetErr      error
	PanicOnGet    bool

	lock         sync.Mutex
	current      *sessions.Session
	handlers     map[int]sessions.ChangeHandler
	everyHandler []sessions.ChangeHandler
	nextID       int
	gate         chan struct{}
	unsubscribes int
	calls        []string
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		handlers: make(map[int]sessions.ChangeHandler),
	}
}

// NewSession builds a session for tests.
func NewSession(email string, metadata map[string]any) *sessions.Session {
	return &sessions.Session{
		User: sessions.User{
			ID:       uuid.New().String(),
			Email:    email,
			Metadata: metadata,
		},
		Token: &oauth2.Token{AccessToken: uuid.New().String(), TokenType: "Bearer"},
	}
}

// SetSession sets what GetCurrentSession returns without notifying anyone.
func (p *FakeProvider) SetSession(session *sessions.Session) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.current = session
}

// BlockGetSession makes GetCurrentSession wait until the returned release is called.
func (p *FakeProvider) BlockGetSession() (release func()) {
	p.lock.Lock()
	defer p.lock.Unlock()
	gate := make(chan struct{})
	p.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (p *FakeProvider) GetCurrentSession(ctx context.Context) (*sessions.Session, error) {
	p.lock.Lock()
	p.calls = append(p.calls, "GetCurrentSession")
	gate := p.gate
	p.lock.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.PanicOnGet {
		panic("provider exploded")
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if p.GetSessionErr != nil {
		return nil, p.GetSessionErr
	}
	return p.current, nil
}

func (p *FakeProvider) OnSessionChange(handler sessions.ChangeHandler) sessions.Subscription {
	p.lock.Lock()
	defer p.lock.Unlock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	p.everyHandler = append(p.everyHandler, handler)
	return sessions.SubscriptionFunc(func() {
		p.lock.Lock()
		defer p.lock.Unlock()
		delete(p.handlers, id)
		p.unsubscribes++
	})
}

// Emit notifies current subscribers in registration order.
func (p *FakeProvider) Emit(event sessions.Event, session *sessions.Session) {
	p.lock.Lock()
	p.current = session
	handlers := make([]sessions.ChangeHandler, 0, len(p.handlers))
	for id := 0; id < p.nextID; id++ {
		if h, ok := p.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	p.lock.Unlock()

	for _, h := range handlers {
		h(event, session)
	}
}

// EmitLate notifies every handler ever registered, including unsubscribed ones,
// like a callback already in flight when Unsubscribe ran.
func (p *FakeProvider) EmitLate(event sessions.Event, session *sessions.Session) {
	p.lock.Lock()
	handlers := append([]sessions.ChangeHandler(nil), p.everyHandler...)
	p.lock.Unlock()

	for _, h := range handlers {
		h(event, session)
	}
}

func (p *FakeProvider) SignIn(ctx context.Context, email, password string) error {
	p.record("SignIn")
	if p.SignInErr != nil {
		return p.SignInErr
	}
	p.Emit(sessions.EventSignedIn, NewSession(email, nil))
	return nil
}

func (p *FakeProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) error {
	p.record("SignUp")
	if p.SignUpErr != nil {
		return p.SignUpErr
	}
	p.Emit(sessions.EventSignedIn, NewSession(email, metadata))
	return nil
}

func (p *FakeProvider) SignOut(ctx context.Context) error {
	p.record("SignOut")
	if p.SignOutErr != nil {
		return p.SignOutErr
	}
	p.Emit(sessions.EventSignedOut, nil)
	return nil
}

func (p *FakeProvider) ResetPassword(ctx context.Context, email string) error {
	p.record("ResetPassword")
	return p.ResetErr
}

// Subscribers is the number of live subscriptions.
func (p *FakeProvider) Subscribers() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.handlers)
}

func (p *FakeProvider) Unsubscribes() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.unsubscribes
}

func (p *FakeProvider) Calls() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *FakeProvider) record(call string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.calls = append(p.calls, call)
}
