// Package app composes the session store, deal engine and selection into the
// screens a user moves through: loading, auth and deals.
package app

import (
	"context"
	"sync"

	"github.com/jrsteele09/bogo-finds/deals"
	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"github.com/jrsteele09/bogo-finds/internal/metrics"
	"github.com/jrsteele09/bogo-finds/selection"
	"github.com/jrsteele09/bogo-finds/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Screen string

const (
	ScreenLoading Screen = "loading"
	ScreenAuth    Screen = "auth"
	ScreenDeals   Screen = "deals"
)

const (
	DefaultLocation = "Irvine, CA"
	Headline        = "What BOGO deal are you claiming today?"
)

type App struct {
	store     *sessions.Store
	engine    *deals.Engine
	selection *selection.Controller
	metrics   metrics.MetricsCollector
	location  string
	pageURL   string
	form      *AuthForm

	mu      sync.Mutex
	started bool
}

// AppOption defines a function type to modify the App instance.
type AppOption func(*App)

func WithMetrics(m metrics.MetricsCollector) AppOption {
	return func(a *App) {
		a.metrics = m
	}
}

// WithLocation sets the area label shown on the deals page and used for map searches.
func WithLocation(location string) AppOption {
	return func(a *App) {
		a.location = location
	}
}

// WithPageURL sets the link attached to shared deals.
func WithPageURL(pageURL string) AppOption {
	return func(a *App) {
		a.pageURL = pageURL
	}
}

// New wires a session store over provider. Nothing talks to the provider until Start.
func New(provider sessions.AuthProvider, engine *deals.Engine, options ...AppOption) (*App, error) {
	if engine == nil {
		return nil, errors.Wrap(apperrors.ErrNotConfigured, "[app.New] deal engine is required")
	}

	a := &App{
		engine:    engine,
		selection: selection.NewController(),
		metrics:   metrics.NopCollector{},
		location:  DefaultLocation,
	}
	for _, opt := range options {
		opt(a)
	}

	store, err := sessions.NewStore(provider, sessions.WithEventObserver(func(event sessions.Event) {
		a.metrics.RecordSessionEvent(string(event))
	}))
	if err != nil {
		return nil, errors.Wrap(err, "[app.New]")
	}
	a.store = store
	a.form = NewAuthForm(a)
	return a, nil
}

// Start subscribes to session changes and then fetches the initial session.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.mu.Unlock()

	if err := a.store.Subscribe(a.onSessionChange); err != nil {
		return errors.Wrap(err, "[App.Start] Subscribe")
	}
	a.store.Initialize(ctx)
	return nil
}

func (a *App) onSessionChange(state sessions.State) {
	if state.User == nil && a.selection.IsOpen() {
		log.Debug().Msg("signed out, closing open deal")
		a.selection.Close()
	}
}

// Close tears the store down. Later provider notifications are ignored.
func (a *App) Close() {
	a.selection.Close()
	a.store.Teardown()
}

func (a *App) State() sessions.State {
	return a.store.State()
}

// Screen gates the UI: loading until the first session fetch resolves, then auth
// or deals depending on whether a user is signed in.
func (a *App) Screen() Screen {
	return ScreenFor(a.store.State())
}

func ScreenFor(state sessions.State) Screen {
	switch {
	case state.Loading:
		return ScreenLoading
	case state.User == nil:
		return ScreenAuth
	default:
		return ScreenDeals
	}
}

func (a *App) DisplayName() string {
	return DisplayName(a.store.State())
}

func (a *App) Form() *AuthForm {
	return a.form
}

func (a *App) SignIn(ctx context.Context, email, password string) error {
	if err := a.store.SignIn(ctx, email, password); err != nil {
		a.metrics.RecordAuthFailure("signin")
		return err
	}
	return nil
}

func (a *App) SignUp(ctx context.Context, req sessions.SignUpRequest) error {
	if err := a.store.SignUp(ctx, req); err != nil {
		a.metrics.RecordAuthFailure("signup")
		return err
	}
	return nil
}

func (a *App) ResetPassword(ctx context.Context, email string) error {
	if err := a.store.ResetPassword(ctx, email); err != nil {
		a.metrics.RecordAuthFailure("reset")
		return err
	}
	return nil
}

func (a *App) SignOut(ctx context.Context) {
	a.selection.Close()
	a.store.SignOut(ctx)
}

func (a *App) requireSignedIn() error {
	if a.Screen() != ScreenDeals {
		return errors.Wrap(apperrors.ErrSessionNotFound, "sign in to browse deals")
	}
	return nil
}

// SelectCategory switches the filter. name must be one of deals.Categories, matched exactly.
func (a *App) SelectCategory(name string) error {
	if err := a.requireSignedIn(); err != nil {
		return errors.Wrap(err, "[App.SelectCategory]")
	}
	category, ok := deals.ParseCategory(name)
	if !ok {
		return errors.Wrapf(apperrors.ErrUnknownCategory, "[App.SelectCategory] %q", name)
	}
	if err := a.engine.SelectCategory(category); err != nil {
		return errors.Wrap(err, "[App.SelectCategory]")
	}
	a.metrics.RecordCategorySelected(string(category))
	return nil
}

// SelectSort records the sort choice. Only the recommended order is implemented;
// other modes are accepted and leave the order as is.
func (a *App) SelectSort(name string) error {
	if err := a.requireSignedIn(); err != nil {
		return errors.Wrap(err, "[App.SelectSort]")
	}
	mode, ok := deals.ParseSortMode(name)
	if !ok {
		return errors.Wrapf(apperrors.ErrUnknownSortMode, "[App.SelectSort] %q", name)
	}
	if err := a.engine.SelectSortMode(mode); err != nil {
		return errors.Wrap(err, "[App.SelectSort]")
	}
	return nil
}

// Claim opens the detail view for deal id with its time remaining fixed at now.
func (a *App) Claim(id int) (DealDetail, error) {
	if err := a.requireSignedIn(); err != nil {
		return DealDetail{}, errors.Wrap(err, "[App.Claim]")
	}
	deal, err := a.engine.Deal(id)
	if err != nil {
		return DealDetail{}, errors.Wrap(err, "[App.Claim]")
	}
	snapshot := a.selection.Open(deal, a.engine.Now())
	a.metrics.RecordDealOpened(deal.Category)
	return a.detail(snapshot), nil
}

// CloseDeal dismisses the detail view. Nothing open is fine.
func (a *App) CloseDeal() {
	a.selection.Close()
}

// Selected returns the open deal detail, if any.
func (a *App) Selected() (DealDetail, bool, error) {
	if err := a.requireSignedIn(); err != nil {
		return DealDetail{}, false, errors.Wrap(err, "[App.Selected]")
	}
	snapshot, ok := a.selection.Current()
	if !ok {
		return DealDetail{}, false, nil
	}
	return a.detail(snapshot), true, nil
}
