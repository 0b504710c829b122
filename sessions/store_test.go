package sessions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"github.com/jrsteele09/bogo-finds/sessions"
	"github.com/jrsteele09/bogo-finds/sessions/providerfake"
	"github.com/stretchr/testify/require"
)

type storeFixture struct {
	provider *providerfake.FakeProvider
	store    *sessions.Store

	mu     sync.Mutex
	states []sessions.State
	events []sessions.Event
}

func setupStore(t *testing.T) *storeFixture {
	t.Helper()

	f := &storeFixture{provider: providerfake.NewFakeProvider()}
	store, err := sessions.NewStore(f.provider, sessions.WithEventObserver(func(e sessions.Event) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
	}))
	require.NoError(t, err)
	f.store = store
	t.Cleanup(store.Teardown)
	return f
}

func (f *storeFixture) subscribe(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.Subscribe(func(s sessions.State) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.states = append(f.states, s)
	}))
}

func (f *storeFixture) recorded() ([]sessions.State, []sessions.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sessions.State(nil), f.states...), append([]sessions.Event(nil), f.events...)
}

func requireConsistent(t *testing.T, s sessions.State) {
	t.Helper()
	require.Equal(t, s.Session == nil, s.Profile == nil, "profile must be nil exactly when session is nil")
	require.Equal(t, s.Session == nil, s.User == nil, "user must be nil exactly when session is nil")
}

func TestNewStore_RequiresProvider(t *testing.T) {
	_, err := sessions.NewStore(nil)
	require.Error(t, err)
}

func TestStore_Initialize(t *testing.T) {
	t.Run("starts loading", func(t *testing.T) {
		f := setupStore(t)
		require.True(t, f.store.State().Loading)
	})

	t.Run("no session", func(t *testing.T) {
		f := setupStore(t)
		f.store.Initialize(context.Background())

		s := f.store.State()
		require.False(t, s.Loading)
		require.False(t, s.SignedIn())
		requireConsistent(t, s)
	})

	t.Run("existing session derives profile", func(t *testing.T) {
		f := setupStore(t)
		f.provider.SetSession(providerfake.NewSession("ava@example.com", map[string]any{"name": "Ava", "phone": "555-0100"}))
		f.store.Initialize(context.Background())

		s := f.store.State()
		require.False(t, s.Loading)
		require.True(t, s.SignedIn())
		require.Equal(t, "ava@example.com", s.User.Email)
		require.Equal(t, s.Session.User.ID, s.Profile.ID)
		require.Equal(t, "Ava", *s.Profile.Name)
		require.Equal(t, "555-0100", *s.Profile.Phone)
	})

	t.Run("provider error collapses to signed out", func(t *testing.T) {
		f := setupStore(t)
		f.provider.SetSession(providerfake.NewSession("ava@example.com", nil))
		f.provider.GetSessionErr = apperrors.ErrProviderUnavailable

		require.NotPanics(t, func() { f.store.Initialize(context.Background()) })
		s := f.store.State()
		require.False(t, s.Loading)
		require.False(t, s.SignedIn())
		requireConsistent(t, s)
	})

	t.Run("provider panic collapses to signed out", func(t *testing.T) {
		f := setupStore(t)
		f.provider.PanicOnGet = true

		require.NotPanics(t, func() { f.store.Initialize(context.Background()) })
		require.False(t, f.store.State().Loading)
		require.False(t, f.store.State().SignedIn())
	})

	t.Run("fetches once", func(t *testing.T) {
		f := setupStore(t)
		f.store.Initialize(context.Background())
		f.store.Initialize(context.Background())
		require.Equal(t, []string{"GetCurrentSession"}, f.provider.Calls())
	})
}

func TestStore_Subscribe(t *testing.T) {
	t.Run("each notification replaces the triple", func(t *testing.T) {
		f := setupStore(t)
		f.subscribe(t)
		f.store.Initialize(context.Background())

		first := providerfake.NewSession("ava@example.com", map[string]any{"name": "Ava"})
		second := providerfake.NewSession("bea@example.com", nil)

		f.provider.Emit(sessions.EventSignedIn, first)
		f.provider.Emit(sessions.EventTokenRefreshed, second)

		s := f.store.State()
		require.Equal(t, "bea@example.com", s.User.Email)
		require.Nil(t, s.Profile.Name, "no merge with the previous profile")

		f.provider.Emit(sessions.EventSignedOut, nil)
		require.False(t, f.store.State().SignedIn())

		states, events := f.recorded()
		require.Len(t, states, 4)
		for _, st := range states {
			requireConsistent(t, st)
			require.False(t, st.Loading)
		}
		require.Equal(t, []sessions.Event{
			sessions.EventInitialSession,
			sessions.EventSignedIn,
			sessions.EventTokenRefreshed,
			sessions.EventSignedOut,
		}, events)
	})

	t.Run("state does not alias provider data", func(t *testing.T) {
		f := setupStore(t)
		f.subscribe(t)

		session := providerfake.NewSession("ava@example.com", map[string]any{"name": "Ava"})
		f.provider.Emit(sessions.EventSignedIn, session)
		session.User.Metadata["name"] = "Mallory"

		require.Equal(t, "Ava", f.store.State().Session.User.Metadata["name"])
	})

	t.Run("second subscribe rejected", func(t *testing.T) {
		f := setupStore(t)
		f.subscribe(t)
		require.ErrorIs(t, f.store.Subscribe(nil), apperrors.ErrAlreadySubscribed)
		require.Equal(t, 1, f.provider.Subscribers())
	})
}

func TestStore_Teardown(t *testing.T) {
	t.Run("late sign-out notification is ignored", func(t *testing.T) {
		f := setupStore(t)
		f.subscribe(t)
		f.provider.Emit(sessions.EventSignedIn, providerfake.NewSession("ava@example.com", nil))

		f.store.Teardown()
		require.Equal(t, 0, f.provider.Subscribers())

		require.NotPanics(t, func() {
			f.provider.EmitLate(sessions.EventSignedOut, nil)
		})

		s := f.store.State()
		require.True(t, s.SignedIn(), "no mutation after teardown")
		states, _ := f.recorded()
		require.Len(t, states, 1)
	})

	t.Run("idempotent", func(t *testing.T) {
		f := setupStore(t)
		f.subscribe(t)

		f.store.Teardown()
		f.store.Teardown()
		require.Equal(t, 1, f.provider.Unsubscribes())
		require.True(t, f.store.Disposed())
	})

	t.Run("teardown without subscribe", func(t *testing.T) {
		f := setupStore(t)
		require.NotPanics(t, f.store.Teardown)
	})

	t.Run("initial fetch resolving after teardown is a no-op", func(t *testing.T) {
		f := setupStore(t)
		f.provider.SetSession(providerfake.NewSession("ava@example.com", nil))
		release := f.provider.BlockGetSession()

		done := make(chan struct{})
		go func() {
			defer close(done)
			f.store.Initialize(context.Background())
		}()

		require.Eventually(t, func() bool {
			return len(f.provider.Calls()) == 1
		}, time.Second, time.Millisecond)

		f.store.Teardown()
		release()
		<-done

		s := f.store.State()
		require.True(t, s.Loading, "state left as it was at teardown")
		require.False(t, s.SignedIn())
	})

	t.Run("subscribe after teardown", func(t *testing.T) {
		f := setupStore(t)
		f.store.Teardown()
		require.ErrorIs(t, f.store.Subscribe(nil), apperrors.ErrStoreDisposed)
		require.Equal(t, 0, f.provider.Subscribers())
	})
}

func TestStore_Actions(t *testing.T) {
	ctx := context.Background()

	t.Run("sign in success arrives via notification", func(t *testing.T) {
		f := setupStore(t)
		f.subscribe(t)

		require.NoError(t, f.store.SignIn(ctx, "  ava@example.com ", "Passw0rd!"))
		require.Equal(t, "ava@example.com", f.store.State().User.Email)
	})

	t.Run("credential error is surfaced", func(t *testing.T) {
		f := setupStore(t)
		f.provider.SignInErr = apperrors.ErrInvalidCredentials

		err := f.store.SignIn(ctx, "ava@example.com", "nope")
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
		require.Equal(t, "Invalid email or password", sessions.UserMessage(err))
		require.True(t, sessions.IsCredentialError(err))
	})

	t.Run("sign up passes name and phone metadata", func(t *testing.T) {
		f := setupStore(t)
		f.subscribe(t)

		require.NoError(t, f.store.SignUp(ctx, sessions.SignUpRequest{
			Email:    "ava@example.com",
			Password: "Passw0rd!",
			Name:     " Ava ",
			Phone:    "555-0100",
		}))
		p := f.store.State().Profile
		require.Equal(t, "Ava", *p.Name)
		require.Equal(t, "555-0100", *p.Phone)
	})

	t.Run("sign out failure is swallowed", func(t *testing.T) {
		f := setupStore(t)
		f.subscribe(t)
		f.provider.Emit(sessions.EventSignedIn, providerfake.NewSession("ava@example.com", nil))
		f.provider.SignOutErr = errors.New("network down")

		require.NotPanics(t, func() { f.store.SignOut(ctx) })
		require.True(t, f.store.State().SignedIn())
	})

	t.Run("sign out success", func(t *testing.T) {
		f := setupStore(t)
		f.subscribe(t)
		f.provider.Emit(sessions.EventSignedIn, providerfake.NewSession("ava@example.com", nil))

		f.store.SignOut(ctx)
		require.False(t, f.store.State().SignedIn())
	})

	t.Run("reset password", func(t *testing.T) {
		f := setupStore(t)
		require.NoError(t, f.store.ResetPassword(ctx, "ava@example.com"))

		f.provider.ResetErr = apperrors.ErrInvalidEmail
		require.ErrorIs(t, f.store.ResetPassword(ctx, "ava"), apperrors.ErrInvalidEmail)
	})

	t.Run("actions after teardown", func(t *testing.T) {
		f := setupStore(t)
		f.store.Teardown()
		require.ErrorIs(t, f.store.SignIn(ctx, "a@b.c", "x"), apperrors.ErrStoreDisposed)
		require.NotContains(t, f.provider.Calls(), "SignIn")
	})
}
