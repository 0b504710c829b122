package auth

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"github.com/jrsteele09/bogo-finds/internal/utils"
	"github.com/jrsteele09/bogo-finds/sessions"
	"github.com/jrsteele09/bogo-finds/token"
	"github.com/jrsteele09/bogo-finds/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const codeTimeout = time.Hour

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users    users.UserRepo // Repository for user data
	Sessions SessionRepo    // Issued sessions and pending codes
}

type registeredHandler struct {
	id      int
	handler sessions.ChangeHandler
}

// Service is an in-process auth provider. It keeps one current session, the way a
// client SDK does, and notifies subscribers whenever that session changes.
type Service struct {
	repos               Repos
	tokenCreator        *token.Manager
	mailer              Mailer
	verifier            *oidc.IDTokenVerifier
	requireConfirmation bool
	nowTime             func() time.Time

	mu       sync.Mutex
	current  string // refresh token of the signed-in session, empty when signed out
	handlers []registeredHandler
	nextID   int
}

var _ sessions.AuthProvider = (*Service)(nil)

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithMailer(mailer Mailer) ServiceOption {
	return func(s *Service) {
		s.mailer = mailer
	}
}

// WithRequireEmailConfirmation holds new password accounts back until ConfirmEmail succeeds.
func WithRequireEmailConfirmation(require bool) ServiceOption {
	return func(s *Service) {
		s.requireConfirmation = require
	}
}

// WithIDTokenVerifier enables SignInWithIDToken.
func WithIDTokenVerifier(verifier *oidc.IDTokenVerifier) ServiceOption {
	return func(s *Service) {
		s.verifier = verifier
	}
}

func NewService(repos Repos, tokenCreator *token.Manager, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions repo is required")
	}
	if tokenCreator == nil {
		return nil, errors.New("[NewService] tokenCreator is required")
	}

	s := &Service{
		repos:        repos,
		tokenCreator: tokenCreator,
		mailer:       LogMailer{},
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// GetCurrentSession returns the signed-in session, or nil when nobody is signed in.
// An expired access token is refreshed in place while the refresh token is still live.
func (s *Service) GetCurrentSession(ctx context.Context) (*sessions.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "[Service.GetCurrentSession]")
	}

	s.mu.Lock()
	session, event, err := s.currentSessionLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "[Service.GetCurrentSession]")
	}

	if event != "" {
		s.notify(event, session)
	}
	return session.Clone(), nil
}

// OnSessionChange registers handler. Handlers run synchronously, in registration
// order, after the change is committed.
func (s *Service) OnSessionChange(handler sessions.ChangeHandler) sessions.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.handlers = append(s.handlers, registeredHandler{id: id, handler: handler})

	var once sync.Once
	return sessions.SubscriptionFunc(func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, h := range s.handlers {
				if h.id == id {
					s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
					return
				}
			}
		})
	})
}

func (s *Service) SignIn(ctx context.Context, email, password string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "[Service.SignIn]")
	}

	user, err := s.repos.Users.GetByEmail(email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return errors.Wrap(apperrors.ErrInvalidCredentials, "[Service.SignIn]")
	}
	if err != nil {
		return errors.Wrap(err, "[Service.SignIn] GetByEmail")
	}
	if !user.CheckPassword(password) {
		return errors.Wrap(apperrors.ErrInvalidCredentials, "[Service.SignIn]")
	}
	if !user.Confirmed {
		return errors.Wrap(apperrors.ErrEmailNotConfirmed, "[Service.SignIn]")
	}

	return s.signIn(user, sessions.EventSignedIn)
}

// SignUp registers a password account. Without email confirmation the new user is
// signed in straight away; otherwise a confirmation code is mailed and no session starts.
func (s *Service) SignUp(ctx context.Context, email, password string, metadata map[string]any) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "[Service.SignUp]")
	}
	if err := users.ValidateEmail(email); err != nil {
		return errors.Wrap(err, "[Service.SignUp]")
	}
	if err := users.ValidatePasswordStrength(password); err != nil {
		return errors.Wrap(err, "[Service.SignUp]")
	}

	email = users.NormaliseEmail(email)
	if _, err := s.repos.Users.GetByEmail(email); err == nil {
		return errors.Wrap(apperrors.ErrUserAlreadyRegistered, "[Service.SignUp]")
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return errors.Wrap(err, "[Service.SignUp] HashPassword")
	}

	user := &users.User{
		Email:        email,
		PasswordHash: hash,
		Metadata:     utils.CloneMetadata(metadata),
		Confirmed:    !s.requireConfirmation,
		CreatedAt:    s.nowTime(),
	}
	if err := s.repos.Users.Upsert(user); err != nil {
		return errors.Wrap(err, "[Service.SignUp] Upsert")
	}

	if s.requireConfirmation {
		code, err := s.assignCode(email, CodeKindConfirmation)
		if err != nil {
			return errors.Wrap(err, "[Service.SignUp]")
		}
		if err := s.mailer.SendConfirmation(ctx, email, code); err != nil {
			return errors.Wrap(err, "[Service.SignUp] SendConfirmation")
		}
		return nil
	}

	return s.signIn(user, sessions.EventSignedIn)
}

// ConfirmEmail redeems a confirmation code and signs the user in.
func (s *Service) ConfirmEmail(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "[Service.ConfirmEmail]")
	}

	pending, err := s.consumeCode(code, CodeKindConfirmation)
	if err != nil {
		return errors.Wrap(err, "[Service.ConfirmEmail]")
	}
	if err := s.repos.Users.SetConfirmed(pending.Email, true); err != nil {
		return errors.Wrap(err, "[Service.ConfirmEmail] SetConfirmed")
	}

	user, err := s.repos.Users.GetByEmail(pending.Email)
	if err != nil {
		return errors.Wrap(err, "[Service.ConfirmEmail] GetByEmail")
	}
	return s.signIn(user, sessions.EventSignedIn)
}

// SignOut ends the current session and revokes its access token. Signing out
// while signed out is a no-op.
func (s *Service) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "[Service.SignOut]")
	}

	s.mu.Lock()
	wasSignedIn := s.current != ""
	s.endCurrentLocked()
	s.mu.Unlock()

	if wasSignedIn {
		s.notify(sessions.EventSignedOut, nil)
	}
	return nil
}

// ResetPassword mails a recovery code. Unknown addresses succeed silently so the
// endpoint can't be used to probe for accounts.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "[Service.ResetPassword]")
	}
	if err := users.ValidateEmail(email); err != nil {
		return errors.Wrap(err, "[Service.ResetPassword]")
	}

	email = users.NormaliseEmail(email)
	if _, err := s.repos.Users.GetByEmail(email); err != nil {
		log.Debug().Str("email", email).Msg("password reset requested for unknown email")
		return nil
	}

	code, err := s.assignCode(email, CodeKindRecovery)
	if err != nil {
		return errors.Wrap(err, "[Service.ResetPassword]")
	}
	if err := s.mailer.SendRecovery(ctx, email, code); err != nil {
		return errors.Wrap(err, "[Service.ResetPassword] SendRecovery")
	}
	return nil
}

// CompleteRecovery sets a new password from a recovery code, drops every other
// session of the user and signs in with PASSWORD_RECOVERY.
func (s *Service) CompleteRecovery(ctx context.Context, code, newPassword string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "[Service.CompleteRecovery]")
	}
	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return errors.Wrap(err, "[Service.CompleteRecovery]")
	}

	pending, err := s.consumeCode(code, CodeKindRecovery)
	if err != nil {
		return errors.Wrap(apperrors.ErrInvalidRecoveryCode, "[Service.CompleteRecovery]")
	}

	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, "[Service.CompleteRecovery] HashPassword")
	}
	if err := s.repos.Users.SetPasswordHash(pending.Email, hash); err != nil {
		return errors.Wrap(err, "[Service.CompleteRecovery] SetPasswordHash")
	}
	if err := s.repos.Users.SetConfirmed(pending.Email, true); err != nil {
		return errors.Wrap(err, "[Service.CompleteRecovery] SetConfirmed")
	}

	user, err := s.repos.Users.GetByEmail(pending.Email)
	if err != nil {
		return errors.Wrap(err, "[Service.CompleteRecovery] GetByEmail")
	}
	if err := s.repos.Sessions.DeleteByUserID(user.ID); err != nil {
		return errors.Wrap(err, "[Service.CompleteRecovery] DeleteByUserID")
	}
	return s.signIn(user, sessions.EventPasswordRecovery)
}

// RefreshSession rotates the current refresh token and issues a fresh access token.
func (s *Service) RefreshSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "[Service.RefreshSession]")
	}

	s.mu.Lock()
	stored, user, err := s.currentUserLocked()
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "[Service.RefreshSession]")
	}
	if !s.nowTime().Before(stored.RefreshExpiresAt) {
		s.endCurrentLocked()
		s.mu.Unlock()
		s.notify(sessions.EventSignedOut, nil)
		return errors.Wrap(apperrors.ErrSessionExpired, "[Service.RefreshSession]")
	}
	session, err := s.startSessionLocked(user)
	s.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "[Service.RefreshSession]")
	}

	s.notify(sessions.EventTokenRefreshed, session)
	return nil
}

// UpdateUserMetadata merges metadata into the current user's metadata. A nil value
// removes the key.
func (s *Service) UpdateUserMetadata(ctx context.Context, metadata map[string]any) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "[Service.UpdateUserMetadata]")
	}

	s.mu.Lock()
	stored, user, err := s.currentUserLocked()
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "[Service.UpdateUserMetadata]")
	}

	merged := utils.CloneMetadata(user.Metadata)
	if merged == nil {
		merged = make(map[string]any, len(metadata))
	}
	for k, v := range metadata {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	user.Metadata = merged
	if err := s.repos.Users.Upsert(user); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "[Service.UpdateUserMetadata] Upsert")
	}
	session := toSession(user, storedToken(stored))
	s.mu.Unlock()

	s.notify(sessions.EventUserUpdated, session)
	return nil
}

func (s *Service) signIn(user *users.User, event sessions.Event) error {
	user.LastSignIn = s.nowTime()
	if err := s.repos.Users.Upsert(user); err != nil {
		return errors.Wrap(err, "[Service.signIn] Upsert")
	}

	s.mu.Lock()
	session, err := s.startSessionLocked(user)
	s.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "[Service.signIn]")
	}

	s.notify(event, session)
	return nil
}

func (s *Service) currentSessionLocked() (*sessions.Session, sessions.Event, error) {
	if s.current == "" {
		return nil, "", nil
	}

	stored, user, err := s.currentUserLocked()
	if errors.Is(err, apperrors.ErrUserNotFound) {
		s.endCurrentLocked()
		return nil, sessions.EventSignedOut, nil
	}
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		s.current = ""
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	if !s.nowTime().Before(stored.RefreshExpiresAt) {
		s.endCurrentLocked()
		return nil, sessions.EventSignedOut, nil
	}

	tok := storedToken(stored)
	if !s.tokenCreator.AccessExpired(tok) {
		return toSession(user, tok), "", nil
	}

	session, err := s.startSessionLocked(user)
	if err != nil {
		return nil, "", err
	}
	return session, sessions.EventTokenRefreshed, nil
}

func (s *Service) currentUserLocked() (*StoredSession, *users.User, error) {
	if s.current == "" {
		return nil, nil, apperrors.ErrSessionNotFound
	}
	stored, err := s.repos.Sessions.Get(s.current)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.repos.Users.GetByID(stored.UserID)
	if err != nil {
		return nil, nil, err
	}
	return stored, user, nil
}

// startSessionLocked replaces the current session with a newly issued one for user.
func (s *Service) startSessionLocked(user *users.User) (*sessions.Session, error) {
	s.endCurrentLocked()

	tok, err := s.tokenCreator.Issue(user.ID, user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "Issue")
	}
	now := s.nowTime()
	if err := s.repos.Sessions.Upsert(&StoredSession{
		RefreshToken:     tok.RefreshToken,
		UserID:           user.ID,
		AccessToken:      tok.AccessToken,
		AccessExpiry:     tok.Expiry,
		IssuedAt:         now,
		RefreshExpiresAt: s.tokenCreator.RefreshExpiry(now),
	}); err != nil {
		return nil, errors.Wrap(err, "Sessions.Upsert")
	}
	s.current = tok.RefreshToken
	return toSession(user, tok), nil
}

func (s *Service) endCurrentLocked() {
	if s.current == "" {
		return
	}
	if stored, err := s.repos.Sessions.Get(s.current); err == nil {
		if err := s.tokenCreator.Revoke(stored.AccessToken); err != nil {
			log.Debug().Err(err).Msg("access token not revoked")
		}
		_ = s.repos.Sessions.Delete(s.current)
	}
	s.current = ""
}

func (s *Service) notify(event sessions.Event, session *sessions.Session) {
	s.mu.Lock()
	handlers := make([]sessions.ChangeHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h.handler)
	}
	s.mu.Unlock()

	for _, handler := range handlers {
		handler(event, session.Clone())
	}
}

func (s *Service) assignCode(email string, kind CodeKind) (string, error) {
	code := uuid.New().String()
	if err := s.repos.Sessions.AssignCode(&PendingCode{
		Code:      code,
		Kind:      kind,
		Email:     email,
		ExpiresAt: s.nowTime().Add(codeTimeout),
	}); err != nil {
		return "", errors.Wrap(err, "AssignCode")
	}
	return code, nil
}

func (s *Service) consumeCode(code string, kind CodeKind) (*PendingCode, error) {
	pending, err := s.repos.Sessions.ConsumeCode(code, kind)
	if err != nil {
		return nil, err
	}
	if !s.nowTime().Before(pending.ExpiresAt) {
		return nil, errors.Wrapf(apperrors.ErrInvalidToken, "%s code expired", kind)
	}
	return pending, nil
}

func storedToken(stored *StoredSession) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  stored.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.AccessExpiry,
	}
}

func toSession(user *users.User, tok *oauth2.Token) *sessions.Session {
	return &sessions.Session{
		User: sessions.User{
			ID:       user.ID,
			Email:    user.Email,
			Phone:    user.Phone,
			Metadata: utils.CloneMetadata(user.Metadata),
		},
		Token: tok,
	}
}
