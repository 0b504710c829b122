package app

import (
	"context"
	"strings"
	"sync"

	"github.com/jrsteele09/bogo-finds/sessions"
	"github.com/pkg/errors"
)

type FormMode string

const (
	ModeWelcome FormMode = "welcome"
	ModeLogin   FormMode = "login"
	ModeSignUp  FormMode = "signup"
)

const (
	NoticeConfirmEmail = "Check your email to confirm your account, then log in."
	NoticeResetSent    = "If an account exists for that email, a password reset link is on its way."
)

var (
	ErrFormBusy      = errors.New("a submission is already in progress")
	ErrWrongFormMode = errors.New("action not available in this form mode")
)

// Authenticator is what the auth form drives. *App implements it.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, req sessions.SignUpRequest) error
	ResetPassword(ctx context.Context, email string) error
	State() sessions.State
}

// Fields are the auth form inputs. Name and Phone are only read in sign-up mode.
type Fields struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// AuthFormView is what the auth screen renders.
type AuthFormView struct {
	Mode   FormMode `json:"mode"`
	Busy   bool     `json:"busy"`
	Error  string   `json:"error,omitempty"`
	Notice string   `json:"notice,omitempty"`
}

// AuthForm is the welcome / login / sign-up state machine. Welcome leads to Login
// or SignUp, Back returns to Welcome. Busy is set while a submission awaits the provider.
type AuthForm struct {
	auth Authenticator

	mu     sync.Mutex
	mode   FormMode
	busy   bool
	err    string
	notice string
}

func NewAuthForm(auth Authenticator) *AuthForm {
	return &AuthForm{auth: auth, mode: ModeWelcome}
}

func (f *AuthForm) View() AuthFormView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return AuthFormView{Mode: f.mode, Busy: f.busy, Error: f.err, Notice: f.notice}
}

func (f *AuthForm) ShowLogin() {
	f.switchMode(ModeLogin)
}

func (f *AuthForm) ShowSignUp() {
	f.switchMode(ModeSignUp)
}

func (f *AuthForm) Back() {
	f.switchMode(ModeWelcome)
}

// switchMode clears messages. Switching while busy is ignored.
func (f *AuthForm) switchMode(mode FormMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return
	}
	f.mode = mode
	f.err = ""
	f.notice = ""
}

// Submit logs in or signs up depending on the current mode. On failure Error
// holds a user-facing message; the returned error keeps the cause.
func (f *AuthForm) Submit(ctx context.Context, fields Fields) error {
	mode, err := f.begin()
	if err != nil {
		return err
	}

	switch mode {
	case ModeLogin:
		err = f.auth.SignIn(ctx, fields.Email, fields.Password)
	case ModeSignUp:
		err = f.auth.SignUp(ctx, sessions.SignUpRequest{
			Email:    fields.Email,
			Password: fields.Password,
			Name:     fields.Name,
			Phone:    fields.Phone,
		})
	default:
		err = errors.Wrapf(ErrWrongFormMode, "nothing to submit in %s mode", mode)
	}

	notice := ""
	if err == nil && mode == ModeSignUp && f.auth.State().User == nil {
		notice = NoticeConfirmEmail
	}
	f.finish(err, notice)
	return err
}

// RequestReset asks for a password reset email. Allowed from the login screen only.
func (f *AuthForm) RequestReset(ctx context.Context, email string) error {
	mode, err := f.begin()
	if err != nil {
		return err
	}
	if mode != ModeLogin {
		err = errors.Wrapf(ErrWrongFormMode, "password reset is requested from the login screen, not %s", mode)
		f.finish(err, "")
		return err
	}

	err = f.auth.ResetPassword(ctx, strings.TrimSpace(email))
	notice := ""
	if err == nil {
		notice = NoticeResetSent
	}
	f.finish(err, notice)
	return err
}

func (f *AuthForm) begin() (FormMode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return f.mode, ErrFormBusy
	}
	f.busy = true
	f.err = ""
	f.notice = ""
	return f.mode, nil
}

func (f *AuthForm) finish(err error, notice string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	f.err = sessions.UserMessage(err)
	f.notice = notice
}
