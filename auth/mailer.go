package auth

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Mailer delivers confirmation and recovery codes to a user.
type Mailer interface {
	SendConfirmation(ctx context.Context, email, code string) error
	SendRecovery(ctx context.Context, email, code string) error
}

// LogMailer writes codes to the log instead of sending mail. Only for local development.
type LogMailer struct{}

var _ Mailer = LogMailer{}

func (LogMailer) SendConfirmation(_ context.Context, email, code string) error {
	log.Info().Str("email", email).Str("code", code).Msg("email confirmation code")
	return nil
}

func (LogMailer) SendRecovery(_ context.Context, email, code string) error {
	log.Info().Str("email", email).Str("code", code).Msg("password recovery code")
	return nil
}
