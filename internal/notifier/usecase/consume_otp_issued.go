package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/otpgate/otpgate/internal/pkg/mail"
)

type ConsumeOTPIssuedInput struct {
	PrincipalID int64  `validate:"required,gt=0"`
	Identity    string `validate:"required,identity"`
	Code        string `validate:"required,otpcode"`
	ExpiresAt   int64  `validate:"required,gt=0"`
}

// ConsumeOTPIssued delivers a freshly issued code. Malformed payloads are
// dropped so the broker does not redeliver them forever.
func (s *Usecase) ConsumeOTPIssued(ctx context.Context, in ConsumeOTPIssuedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeOTPIssued")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return nil
	}

	if strings.Contains(in.Identity, "@") {
		return s.sendCodeEmail(ctx, in)
	}

	if err := s.repoSMS.ForwardCode(ctx, in.Identity, in.Code); err != nil {
		slog.ErrorContext(ctx, "failed to forward code to sms gateway", "principal_id", in.PrincipalID, "error", err)
		return err
	}

	return nil
}

func (s *Usecase) sendCodeEmail(ctx context.Context, in ConsumeOTPIssuedInput) error {
	expiresAt := time.Unix(in.ExpiresAt, 0).UTC()
	ttl := time.Until(expiresAt).Round(time.Minute)

	msg := mail.Message{
		From:     s.cfg.GetString("modules.notifier.email_from"),
		To:       []string{in.Identity},
		Subject:  "Your verification code",
		TextBody: s.codeEmailBody(in.Code, ttl, expiresAt),
	}

	if err := s.repoEmail.Send(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to send code email", "principal_id", in.PrincipalID, "error", err)
		return err
	}

	return nil
}

func (s *Usecase) codeEmailBody(code string, ttl time.Duration, expiresAt time.Time) string {
	minutes := int(ttl.Minutes())
	if minutes < 1 {
		minutes = 1
	}

	return fmt.Sprintf(
		"Your verification code is %s.\n\n"+
			"It expires in %d minutes (at %s).\n\n"+
			"If you did not request this code, you can ignore this email.\n",
		code, minutes, expiresAt.Format(time.RFC1123),
	)
}
