package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
)

type ChallengeRequestInput struct {
	Identity string `validate:"required,identity"`
}

type ChallengeRequestOutput struct {
	Identity  string
	Delivered bool
	ExpiresAt time.Time
}

// ChallengeRequest issues a fresh OTP challenge for the identity, replacing
// any prior one. The principal is created on first request, and the response
// is identical whether or not it existed before.
func (s *Usecase) ChallengeRequest(ctx context.Context, in ChallengeRequestInput) (*ChallengeRequestOutput, error) {
	ctx, span := s.startSpan(ctx, "ChallengeRequest")
	defer span.End()

	in.Identity = strings.TrimSpace(strings.ToLower(in.Identity))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	window := s.cfg.GetSecond("modules.auth.resend_cooldown_seconds")
	allowed, remaining, err := s.cooldown.Acquire(ctx, "challenge:"+in.Identity, window)
	if err != nil {
		slog.ErrorContext(ctx, "failed to acquire challenge cooldown", "identity", in.Identity, "error", err)
		return nil, goerror.NewTransient(err)
	}
	if !allowed {
		slog.WarnContext(ctx, "challenge re-issue throttled",
			"identity", in.Identity, "retry_in", remaining.String())
		return nil, goerror.NewBusiness("A code was sent recently, please wait before requesting a new one",
			goerror.CodeTooManyRequest)
	}

	principal, err := s.repoDB.EnsurePrincipal(ctx, entity.NewPrincipal{
		ID:       s.uid.Generate(),
		Identity: in.Identity,
		Role:     entity.RoleUser,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo ensure principal", "identity", in.Identity, "error", err)
		return nil, goerror.NewServer(err)
	}

	code, err := s.passcode.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate passcode", "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.bcrypt.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash passcode", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	challenge := entity.Challenge{
		PrincipalID: principal.ID,
		CodeHash:    string(codeHash),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.cfg.GetMinute("modules.auth.otp_ttl_minutes")),
	}

	if err := s.repoDB.ReplaceChallenge(ctx, challenge); err != nil {
		slog.ErrorContext(ctx, "failed to repo replace challenge", "principal_id", principal.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	delivered := true
	if err := s.repoMessaging.PublishOTPIssued(ctx, OTPIssuedEvent{
		PrincipalID: principal.ID,
		Identity:    principal.Identity,
		Code:        code,
		ExpiresAt:   challenge.ExpiresAt.Unix(),
	}); err != nil {
		// Delivery failure is non-fatal, the challenge stays valid.
		slog.ErrorContext(ctx, "failed to publish otp issued event", "principal_id", principal.ID, "error", err)
		delivered = false
	}

	return &ChallengeRequestOutput{
		Identity:  principal.Identity,
		Delivered: delivered,
		ExpiresAt: challenge.ExpiresAt,
	}, nil
}
