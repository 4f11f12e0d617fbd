package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
)

type ChallengeVerifyInput struct {
	Identity string `validate:"required,identity"`
	Code     string `validate:"required,otpcode"`
}

type ChallengeVerifyOutput struct {
	Token string
}

// ChallengeVerify runs the verification state machine against the live
// challenge and mints a bearer token on success.
//
// Rules are applied in precedence order on the locked challenge row: missing
// challenge, expiry, attempt exhaustion, code mismatch, match. The decision
// and its side effect (increment or clear) commit in one transaction.
func (s *Usecase) ChallengeVerify(ctx context.Context, in ChallengeVerifyInput) (*ChallengeVerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "ChallengeVerify")
	defer span.End()

	in.Identity = strings.TrimSpace(strings.ToLower(in.Identity))
	in.Code = strings.TrimSpace(in.Code)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	// Compare in the int domain; a narrowing cast would wrap large config
	// values and lock everyone out.
	maxAttempts := s.cfg.GetInt("modules.auth.max_attempts")
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	result, err := s.repoDB.VerifyChallenge(ctx, in.Identity, func(vp entity.VerifiedPrincipal) entity.VerifyDecision {
		if !s.clock.Now().Before(vp.Challenge.ExpiresAt) {
			return entity.DecisionExpired
		}
		if int(vp.Challenge.Attempts) >= maxAttempts {
			return entity.DecisionExhausted
		}
		if !s.bcrypt.Verify(vp.Challenge.CodeHash, in.Code) {
			return entity.DecisionRejected
		}
		return entity.DecisionVerified
	})
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "verification without live challenge", "identity", in.Identity)
		return nil, goerror.NewBusiness("Verification was not requested for this identity", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo verify challenge", "identity", in.Identity, "error", err)
		return nil, goerror.NewServer(err)
	}

	switch result.Decision {
	case entity.DecisionExpired:
		slog.WarnContext(ctx, "challenge has expired", "principal_id", result.PrincipalID)
		return nil, goerror.NewBusiness("The code has expired, please request a new one", goerror.CodeUnauthorized)

	case entity.DecisionExhausted:
		slog.WarnContext(ctx, "challenge attempt limit reached", "principal_id", result.PrincipalID)
		return nil, goerror.NewBusiness("Too many failed attempts, please request a new code",
			goerror.CodeTooManyRequest)

	case entity.DecisionRejected:
		slog.WarnContext(ctx, "challenge code mismatch", "principal_id", result.PrincipalID)
		return nil, goerror.NewBusiness("The code is incorrect", goerror.CodeUnauthorized)
	}

	token, err := s.jwt.Generate(result.PrincipalID, result.Identity, result.Role.String())
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate jwt token", "principal_id", result.PrincipalID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.cooldown.Reset(ctx, "challenge:"+in.Identity); err != nil {
		slog.WarnContext(ctx, "failed to reset challenge cooldown", "identity", in.Identity, "error", err)
	}

	// The request context is canceled as soon as the handler returns; detach
	// so the publish is not skipped or aborted mid-flight.
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishPrincipalVerified(ctx, PrincipalVerifiedEvent{
			PrincipalID: result.PrincipalID,
			Identity:    result.Identity,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to publish principal verified event",
				"principal_id", result.PrincipalID, "error", err)
		}
		return nil
	})

	return &ChallengeVerifyOutput{Token: token}, nil
}
