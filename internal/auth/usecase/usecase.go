package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/clock"
	"github.com/otpgate/otpgate/internal/pkg/config"
	"github.com/otpgate/otpgate/internal/pkg/cooldown"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
	"github.com/otpgate/otpgate/internal/pkg/goroutine"
	"github.com/otpgate/otpgate/internal/pkg/hash"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/otpgate/otpgate/internal/pkg/jwt"
	"github.com/otpgate/otpgate/internal/pkg/uid"
	"github.com/otpgate/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

// OTPIssuedEvent is published when a challenge is (re)issued so the delivery
// collaborator can notify the principal out-of-band.
type OTPIssuedEvent struct {
	PrincipalID int64
	Identity    string
	Code        string
	ExpiresAt   int64
}

// PrincipalVerifiedEvent is published after a successful verification.
type PrincipalVerifiedEvent struct {
	PrincipalID int64
	Identity    string
}

type repoMessaging interface {
	PublishOTPIssued(ctx context.Context, msg OTPIssuedEvent) error
	PublishPrincipalVerified(ctx context.Context, msg PrincipalVerifiedEvent) error
}

type repoDB interface {
	GetPrincipalByIdentity(ctx context.Context, identity string) (*entity.Principal, error)
	GetPrincipalByID(ctx context.Context, id int64) (*entity.Principal, error)
	GetPrincipalList(ctx context.Context, filter entity.PrincipalListFilter) ([]entity.Principal, int64, error)
	GetPrincipalDetail(ctx context.Context, principalID int64) (*entity.PrincipalDetail, error)
	GetChallenge(ctx context.Context, principalID int64) (*entity.Challenge, error)

	CreatePrincipal(ctx context.Context, in entity.NewPrincipal) (*entity.Principal, error)
	EnsurePrincipal(ctx context.Context, in entity.NewPrincipal) (*entity.Principal, error)
	UpsertPrincipalDetail(ctx context.Context, in entity.PrincipalDetail) error

	// ReplaceChallenge stores the challenge for its principal, superseding any
	// prior one and resetting the attempt counter.
	ReplaceChallenge(ctx context.Context, in entity.Challenge) error

	// VerifyChallenge locks the principal's challenge row, calls decide on the
	// locked state and applies the returned decision in the same transaction.
	// goerror.ErrNotFound is returned when the principal or challenge does not
	// exist.
	VerifyChallenge(ctx context.Context, identity string,
		decide func(vp entity.VerifiedPrincipal) entity.VerifyDecision) (*entity.VerifyResult, error)
}

type codeIssuer interface {
	Generate() (string, error)
	Digits() int
}

// Usecase implements the OTP lifecycle, token issuance and role-gated
// principal management.
type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	cooldown      cooldown.Limiter
	validator     validator.Validator
	cfg           config.Config
	bcrypt        hash.Hash
	passcode      codeIssuer
	uid           uid.NumberID
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Cooldown      cooldown.Limiter
	Validator     validator.Validator
	Config        config.Config
	Bcrypt        hash.Hash
	Passcode      codeIssuer
	UID           uid.NumberID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		cooldown:      dep.Cooldown,
		validator:     dep.Validator,
		cfg:           dep.Config,
		bcrypt:        dep.Bcrypt,
		passcode:      dep.Passcode,
		uid:           dep.UID,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("auth.usecase").Start(ctx, name)
}

// requirePrincipal returns the authenticated principal loaded fresh from the
// store. The role embedded in the token is a stale snapshot and never used
// for authorization.
func (s *Usecase) requirePrincipal(ctx context.Context) (*entity.Principal, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	principal, err := s.repoDB.GetPrincipalByID(ctx, clm.PrincipalID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "authenticated principal no longer exists", "principal_id", clm.PrincipalID)
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get principal by id", "principal_id", clm.PrincipalID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return principal, nil
}

// requireRole loads the caller fresh from the store and checks role
// membership against the allowed set.
func (s *Usecase) requireRole(ctx context.Context, allowed ...entity.Role) (*entity.Principal, error) {
	principal, err := s.requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	for _, role := range allowed {
		if principal.Role == role {
			return principal, nil
		}
	}

	slog.WarnContext(ctx, "principal role not allowed for operation",
		"principal_id", principal.ID, "role", principal.Role.String())
	return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
}
