// Package usecase implements audit log recording, admin-only listing and
// export to object storage.
package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/otpgate/otpgate/internal/audit/entity"
	authentity "github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/clock"
	"github.com/otpgate/otpgate/internal/pkg/config"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/otpgate/otpgate/internal/pkg/jwt"
	"github.com/otpgate/otpgate/internal/pkg/storage"
	"github.com/otpgate/otpgate/internal/pkg/uid"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	CreateLog(ctx context.Context, in entity.APILog) error
	GetLogList(ctx context.Context, filter entity.LogListFilter) ([]entity.APILog, int64, error)
	GetPrincipalRole(ctx context.Context, principalID int64) (authentity.Role, error)
}

type Usecase struct {
	repoDB  repoDB
	storage storage.Storage
	cfg     config.Config
	uid     uid.NumberID
	oid     uid.StringID
	clock   clock.Clocker
	ins     instrument.Instrumentation
}

type Dependency struct {
	RepoDB     repoDB
	Storage    storage.Storage
	Config     config.Config
	UID        uid.NumberID
	OID        uid.StringID
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:  dep.RepoDB,
		storage: dep.Storage,
		cfg:     dep.Config,
		uid:     dep.UID,
		oid:     dep.OID,
		clock:   dep.Clock,
		ins:     dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("audit.usecase").Start(ctx, name)
}

// requireAdmin loads the caller's role fresh from the store, never trusting
// the role snapshot embedded in the token.
func (s *Usecase) requireAdmin(ctx context.Context) (int64, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return 0, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	role, err := s.repoDB.GetPrincipalRole(ctx, clm.PrincipalID)
	if errors.Is(err, goerror.ErrNotFound) {
		return 0, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get principal role", "principal_id", clm.PrincipalID, "error", err)
		return 0, goerror.NewServer(err)
	}

	if role != authentity.RoleAdmin {
		slog.WarnContext(ctx, "principal role not allowed for audit operation",
			"principal_id", clm.PrincipalID, "role", role.String())
		return 0, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return clm.PrincipalID, nil
}
