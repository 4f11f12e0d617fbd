package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
)

type PrincipalCreateInput struct {
	Identity string `validate:"required,identity"`
	Role     string `validate:"required,oneof=user admin"`
}

type PrincipalCreateOutput struct {
	ID       int64
	Identity string
	Role     string
}

// PrincipalCreate creates a principal on behalf of an admin. This is the
// only path that may assign the admin role.
func (s *Usecase) PrincipalCreate(ctx context.Context, in PrincipalCreateInput) (*PrincipalCreateOutput, error) {
	ctx, span := s.startSpan(ctx, "PrincipalCreate")
	defer span.End()

	in.Identity = strings.TrimSpace(strings.ToLower(in.Identity))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	caller, err := s.requireRole(ctx, entity.RoleAdmin)
	if err != nil {
		return nil, err
	}

	role := entity.RoleFromString(in.Role)
	if role.IsUnknown() {
		return nil, goerror.NewInvalidInput(errors.New("unknown role"), "role", "must be user or admin")
	}

	principal, err := s.repoDB.CreatePrincipal(ctx, entity.NewPrincipal{
		ID:       s.uid.Generate(),
		Identity: in.Identity,
		Role:     role,
	})
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "principal identity already exists", "identity", in.Identity)
		return nil, goerror.NewBusiness("A principal with that identity already exists", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create principal",
			"identity", in.Identity, "caller_id", caller.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &PrincipalCreateOutput{
		ID:       principal.ID,
		Identity: principal.Identity,
		Role:     principal.Role.String(),
	}, nil
}
