package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
)

type PrincipalGetInput struct {
	ID int64 `validate:"required,gt=0"`
}

type PrincipalGetOutput struct {
	ID        int64
	Identity  string
	Role      string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Usecase) PrincipalGet(ctx context.Context, in PrincipalGetInput) (*PrincipalGetOutput, error) {
	ctx, span := s.startSpan(ctx, "PrincipalGet")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if _, err := s.requireRole(ctx, entity.RoleAdmin); err != nil {
		return nil, err
	}

	principal, err := s.repoDB.GetPrincipalByID(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("Principal not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get principal by id", "principal_id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &PrincipalGetOutput{
		ID:        principal.ID,
		Identity:  principal.Identity,
		Role:      principal.Role.String(),
		Verified:  principal.Verified,
		CreatedAt: principal.CreatedAt,
		UpdatedAt: principal.UpdatedAt,
	}, nil
}
