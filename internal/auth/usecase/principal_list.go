package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
)

type PrincipalListInput struct {
	Search string
	Size   int32
	Page   int32
}

type PrincipalListOutput struct {
	Page       int32
	Size       int32
	Total      int64
	Principals []entity.Principal
}

func (s *Usecase) PrincipalList(ctx context.Context, in PrincipalListInput) (*PrincipalListOutput, error) {
	ctx, span := s.startSpan(ctx, "PrincipalList")
	defer span.End()

	if _, err := s.requireRole(ctx, entity.RoleAdmin); err != nil {
		return nil, err
	}

	if in.Size <= 0 || in.Size > 100 {
		in.Size = 10 // default limit
	}
	page := max(in.Page, 1)

	principals, total, err := s.repoDB.GetPrincipalList(ctx, entity.PrincipalListFilter{
		Search: strings.TrimSpace(in.Search),
		Size:   in.Size,
		Page:   (page - 1) * in.Size,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list principals", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &PrincipalListOutput{
		Page:       page,
		Size:       in.Size,
		Total:      total,
		Principals: principals,
	}, nil
}
