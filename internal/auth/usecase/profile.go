package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/otpgate/otpgate/internal/pkg/goerror"
)

type ProfileInput struct{}

type ProfileOutput struct {
	ID          int64
	Identity    string
	Role        string
	Verified    bool
	Name        string
	Gender      string
	DateOfBirth *time.Time
	Occupation  string
	City        string
	State       string
	Country     string
	Pincode     string
}

func (s *Usecase) Profile(ctx context.Context, in ProfileInput) (*ProfileOutput, error) {
	ctx, span := s.startSpan(ctx, "Profile")
	defer span.End()

	principal, err := s.requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	out := &ProfileOutput{
		ID:       principal.ID,
		Identity: principal.Identity,
		Role:     principal.Role.String(),
		Verified: principal.Verified,
	}

	detail, err := s.repoDB.GetPrincipalDetail(ctx, principal.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get principal detail", "principal_id", principal.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	out.Name = detail.Name
	out.Gender = detail.Gender
	out.DateOfBirth = detail.DateOfBirth
	out.Occupation = detail.Occupation
	out.City = detail.City
	out.State = detail.State
	out.Country = detail.Country
	out.Pincode = detail.Pincode

	return out, nil
}
