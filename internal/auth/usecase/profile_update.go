package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
)

type ProfileUpdateInput struct {
	Name        string `validate:"required,min=2,max=100,alphaspace"`
	Gender      string `validate:"omitempty,oneof=male female other"`
	DateOfBirth string `validate:"omitempty,datetime=2006-01-02"`
	Occupation  string `validate:"omitempty,max=100"`
	City        string `validate:"omitempty,max=100"`
	State       string `validate:"omitempty,max=100"`
	Country     string `validate:"omitempty,max=100"`
	Pincode     string `validate:"omitempty,max=16"`
}

func (s *Usecase) ProfileUpdate(ctx context.Context, in ProfileUpdateInput) error {
	ctx, span := s.startSpan(ctx, "ProfileUpdate")
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	principal, err := s.requirePrincipal(ctx)
	if err != nil {
		return err
	}

	detail := entity.PrincipalDetail{
		PrincipalID: principal.ID,
		Name:        in.Name,
		Gender:      in.Gender,
		Occupation:  strings.TrimSpace(in.Occupation),
		City:        strings.TrimSpace(in.City),
		State:       strings.TrimSpace(in.State),
		Country:     strings.TrimSpace(in.Country),
		Pincode:     strings.TrimSpace(in.Pincode),
	}
	if in.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, in.DateOfBirth)
		if err != nil {
			return goerror.NewInvalidInput(err, "date_of_birth", "must be a valid date in YYYY-MM-DD format")
		}
		detail.DateOfBirth = &dob
	}

	if err := s.repoDB.UpsertPrincipalDetail(ctx, detail); err != nil {
		slog.ErrorContext(ctx, "failed to repo upsert principal detail", "principal_id", principal.ID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
