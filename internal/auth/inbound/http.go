package inbound

import (
	"context"

	"github.com/otpgate/otpgate/internal/auth/usecase"
	"github.com/otpgate/otpgate/internal/pkg/router"
)

type uc interface {
	ChallengeRequest(ctx context.Context, in usecase.ChallengeRequestInput) (*usecase.ChallengeRequestOutput, error)
	ChallengeVerify(ctx context.Context, in usecase.ChallengeVerifyInput) (*usecase.ChallengeVerifyOutput, error)

	Profile(ctx context.Context, in usecase.ProfileInput) (*usecase.ProfileOutput, error)
	ProfileUpdate(ctx context.Context, in usecase.ProfileUpdateInput) error

	PrincipalCreate(ctx context.Context, in usecase.PrincipalCreateInput) (*usecase.PrincipalCreateOutput, error)
	PrincipalGet(ctx context.Context, in usecase.PrincipalGetInput) (*usecase.PrincipalGetOutput, error)
	PrincipalList(ctx context.Context, in usecase.PrincipalListInput) (*usecase.PrincipalListOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// OTP lifecycle (public)
	r.POST("/api/v1/auth/challenge", end.ChallengeRequest)
	r.POST("/api/v1/auth/verify", end.ChallengeVerify)

	// Profile (need authenticated)
	r.GET("/api/v1/auth/profile", end.Profile)
	r.PUT("/api/v1/auth/profile", end.ProfileUpdate)

	// Principal directory (need authenticated & admin role)
	r.POST("/api/v1/auth/principals", end.PrincipalCreate)
	r.GET("/api/v1/auth/principals", end.PrincipalList)
	r.GET("/api/v1/auth/principals/:id", end.PrincipalGet)
}
