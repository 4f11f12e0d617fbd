package inbound

import (
	"time"

	"github.com/otpgate/otpgate/internal/auth/usecase"
	"github.com/otpgate/otpgate/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for the OTP lifecycle and principal
// management.
type HTTPEndpoint struct {
	uc uc
}

// ChallengeRequest issues (or replaces) a one-time code challenge.
// @Summary Request OTP challenge
// @Description Issues a fresh one-time code for the identity, replacing any prior challenge, and triggers out-of-band delivery.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ChallengeRequestRequest true "Challenge payload"
// @Success 200 {object} router.successResponse{data=ChallengeRequestResponse} "Challenge issued"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Re-issue throttled"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/auth/challenge [post]
func (h *HTTPEndpoint) ChallengeRequest(r *router.Request) (any, error) {
	var req ChallengeRequestRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.ChallengeRequest(r.Context(), usecase.ChallengeRequestInput{Identity: req.Identity})
	if err != nil {
		return nil, err
	}

	return ChallengeRequestResponse{
		Identity:  resp.Identity,
		Delivered: resp.Delivered,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// ChallengeVerify verifies a submitted code and mints a bearer token.
// @Summary Verify OTP code
// @Description Validates the submitted code against the live challenge and returns a signed bearer token on success.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ChallengeVerifyRequest true "Verification payload"
// @Success 200 {object} router.successResponse{data=ChallengeVerifyResponse} "Verification result"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "No challenge, expired or incorrect code"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Attempt limit reached"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/auth/verify [post]
func (h *HTTPEndpoint) ChallengeVerify(r *router.Request) (any, error) {
	var req ChallengeVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.ChallengeVerify(r.Context(), usecase.ChallengeVerifyInput{
		Identity: req.Identity,
		Code:     req.Code,
	})
	if err != nil {
		return nil, err
	}

	return ChallengeVerifyResponse{Token: resp.Token}, nil
}

// Profile returns the authenticated principal's profile.
// @Summary Get profile
// @Tags Auth, Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=ProfileResponse} "Profile"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/auth/profile [get]
func (h *HTTPEndpoint) Profile(r *router.Request) (any, error) {
	resp, err := h.uc.Profile(r.Context(), usecase.ProfileInput{})
	if err != nil {
		return nil, err
	}

	out := ProfileResponse{
		ID:         resp.ID,
		Identity:   resp.Identity,
		Role:       resp.Role,
		Verified:   resp.Verified,
		Name:       resp.Name,
		Gender:     resp.Gender,
		Occupation: resp.Occupation,
		City:       resp.City,
		State:      resp.State,
		Country:    resp.Country,
		Pincode:    resp.Pincode,
	}
	if resp.DateOfBirth != nil {
		out.DateOfBirth = resp.DateOfBirth.Format(time.DateOnly)
	}

	return out, nil
}

// ProfileUpdate updates the authenticated principal's profile attributes.
// @Summary Update profile
// @Tags Auth, Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileUpdateRequest true "Profile payload"
// @Success 204 "Profile updated"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/auth/profile [put]
func (h *HTTPEndpoint) ProfileUpdate(r *router.Request) (any, error) {
	var req ProfileUpdateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.ProfileUpdate(r.Context(), usecase.ProfileUpdateInput{
		Name:        req.Name,
		Gender:      req.Gender,
		DateOfBirth: req.DateOfBirth,
		Occupation:  req.Occupation,
		City:        req.City,
		State:       req.State,
		Country:     req.Country,
		Pincode:     req.Pincode,
	}); err != nil {
		return nil, err
	}

	return nil, nil
}

// PrincipalCreate creates a principal, admin only.
// @Summary Create principal
// @Description Creates a principal with the given identity and role. Only admins may call this, and only this path may assign the admin role.
// @Tags Auth, Principals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PrincipalCreateRequest true "Principal payload"
// @Success 200 {object} router.successResponse{data=PrincipalCreateResponse} "Created principal"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Admin role required"
// @Failure 409 {object} router.errorResponse "Identity already exists"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/auth/principals [post]
func (h *HTTPEndpoint) PrincipalCreate(r *router.Request) (any, error) {
	var req PrincipalCreateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.PrincipalCreate(r.Context(), usecase.PrincipalCreateInput{
		Identity: req.Identity,
		Role:     req.Role,
	})
	if err != nil {
		return nil, err
	}

	return PrincipalCreateResponse{
		ID:       resp.ID,
		Identity: resp.Identity,
		Role:     resp.Role,
	}, nil
}

// PrincipalGet returns one principal by id, admin only.
// @Summary Get principal
// @Tags Auth, Principals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Principal ID"
// @Success 200 {object} router.successResponse{data=PrincipalResponse} "Principal"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Admin role required"
// @Failure 404 {object} router.errorResponse "Principal not found"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/auth/principals/{id} [get]
func (h *HTTPEndpoint) PrincipalGet(r *router.Request) (any, error) {
	resp, err := h.uc.PrincipalGet(r.Context(), usecase.PrincipalGetInput{ID: r.GetParamInt64("id")})
	if err != nil {
		return nil, err
	}

	return PrincipalResponse{
		ID:        resp.ID,
		Identity:  resp.Identity,
		Role:      resp.Role,
		Verified:  resp.Verified,
		CreatedAt: resp.CreatedAt,
		UpdatedAt: resp.UpdatedAt,
	}, nil
}

// PrincipalList lists principals, admin only.
// @Summary List principals
// @Tags Auth, Principals
// @Produce json
// @Security BearerAuth
// @Param search query string false "Identity substring filter"
// @Param size query int false "Page size, default 10, max 100"
// @Param page query int false "Page number, default 1"
// @Success 200 {object} router.successResponse{data=PrincipalListResponse} "Principals"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Admin role required"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/auth/principals [get]
func (h *HTTPEndpoint) PrincipalList(r *router.Request) (any, error) {
	resp, err := h.uc.PrincipalList(r.Context(), usecase.PrincipalListInput{
		Search: r.GetQuery("search"),
		Size:   r.GetQueryInt32("size", 10),
		Page:   r.GetQueryInt32("page", 1),
	})
	if err != nil {
		return nil, err
	}

	principals := make([]PrincipalResponse, 0, len(resp.Principals))
	for _, p := range resp.Principals {
		principals = append(principals, PrincipalResponse{
			ID:        p.ID,
			Identity:  p.Identity,
			Role:      p.Role.String(),
			Verified:  p.Verified,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}

	return PrincipalListResponse{
		Principals: principals,
		page:       resp.Page,
		size:       resp.Size,
		total:      resp.Total,
	}, nil
}
