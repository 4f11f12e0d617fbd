package inbound

import "time"

type ChallengeRequestRequest struct {
	Identity string `json:"identity"`
}

type ChallengeRequestResponse struct {
	Identity  string    `json:"identity"`
	Delivered bool      `json:"delivered"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (ChallengeRequestResponse) Message() string {
	return "A one-time code has been issued. Check your inbox or messages."
}

type ChallengeVerifyRequest struct {
	Identity string `json:"identity"`
	Code     string `json:"code"`
}

type ChallengeVerifyResponse struct {
	Token string `json:"token"`
}

func (ChallengeVerifyResponse) Message() string {
	return "Verification successful."
}

type ProfileResponse struct {
	ID          int64  `json:"id,string"`
	Identity    string `json:"identity"`
	Role        string `json:"role"`
	Verified    bool   `json:"verified"`
	Name        string `json:"name,omitempty"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Occupation  string `json:"occupation,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	Pincode     string `json:"pincode,omitempty"`
}

type ProfileUpdateRequest struct {
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	Occupation  string `json:"occupation"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	Pincode     string `json:"pincode"`
}

type PrincipalCreateRequest struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
}

type PrincipalCreateResponse struct {
	ID       int64  `json:"id,string"`
	Identity string `json:"identity"`
	Role     string `json:"role"`
}

func (PrincipalCreateResponse) Message() string {
	return "Principal created."
}

type PrincipalResponse struct {
	ID        int64     `json:"id,string"`
	Identity  string    `json:"identity"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PrincipalListResponse struct {
	Principals []PrincipalResponse `json:"principals"`
	page       int32
	size       int32
	total      int64
}

func (r PrincipalListResponse) Meta() map[string]any {
	return map[string]any{
		"page":  r.page,
		"size":  r.size,
		"total": r.total,
	}
}
