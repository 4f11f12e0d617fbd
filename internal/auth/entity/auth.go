package entity

import (
	"time"
)

// Principal is the identified subject of authentication, keyed by a unique
// email or phone identity.
type Principal struct {
	ID        int64
	Identity  string
	Role      Role
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PrincipalDetail holds the optional, mutable profile attributes of a
// principal.
type PrincipalDetail struct {
	PrincipalID int64
	Name        string
	Gender      string
	DateOfBirth *time.Time
	Occupation  string
	City        string
	State       string
	Country     string
	Pincode     string
	UpdatedAt   time.Time
}

// Challenge is the live OTP record awaiting verification for one principal.
// At most one challenge exists per principal; issuing a new one replaces it.
type Challenge struct {
	PrincipalID int64
	CodeHash    string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Attempts    int16
}

// NewPrincipal carries the fields needed to create a principal row.
type NewPrincipal struct {
	ID       int64
	Identity string
	Role     Role
	Verified bool
}

// VerifiedPrincipal is the joined row handed to the verification decision
// while the challenge row is locked.
type VerifiedPrincipal struct {
	PrincipalID int64
	Identity    string
	Role        Role
	Challenge   Challenge
}

// VerifyResult reports the applied decision plus the principal it applied to.
type VerifyResult struct {
	PrincipalID int64
	Identity    string
	Role        Role
	Decision    VerifyDecision
}

// PrincipalListFilter narrows and pages the principal directory listing.
type PrincipalListFilter struct {
	Search string
	Size   int32
	Page   int32
}
