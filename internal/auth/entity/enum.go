package entity

// Role is a closed enumeration of principal roles. Authorization checks
// switch over it exhaustively rather than comparing free-form strings.
type Role int16

const (
	// RoleUnknown means the role is not known / not set.
	RoleUnknown Role = 0

	// RoleUser is the default role for every principal.
	RoleUser Role = 1

	// RoleAdmin may manage principals and read audit logs.
	RoleAdmin Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

func (r Role) IsUnknown() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return false
	default:
		return true
	}
}

// RoleFromString parses a role name, returning RoleUnknown for anything
// outside the closed set.
func RoleFromString(str string) Role {
	switch str {
	case "user":
		return RoleUser
	case "admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// VerifyDecision is the outcome of evaluating the verification state machine
// for a locked challenge row.
type VerifyDecision int16

const (
	// DecisionRejected means the submitted code did not match; the attempt
	// counter is incremented.
	DecisionRejected VerifyDecision = 0

	// DecisionVerified means the code matched; the challenge is consumed and
	// the principal flagged verified.
	DecisionVerified VerifyDecision = 1

	// DecisionExpired means the challenge outlived its TTL; it is cleared.
	DecisionExpired VerifyDecision = 2

	// DecisionExhausted means the attempt cap was reached before this call;
	// the challenge is retained but no further attempts are accepted.
	DecisionExhausted VerifyDecision = 3
)

func (d VerifyDecision) String() string {
	switch d {
	case DecisionVerified:
		return "Verified"
	case DecisionExpired:
		return "Expired"
	case DecisionExhausted:
		return "Exhausted"
	default:
		return "Rejected"
	}
}
