package entity

import (
	"time"

	"github.com/otpgate/otpgate/internal/pkg/valueobject"
)

// APILog is one persisted request record.
type APILog struct {
	ID            int64
	Method        string
	Route         string
	Status        int32
	LatencyMS     int64
	PrincipalID   int64
	CorrelationID string
	Metadata      valueobject.JSONMap
	CreatedAt     time.Time
}

// LogListFilter narrows and pages the audit log listing.
type LogListFilter struct {
	From time.Time
	To   time.Time
	Size int32
	Page int32
}
