package usecase

import (
	"context"
	"log/slog"

	"github.com/otpgate/otpgate/internal/audit/entity"
	"github.com/otpgate/otpgate/internal/pkg/valueobject"
)

type RecordInput struct {
	Method        string
	Route         string
	URI           string
	IP            string
	CorrelationID string
	PrincipalID   int64
	Status        int32
	LatencyMS     int64
}

// Record persists one request record. Failures are logged and swallowed so
// auditing never affects the request path.
func (s *Usecase) Record(ctx context.Context, in RecordInput) {
	ctx, span := s.startSpan(ctx, "Record")
	defer span.End()

	log := entity.APILog{
		ID:            s.uid.Generate(),
		Method:        in.Method,
		Route:         in.Route,
		Status:        in.Status,
		LatencyMS:     in.LatencyMS,
		PrincipalID:   in.PrincipalID,
		CorrelationID: in.CorrelationID,
		Metadata: valueobject.JSONMap{
			"uri": in.URI,
			"ip":  in.IP,
		},
		CreatedAt: s.clock.Now(),
	}

	if err := s.repoDB.CreateLog(ctx, log); err != nil {
		slog.ErrorContext(ctx, "failed to repo create audit log", "route", in.Route, "error", err)
	}
}
