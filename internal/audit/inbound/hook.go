package inbound

import (
	"context"

	"github.com/otpgate/otpgate/internal/audit/usecase"
	"github.com/otpgate/otpgate/internal/pkg/goroutine"
	"github.com/otpgate/otpgate/internal/pkg/router"
)

// Hook adapts the usecase to the router's audit hook. Records are written
// off the request goroutine so auditing never adds latency.
type Hook struct {
	uc        uc
	goroutine *goroutine.Manager
}

func NewHook(uc uc, g *goroutine.Manager) *Hook {
	return &Hook{uc: uc, goroutine: g}
}

func (h *Hook) Record(ctx context.Context, entry router.AuditEntry) {
	// The request context is canceled as soon as the handler returns; detach
	// so the row is still written after that.
	h.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		h.uc.Record(ctx, usecase.RecordInput{
			Method:        entry.Method,
			Route:         entry.Route,
			URI:           entry.URI,
			IP:            entry.IP,
			CorrelationID: entry.CorrelationID,
			PrincipalID:   entry.PrincipalID,
			Status:        int32(entry.Status),
			LatencyMS:     entry.LatencyMS,
		})
		return nil
	})
}
