package inbound

import (
	"context"

	"github.com/otpgate/otpgate/internal/audit/usecase"
	"github.com/otpgate/otpgate/internal/pkg/router"
)

type uc interface {
	Record(ctx context.Context, in usecase.RecordInput)
	LogList(ctx context.Context, in usecase.LogListInput) (*usecase.LogListOutput, error)
	LogExport(ctx context.Context, in usecase.LogExportInput) (*usecase.LogExportOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Audit log (need authenticated & admin role)
	r.GET("/api/v1/audit/logs", end.LogList)
	r.POST("/api/v1/audit/export", end.LogExport)
}
