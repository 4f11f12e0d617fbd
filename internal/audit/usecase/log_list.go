package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/otpgate/otpgate/internal/audit/entity"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
)

type LogListInput struct {
	From time.Time
	To   time.Time
	Size int32
	Page int32
}

type LogListOutput struct {
	Page  int32
	Size  int32
	Total int64
	Logs  []entity.APILog
}

// LogList returns a page of audit records, admin only.
func (s *Usecase) LogList(ctx context.Context, in LogListInput) (*LogListOutput, error) {
	ctx, span := s.startSpan(ctx, "LogList")
	defer span.End()

	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	if in.Size <= 0 || in.Size > 100 {
		in.Size = 20 // default limit
	}
	page := max(in.Page, 1)

	logs, total, err := s.repoDB.GetLogList(ctx, entity.LogListFilter{
		From: in.From,
		To:   in.To,
		Size: in.Size,
		Page: (page - 1) * in.Size,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list audit logs", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &LogListOutput{
		Page:  page,
		Size:  in.Size,
		Total: total,
		Logs:  logs,
	}, nil
}
