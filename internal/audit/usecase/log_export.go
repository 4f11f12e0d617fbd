package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/otpgate/otpgate/internal/audit/entity"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
	"github.com/otpgate/otpgate/internal/pkg/storage"
	"github.com/samber/lo"
)

const logExportPageSize int32 = 1_000

type LogExportInput struct {
	From time.Time
	To   time.Time
}

type LogExportOutput struct {
	ObjectKey   string
	DownloadURL string
	Count       int64
}

type exportRow struct {
	ID            int64  `json:"id,string"`
	Method        string `json:"method"`
	Route         string `json:"route"`
	URI           string `json:"uri"`
	IP            string `json:"ip"`
	Status        int32  `json:"status"`
	LatencyMS     int64  `json:"latency_ms"`
	PrincipalID   int64  `json:"principal_id,string"`
	CorrelationID string `json:"correlation_id"`
	CreatedAt     string `json:"created_at"`
}

// LogExport writes the matching audit records to object storage as JSON lines
// and returns a signed download URL, admin only.
func (s *Usecase) LogExport(ctx context.Context, in LogExportInput) (*LogExportOutput, error) {
	ctx, span := s.startSpan(ctx, "LogExport")
	defer span.End()

	callerID, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	var (
		logs  []entity.APILog
		page  int32 = 1
		total int64
	)
	for {
		pageLogs, count, err := s.repoDB.GetLogList(ctx, entity.LogListFilter{
			From: in.From,
			To:   in.To,
			Size: logExportPageSize,
			Page: (page - 1) * logExportPageSize,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo export audit logs", "error", err)
			return nil, goerror.NewServer(err)
		}

		if page == 1 {
			total = count
			if total == 0 {
				break
			}
			logs = make([]entity.APILog, 0, min(total, int64(logExportPageSize)))
		}

		logs = append(logs, pageLogs...)

		if int64(len(logs)) >= total || len(pageLogs) == 0 {
			break
		}

		page++
	}

	rows := lo.Map(logs, func(log entity.APILog, _ int) exportRow {
		return exportRow{
			ID:            log.ID,
			Method:        log.Method,
			Route:         log.Route,
			URI:           log.Metadata.GetString("uri"),
			IP:            log.Metadata.GetString("ip"),
			Status:        log.Status,
			LatencyMS:     log.LatencyMS,
			PrincipalID:   log.PrincipalID,
			CorrelationID: log.CorrelationID,
			CreatedAt:     log.CreatedAt.UTC().Format(time.RFC3339),
		}
	})

	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			slog.ErrorContext(ctx, "failed to encode audit export row", "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	bucket := strings.TrimSpace(s.cfg.GetString("modules.audit.export_bucket"))
	key := "audit-exports/" + s.oid.Generate() + ".jsonl"

	if _, err := s.storage.PutObject(ctx, bucket, key, buf, storage.PutOptions{
		Size:        int64(buf.Len()),
		ContentType: "application/x-ndjson",
		Metadata:    map[string]string{"exported_by": strconv.FormatInt(callerID, 10)},
	}); err != nil {
		slog.ErrorContext(ctx, "failed to upload audit export", "bucket", bucket, "error", err)
		return nil, goerror.NewServer(err)
	}

	expiry := s.cfg.GetMinute("modules.audit.export_url_ttl_minutes")
	url, err := s.storage.PresignGet(ctx, bucket, key, expiry)
	if err != nil {
		slog.ErrorContext(ctx, "failed to presign audit export url", "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &LogExportOutput{
		ObjectKey:   key,
		DownloadURL: url,
		Count:       int64(len(rows)),
	}, nil
}
