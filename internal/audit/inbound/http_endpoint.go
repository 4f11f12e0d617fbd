package inbound

import (
	"time"

	"github.com/otpgate/otpgate/internal/audit/usecase"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
	"github.com/otpgate/otpgate/internal/pkg/router"
)

func parseDate(value, field string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, goerror.NewInvalidInput(err, field, "must be a valid date in YYYY-MM-DD format")
	}
	return t, nil
}

// HTTPEndpoint exposes HTTP handlers for the audit log.
type HTTPEndpoint struct {
	uc uc
}

// LogList lists audit records, admin only.
// @Summary List audit logs
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date (YYYY-MM-DD, inclusive)"
// @Param to query string false "End date (YYYY-MM-DD, exclusive)"
// @Param size query int false "Page size, default 20, max 100"
// @Param page query int false "Page number, default 1"
// @Success 200 {object} router.successResponse{data=LogListResponse} "Audit logs"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Admin role required"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/audit/logs [get]
func (h *HTTPEndpoint) LogList(r *router.Request) (any, error) {
	resp, err := h.uc.LogList(r.Context(), usecase.LogListInput{
		From: r.GetQueryDate("from"),
		To:   r.GetQueryDate("to"),
		Size: r.GetQueryInt32("size", 20),
		Page: r.GetQueryInt32("page", 1),
	})
	if err != nil {
		return nil, err
	}

	logs := make([]LogResponse, 0, len(resp.Logs))
	for _, log := range resp.Logs {
		logs = append(logs, LogResponse{
			ID:            log.ID,
			Method:        log.Method,
			Route:         log.Route,
			URI:           log.Metadata.GetString("uri"),
			IP:            log.Metadata.GetString("ip"),
			Status:        log.Status,
			LatencyMS:     log.LatencyMS,
			PrincipalID:   log.PrincipalID,
			CorrelationID: log.CorrelationID,
			CreatedAt:     log.CreatedAt,
		})
	}

	return LogListResponse{
		Logs:  logs,
		page:  resp.Page,
		size:  resp.Size,
		total: resp.Total,
	}, nil
}

// LogExport exports audit records to object storage, admin only.
// @Summary Export audit logs
// @Description Writes the matching audit records to object storage as JSON lines and returns a signed download URL.
// @Tags Audit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LogExportRequest true "Export range"
// @Success 200 {object} router.successResponse{data=LogExportResponse} "Export result"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Admin role required"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/audit/export [post]
func (h *HTTPEndpoint) LogExport(r *router.Request) (any, error) {
	var req LogExportRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	in := usecase.LogExportInput{}
	if req.From != "" {
		from, err := parseDate(req.From, "from")
		if err != nil {
			return nil, err
		}
		in.From = from
	}
	if req.To != "" {
		to, err := parseDate(req.To, "to")
		if err != nil {
			return nil, err
		}
		in.To = to
	}

	resp, err := h.uc.LogExport(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return LogExportResponse{
		ObjectKey:   resp.ObjectKey,
		DownloadURL: resp.DownloadURL,
		Count:       resp.Count,
	}, nil
}
