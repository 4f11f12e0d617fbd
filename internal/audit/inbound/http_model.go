package inbound

import "time"

type LogResponse struct {
	ID            int64     `json:"id,string"`
	Method        string    `json:"method"`
	Route         string    `json:"route"`
	URI           string    `json:"uri"`
	IP            string    `json:"ip"`
	Status        int32     `json:"status"`
	LatencyMS     int64     `json:"latency_ms"`
	PrincipalID   int64     `json:"principal_id,string"`
	CorrelationID string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type LogListResponse struct {
	Logs  []LogResponse `json:"logs"`
	page  int32
	size  int32
	total int64
}

func (r LogListResponse) Meta() map[string]any {
	return map[string]any{
		"page":  r.page,
		"size":  r.size,
		"total": r.total,
	}
}

type LogExportRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type LogExportResponse struct {
	ObjectKey   string `json:"object_key"`
	DownloadURL string `json:"download_url"`
	Count       int64  `json:"count"`
}

func (LogExportResponse) Message() string {
	return "Audit export is ready for download."
}
