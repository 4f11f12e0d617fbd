// Package db persists audit log rows in PostgreSQL.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/otpgate/otpgate/internal/audit/entity"
	authentity "github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, ins: ins}
}

func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}
	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("audit.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *DB) CreateLog(ctx context.Context, in entity.APILog) (err error) {
	ctx, span := s.startSpan(ctx, "CreateLog")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO audit_logs
			(id, method, route, status, latency_ms, principal_id, correlation_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		in.ID, in.Method, in.Route, in.Status, in.LatencyMS,
		in.PrincipalID, in.CorrelationID, in.Metadata, in.CreatedAt)

	return s.mapError(err)
}

func (s *DB) GetLogList(ctx context.Context, filter entity.LogListFilter) (logs []entity.APILog, total int64, err error) {
	ctx, span := s.startSpan(ctx, "GetLogList")
	defer func() { s.endSpan(span, err) }()

	if err = s.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs
		 WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		   AND ($2::timestamptz IS NULL OR created_at < $2)`,
		nullableTime(filter.From), nullableTime(filter.To)).Scan(&total); err != nil {
		return nil, 0, s.mapError(err)
	}

	rows, err := s.conn.Query(ctx,
		`SELECT id, method, route, status, latency_ms, principal_id, correlation_id, metadata, created_at
		 FROM audit_logs
		 WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		   AND ($2::timestamptz IS NULL OR created_at < $2)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3 OFFSET $4`,
		nullableTime(filter.From), nullableTime(filter.To), filter.Size, filter.Page)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	defer rows.Close()

	logs = make([]entity.APILog, 0, filter.Size)
	for rows.Next() {
		var log entity.APILog
		if err = rows.Scan(&log.ID, &log.Method, &log.Route, &log.Status, &log.LatencyMS,
			&log.PrincipalID, &log.CorrelationID, &log.Metadata, &log.CreatedAt); err != nil {
			return nil, 0, s.mapError(err)
		}
		logs = append(logs, log)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, s.mapError(err)
	}

	return logs, total, nil
}

func (s *DB) GetPrincipalRole(ctx context.Context, principalID int64) (role authentity.Role, err error) {
	ctx, span := s.startSpan(ctx, "GetPrincipalRole")
	defer func() { s.endSpan(span, err) }()

	err = s.conn.QueryRow(ctx,
		`SELECT role FROM auth_principals WHERE id = $1`, principalID).Scan(&role)
	if err != nil {
		return authentity.RoleUnknown, s.mapError(err)
	}
	return role, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
