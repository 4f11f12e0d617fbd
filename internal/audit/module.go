// Package audit persists one record per API request and exposes admin-only
// listing and export of those records.
package audit

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/otpgate/otpgate/internal/audit/inbound"
	"github.com/otpgate/otpgate/internal/audit/outbound/db"
	"github.com/otpgate/otpgate/internal/audit/usecase"
	"github.com/otpgate/otpgate/internal/pkg/clock"
	"github.com/otpgate/otpgate/internal/pkg/config"
	"github.com/otpgate/otpgate/internal/pkg/goroutine"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/otpgate/otpgate/internal/pkg/router"
	"github.com/otpgate/otpgate/internal/pkg/storage"
	"github.com/otpgate/otpgate/internal/pkg/uid"
	"github.com/otpgate/otpgate/internal/pkg/validator"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Storage    storage.Storage            `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	OID        uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

// Module holds the audit usecase. The router hook is needed before the
// router exists, so construction and route registration are separate steps.
type Module struct {
	uc        *usecase.Usecase
	goroutine *goroutine.Manager
}

func New(dep Dependency) (*Module, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	dbAudit := db.NewDB(dep.DBConn, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:     dbAudit,
		Storage:    dep.Storage,
		Config:     dep.Config,
		UID:        dep.UID,
		OID:        dep.OID,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
	})

	return &Module{uc: uc, goroutine: dep.Goroutine}, nil
}

// Hook returns the per-request recorder handed to the router.
func (m *Module) Hook() router.AuditHook {
	return inbound.NewHook(m.uc, m.goroutine)
}

// RegisterRoutes attaches the admin endpoints once the router exists.
func (m *Module) RegisterRoutes(r *router.Router) {
	inbound.RegisterHTTPEndpoint(r, m.uc)
}
