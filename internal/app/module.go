package app

import (
	"log/slog"
	"os"

	"github.com/otpgate/otpgate/internal/audit"
	"github.com/otpgate/otpgate/internal/auth"
	"github.com/otpgate/otpgate/internal/notifier"
)

// initAuditModule runs before the HTTP server because the router takes the
// audit hook at construction time.
func (a *App) initAuditModule() {
	if !a.config.GetBool("modules.audit.enabled") {
		return
	}

	mod, err := audit.New(audit.Dependency{
		DBConn:     a.dbConn,
		Goroutine:  a.goroutine,
		Storage:    a.storage,
		Config:     a.config,
		Instrument: a.ins,
		UID:        a.uid,
		OID:        a.oid,
		Clock:      a.clock,
		Validator:  a.validator,
	})
	if err != nil {
		slog.Error("failed to init module audit", "error", err)
		os.Exit(1)
	}

	a.audit = mod
}

func (a *App) initModules() {
	if a.audit != nil {
		a.audit.RegisterRoutes(a.router)
	}

	if a.config.GetBool("modules.auth.enabled") {
		if err := auth.New(a.ctx, auth.Dependency{
			DBConn:     a.dbConn,
			Goroutine:  a.goroutine,
			Router:     a.router,
			Cooldown:   a.cooldown,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			Bcrypt:     a.bcrypt,
			Passcode:   a.passcode,
			Clock:      a.clock,
			Validator:  a.validator,
			JWT:        a.jwt,
		}); err != nil {
			slog.Error("failed to init module auth", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.notifier.enabled") {
		if err := notifier.New(a.ctx, notifier.Dependency{
			Messaging:  a.messaging,
			Mail:       a.mail,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module notifier", "error", err)
			os.Exit(1)
		}
	}
}
