package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
)

// SeedAdmin ensures the configured bootstrap admin principal exists. It runs
// once at startup and is a no-op when no bootstrap identity is configured or
// the principal already exists.
func (s *Usecase) SeedAdmin(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "SeedAdmin")
	defer span.End()

	identity := strings.TrimSpace(strings.ToLower(s.cfg.GetString("modules.auth.bootstrap_admin_email")))
	if identity == "" {
		return nil
	}

	principal, err := s.repoDB.EnsurePrincipal(ctx, entity.NewPrincipal{
		ID:       s.uid.Generate(),
		Identity: identity,
		Role:     entity.RoleAdmin,
		Verified: true,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to seed bootstrap admin", "identity", identity, "error", err)
		return goerror.NewServer(err)
	}

	if principal.Role != entity.RoleAdmin {
		slog.WarnContext(ctx, "bootstrap admin identity exists with a non-admin role",
			"identity", identity, "role", principal.Role.String())
	}

	return nil
}
