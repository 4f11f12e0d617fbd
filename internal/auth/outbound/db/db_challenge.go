package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/otpgate/otpgate/internal/auth/entity"
)

func (s *DB) GetChallenge(ctx context.Context, principalID int64) (ch *entity.Challenge, err error) {
	ctx, span := s.startSpan(ctx, "GetChallenge")
	defer func() { s.endSpan(span, err) }()

	ch = &entity.Challenge{}
	err = s.conn.QueryRow(ctx,
		`SELECT principal_id, code_hash, issued_at, expires_at, attempts
		 FROM auth_challenges WHERE principal_id = $1`, principalID).
		Scan(&ch.PrincipalID, &ch.CodeHash, &ch.IssuedAt, &ch.ExpiresAt, &ch.Attempts)
	if err != nil {
		return nil, s.mapError(err)
	}
	return ch, nil
}

// ReplaceChallenge upserts the single challenge row for the principal,
// superseding any prior code and resetting the attempt counter.
func (s *DB) ReplaceChallenge(ctx context.Context, in entity.Challenge) (err error) {
	ctx, span := s.startSpan(ctx, "ReplaceChallenge")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO auth_challenges (principal_id, code_hash, issued_at, expires_at, attempts)
		 VALUES ($1, $2, $3, $4, 0)
		 ON CONFLICT (principal_id) DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at,
			attempts = 0`,
		in.PrincipalID, in.CodeHash, in.IssuedAt, in.ExpiresAt)

	return s.mapError(err)
}

// VerifyChallenge locks the principal's challenge row, hands the locked state
// to decide, and applies the returned decision before committing. The lock
// serializes concurrent verification attempts for the same principal so an
// attempt increment is never lost and a consumed code never verifies twice.
func (s *DB) VerifyChallenge(ctx context.Context, identity string,
	decide func(vp entity.VerifiedPrincipal) entity.VerifyDecision,
) (res *entity.VerifyResult, err error) {
	ctx, span := s.startSpan(ctx, "VerifyChallenge")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	var vp entity.VerifiedPrincipal
	err = tx.QueryRow(ctx,
		`SELECT p.id, p.identity, p.role, c.code_hash, c.issued_at, c.expires_at, c.attempts
		 FROM auth_principals p
		 JOIN auth_challenges c ON c.principal_id = p.id
		 WHERE p.identity = $1
		 FOR UPDATE OF c`, identity).
		Scan(&vp.PrincipalID, &vp.Identity, &vp.Role,
			&vp.Challenge.CodeHash, &vp.Challenge.IssuedAt, &vp.Challenge.ExpiresAt, &vp.Challenge.Attempts)
	if err != nil {
		return nil, s.mapError(err)
	}
	vp.Challenge.PrincipalID = vp.PrincipalID

	decision := decide(vp)

	switch decision {
	case entity.DecisionVerified:
		if _, err = tx.Exec(ctx,
			`DELETE FROM auth_challenges WHERE principal_id = $1`, vp.PrincipalID); err != nil {
			return nil, s.mapError(err)
		}
		if _, err = tx.Exec(ctx,
			`UPDATE auth_principals SET verified = TRUE, updated_at = NOW() WHERE id = $1`,
			vp.PrincipalID); err != nil {
			return nil, s.mapError(err)
		}

	case entity.DecisionExpired:
		if _, err = tx.Exec(ctx,
			`DELETE FROM auth_challenges WHERE principal_id = $1`, vp.PrincipalID); err != nil {
			return nil, s.mapError(err)
		}

	case entity.DecisionRejected:
		if _, err = tx.Exec(ctx,
			`UPDATE auth_challenges SET attempts = attempts + 1 WHERE principal_id = $1`,
			vp.PrincipalID); err != nil {
			return nil, s.mapError(err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, s.mapError(err)
	}

	return &entity.VerifyResult{
		PrincipalID: vp.PrincipalID,
		Identity:    vp.Identity,
		Role:        vp.Role,
		Decision:    decision,
	}, nil
}
