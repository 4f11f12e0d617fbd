package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/config"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
	"github.com/otpgate/otpgate/internal/pkg/goroutine"
	"github.com/otpgate/otpgate/internal/pkg/hash"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/otpgate/otpgate/internal/pkg/jwt"
	"github.com/otpgate/otpgate/internal/pkg/passcode"
	"github.com/otpgate/otpgate/internal/pkg/uid"
	"github.com/otpgate/otpgate/internal/pkg/validator"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
modules:
  auth:
    otp_digits: 6
    otp_ttl_minutes: 10
    max_attempts: 3
    resend_cooldown_seconds: 0
    bootstrap_admin_email: root@example.com
`

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeLimiter struct {
	mu       sync.Mutex
	denied   bool
	acquired []string
	resets   []string
}

func (l *fakeLimiter) Acquire(_ context.Context, key string, _ time.Duration) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquired = append(l.acquired, key)
	if l.denied {
		return false, 30 * time.Second, nil
	}
	return true, 0, nil
}

func (l *fakeLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets = append(l.resets, key)
	return nil
}

type fakeMessaging struct {
	mu       sync.Mutex
	issued   []OTPIssuedEvent
	verified []PrincipalVerifiedEvent
	fail     bool
}

func (m *fakeMessaging) PublishOTPIssued(_ context.Context, msg OTPIssuedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return context.DeadlineExceeded
	}
	m.issued = append(m.issued, msg)
	return nil
}

func (m *fakeMessaging) PublishPrincipalVerified(_ context.Context, msg PrincipalVerifiedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verified = append(m.verified, msg)
	return nil
}

func (m *fakeMessaging) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.issued)
	return m.issued[len(m.issued)-1].Code
}

// fakeRepo mirrors the persistence contract in memory. VerifyChallenge holds
// a per-repo lock while deciding and applying, matching the row-lock
// semantics of the real implementation.
type fakeRepo struct {
	mu         sync.Mutex
	principals map[int64]*entity.Principal
	byIdentity map[string]int64
	challenges map[int64]*entity.Challenge
	details    map[int64]*entity.PrincipalDetail
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		principals: make(map[int64]*entity.Principal),
		byIdentity: make(map[string]int64),
		challenges: make(map[int64]*entity.Challenge),
		details:    make(map[int64]*entity.PrincipalDetail),
	}
}

func (r *fakeRepo) GetPrincipalByIdentity(_ context.Context, identity string) (*entity.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byIdentity[identity]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	p := *r.principals[id]
	return &p, nil
}

func (r *fakeRepo) GetPrincipalByID(_ context.Context, id int64) (*entity.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.principals[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) GetPrincipalList(_ context.Context, _ entity.PrincipalListFilter) ([]entity.Principal, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Principal, 0, len(r.principals))
	for _, p := range r.principals {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) GetPrincipalDetail(_ context.Context, principalID int64) (*entity.PrincipalDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.details[principalID]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeRepo) GetChallenge(_ context.Context, principalID int64) (*entity.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.challenges[principalID]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (r *fakeRepo) CreatePrincipal(_ context.Context, in entity.NewPrincipal) (*entity.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byIdentity[in.Identity]; ok {
		return nil, goerror.ErrConflict
	}
	p := &entity.Principal{ID: in.ID, Identity: in.Identity, Role: in.Role, Verified: in.Verified}
	r.principals[in.ID] = p
	r.byIdentity[in.Identity] = in.ID
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) EnsurePrincipal(ctx context.Context, in entity.NewPrincipal) (*entity.Principal, error) {
	r.mu.Lock()
	if id, ok := r.byIdentity[in.Identity]; ok {
		p := *r.principals[id]
		r.mu.Unlock()
		return &p, nil
	}
	r.mu.Unlock()
	return r.CreatePrincipal(ctx, in)
}

func (r *fakeRepo) UpsertPrincipalDetail(_ context.Context, in entity.PrincipalDetail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := in
	r.details[in.PrincipalID] = &cp
	return nil
}

func (r *fakeRepo) ReplaceChallenge(_ context.Context, in entity.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := in
	cp.Attempts = 0
	r.challenges[in.PrincipalID] = &cp
	return nil
}

func (r *fakeRepo) VerifyChallenge(_ context.Context, identity string,
	decide func(vp entity.VerifiedPrincipal) entity.VerifyDecision,
) (*entity.VerifyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byIdentity[identity]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	p := r.principals[id]
	ch, ok := r.challenges[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	decision := decide(entity.VerifiedPrincipal{
		PrincipalID: p.ID,
		Identity:    p.Identity,
		Role:        p.Role,
		Challenge:   *ch,
	})

	switch decision {
	case entity.DecisionVerified:
		delete(r.challenges, id)
		p.Verified = true
	case entity.DecisionExpired:
		delete(r.challenges, id)
	case entity.DecisionRejected:
		ch.Attempts++
	}

	return &entity.VerifyResult{
		PrincipalID: p.ID,
		Identity:    p.Identity,
		Role:        p.Role,
		Decision:    decision,
	}, nil
}

type fixture struct {
	uc    *Usecase
	repo  *fakeRepo
	clock *fakeClock
	msg   *fakeMessaging
	lim   *fakeLimiter
	jwt   jwt.JWT
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, testConfigYAML)
}

func newFixtureWithConfig(t *testing.T, configYAML string) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(configYAML))
	require.NoError(t, err)

	v10, err := validator.NewV10Validator()
	require.NoError(t, err)

	clk := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}

	signer, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"),
		Issuer:    "otpgate-test",
		Audiences: []string{"otpgate"},
		TTL:       time.Hour,
		Clock:     clk,
		UUID:      uid.NewUUID(),
	})
	require.NoError(t, err)

	snow, err := uid.NewSnowflake(1)
	require.NoError(t, err)

	repo := newFakeRepo()
	msg := &fakeMessaging{}
	lim := &fakeLimiter{}

	uc := New(Dependency{
		RepoDB:        repo,
		RepoMessaging: msg,
		Cooldown:      lim,
		Validator:     v10,
		Config:        cfg,
		Bcrypt:        hash.NewBcrypt(4, ""),
		Passcode:      passcode.New(6),
		UID:           snow,
		Clock:         clk,
		JWT:           signer,
		Instrument:    instrument.NewNoop(),
		Goroutine:     goroutine.NewManager(4),
	})

	return &fixture{uc: uc, repo: repo, clock: clk, msg: msg, lim: lim, jwt: signer}
}

func (f *fixture) issue(t *testing.T, identity string) string {
	t.Helper()
	out, err := f.uc.ChallengeRequest(context.Background(), ChallengeRequestInput{Identity: identity})
	require.NoError(t, err)
	require.True(t, out.Delivered)
	return f.msg.lastCode(t)
}

func requireBusinessCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()
	require.Error(t, err)
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, code, gerr.Code())
}

func authContext(t *testing.T, f *fixture, p *entity.Principal) context.Context {
	t.Helper()
	return jwt.SetAuth(context.Background(), jwt.Claims{
		PrincipalID: p.ID,
		Identity:    p.Identity,
		Role:        p.Role.String(),
	})
}

func TestChallengeRequestCreatesPrincipalAndChallenge(t *testing.T) {
	f := newFixture(t)

	out, err := f.uc.ChallengeRequest(context.Background(), ChallengeRequestInput{Identity: "Alice@Example.com "})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", out.Identity)
	require.True(t, out.Delivered)
	require.Equal(t, f.clock.Now().Add(10*time.Minute), out.ExpiresAt)

	p, err := f.repo.GetPrincipalByIdentity(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, entity.RoleUser, p.Role)
	require.False(t, p.Verified)

	ch, err := f.repo.GetChallenge(context.Background(), p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, ch.Attempts)
	require.NotEmpty(t, ch.CodeHash)
}

func TestChallengeRequestInvalidIdentity(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.ChallengeRequest(context.Background(), ChallengeRequestInput{Identity: "not-an-identity"})
	requireBusinessCode(t, err, goerror.CodeInvalidInput)
}

func TestChallengeRequestThrottled(t *testing.T) {
	f := newFixture(t)
	f.lim.denied = true

	_, err := f.uc.ChallengeRequest(context.Background(), ChallengeRequestInput{Identity: "alice@example.com"})
	requireBusinessCode(t, err, goerror.CodeTooManyRequest)
}

func TestChallengeRequestDeliveryFailureNonFatal(t *testing.T) {
	f := newFixture(t)
	f.msg.fail = true

	out, err := f.uc.ChallengeRequest(context.Background(), ChallengeRequestInput{Identity: "alice@example.com"})
	require.NoError(t, err)
	require.False(t, out.Delivered)

	// The challenge was stored despite the delivery failure.
	p, err := f.repo.GetPrincipalByIdentity(context.Background(), "alice@example.com")
	require.NoError(t, err)
	_, err = f.repo.GetChallenge(context.Background(), p.ID)
	require.NoError(t, err)
}

func TestVerifyWithoutChallenge(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "nobody@example.com", Code: "123456"})
	requireBusinessCode(t, err, goerror.CodeUnauthorized)
}

func TestVerifySuccessThenReplayFails(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t, "alice@example.com")

	out, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "alice@example.com", Code: code})
	require.NoError(t, err)
	require.NotEmpty(t, out.Token)

	claims, err := f.jwt.Verify(out.Token)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", claims.Identity)
	require.Equal(t, "user", claims.Role)

	p, err := f.repo.GetPrincipalByIdentity(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.True(t, p.Verified)

	// Same code again: the challenge was consumed.
	_, err = f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "alice@example.com", Code: code})
	requireBusinessCode(t, err, goerror.CodeUnauthorized)
}

func TestVerifyWrongCodeIncrementsAttempts(t *testing.T) {
	f := newFixture(t)
	f.issue(t, "alice@example.com")

	_, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "alice@example.com", Code: "000001"})
	requireBusinessCode(t, err, goerror.CodeUnauthorized)

	p, err := f.repo.GetPrincipalByIdentity(context.Background(), "alice@example.com")
	require.NoError(t, err)
	ch, err := f.repo.GetChallenge(context.Background(), p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, ch.Attempts)
}

func TestVerifyExhaustedRejectsCorrectCode(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t, "alice@example.com")

	for range 3 {
		_, err := f.uc.ChallengeVerify(context.Background(),
			ChallengeVerifyInput{Identity: "alice@example.com", Code: "000001"})
		requireBusinessCode(t, err, goerror.CodeUnauthorized)
	}

	// Fourth submission with the correct code still fails.
	_, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "alice@example.com", Code: code})
	requireBusinessCode(t, err, goerror.CodeTooManyRequest)

	p, err := f.repo.GetPrincipalByIdentity(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.False(t, p.Verified)
}

func TestVerifyExpired(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t, "alice@example.com")

	f.clock.Advance(10*time.Minute + time.Second)

	_, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "alice@example.com", Code: code})
	requireBusinessCode(t, err, goerror.CodeUnauthorized)

	// Expiry detection cleared the challenge.
	p, err := f.repo.GetPrincipalByIdentity(context.Background(), "alice@example.com")
	require.NoError(t, err)
	_, err = f.repo.GetChallenge(context.Background(), p.ID)
	require.ErrorIs(t, err, goerror.ErrNotFound)
}

func TestVerifyAtExactExpiryIsExpired(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t, "alice@example.com")

	f.clock.Advance(10 * time.Minute)

	_, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "alice@example.com", Code: code})
	requireBusinessCode(t, err, goerror.CodeUnauthorized)
}

func TestReissueInvalidatesPriorCode(t *testing.T) {
	f := newFixture(t)
	oldCode := f.issue(t, "alice@example.com")
	newCode := f.issue(t, "alice@example.com")

	if oldCode != newCode {
		_, err := f.uc.ChallengeVerify(context.Background(),
			ChallengeVerifyInput{Identity: "alice@example.com", Code: oldCode})
		requireBusinessCode(t, err, goerror.CodeUnauthorized)
	}

	out, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "alice@example.com", Code: newCode})
	require.NoError(t, err)
	require.NotEmpty(t, out.Token)
}

func TestReissueResetsAttempts(t *testing.T) {
	f := newFixture(t)
	f.issue(t, "alice@example.com")

	for range 3 {
		_, err := f.uc.ChallengeVerify(context.Background(),
			ChallengeVerifyInput{Identity: "alice@example.com", Code: "000001"})
		require.Error(t, err)
	}

	code := f.issue(t, "alice@example.com")
	out, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "alice@example.com", Code: code})
	require.NoError(t, err)
	require.NotEmpty(t, out.Token)
}

func TestConcurrentWrongCodesCountEachAttempt(t *testing.T) {
	f := newFixture(t)
	f.issue(t, "alice@example.com")

	var wg sync.WaitGroup
	for i := range 3 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.uc.ChallengeVerify(context.Background(), ChallengeVerifyInput{
				Identity: "alice@example.com",
				Code:     "00000" + string(rune('1'+i)),
			})
		}(i)
	}
	wg.Wait()

	p, err := f.repo.GetPrincipalByIdentity(context.Background(), "alice@example.com")
	require.NoError(t, err)
	ch, err := f.repo.GetChallenge(context.Background(), p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, ch.Attempts)
}

func TestProfileRoundTrip(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t, "alice@example.com")
	_, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "alice@example.com", Code: code})
	require.NoError(t, err)

	p, err := f.repo.GetPrincipalByIdentity(context.Background(), "alice@example.com")
	require.NoError(t, err)
	ctx := authContext(t, f, p)

	require.NoError(t, f.uc.ProfileUpdate(ctx, ProfileUpdateInput{
		Name:        "Alice Anderson",
		Gender:      "female",
		DateOfBirth: "1990-04-12",
		City:        "Springfield",
		Country:     "US",
	}))

	out, err := f.uc.Profile(ctx, ProfileInput{})
	require.NoError(t, err)
	require.Equal(t, "Alice Anderson", out.Name)
	require.Equal(t, "female", out.Gender)
	require.Equal(t, "Springfield", out.City)
	require.True(t, out.Verified)
	require.NotNil(t, out.DateOfBirth)
}

func TestPrincipalCreateRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.issue(t, "alice@example.com")
	p, err := f.repo.GetPrincipalByIdentity(context.Background(), "alice@example.com")
	require.NoError(t, err)

	_, err = f.uc.PrincipalCreate(authContext(t, f, p), PrincipalCreateInput{
		Identity: "bob@example.com",
		Role:     "admin",
	})
	requireBusinessCode(t, err, goerror.CodeForbidden)
}

func TestPrincipalCreateByAdmin(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.uc.SeedAdmin(context.Background()))

	admin, err := f.repo.GetPrincipalByIdentity(context.Background(), "root@example.com")
	require.NoError(t, err)
	require.Equal(t, entity.RoleAdmin, admin.Role)
	require.True(t, admin.Verified)

	out, err := f.uc.PrincipalCreate(authContext(t, f, admin), PrincipalCreateInput{
		Identity: "bob@example.com",
		Role:     "admin",
	})
	require.NoError(t, err)
	require.Equal(t, "admin", out.Role)

	// Duplicate identity conflicts.
	_, err = f.uc.PrincipalCreate(authContext(t, f, admin), PrincipalCreateInput{
		Identity: "bob@example.com",
		Role:     "user",
	})
	requireBusinessCode(t, err, goerror.CodeConflict)
}

func TestRoleLoadedFreshFromStore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.uc.SeedAdmin(context.Background()))
	admin, err := f.repo.GetPrincipalByIdentity(context.Background(), "root@example.com")
	require.NoError(t, err)

	// Token claims say admin, but the store was demoted after issuance.
	ctx := authContext(t, f, admin)
	f.repo.mu.Lock()
	f.repo.principals[admin.ID].Role = entity.RoleUser
	f.repo.mu.Unlock()

	_, err = f.uc.PrincipalList(ctx, PrincipalListInput{})
	requireBusinessCode(t, err, goerror.CodeForbidden)
}

func TestPrincipalGetAndList(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.uc.SeedAdmin(context.Background()))
	admin, err := f.repo.GetPrincipalByIdentity(context.Background(), "root@example.com")
	require.NoError(t, err)
	ctx := authContext(t, f, admin)

	got, err := f.uc.PrincipalGet(ctx, PrincipalGetInput{ID: admin.ID})
	require.NoError(t, err)
	require.Equal(t, "root@example.com", got.Identity)

	_, err = f.uc.PrincipalGet(ctx, PrincipalGetInput{ID: 999})
	requireBusinessCode(t, err, goerror.CodeNotFound)

	list, err := f.uc.PrincipalList(ctx, PrincipalListInput{})
	require.NoError(t, err)
	require.EqualValues(t, 1, list.Total)
}

func TestVerifyPublishesEventAfterRequestContextEnds(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t, "alice@example.com")

	// The server cancels the request context once the handler returns; the
	// verified event must still go out.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := f.uc.ChallengeVerify(ctx,
		ChallengeVerifyInput{Identity: "alice@example.com", Code: code})
	require.NoError(t, err)
	require.NotEmpty(t, out.Token)

	require.NoError(t, f.uc.goroutine.Wait())

	f.msg.mu.Lock()
	defer f.msg.mu.Unlock()
	require.Len(t, f.msg.verified, 1)
	require.Equal(t, "alice@example.com", f.msg.verified[0].Identity)
}

func TestVerifyLargeAttemptLimitDoesNotWrap(t *testing.T) {
	f := newFixtureWithConfig(t, `
modules:
  auth:
    otp_digits: 6
    otp_ttl_minutes: 10
    max_attempts: 100000
    resend_cooldown_seconds: 0
    bootstrap_admin_email: root@example.com
`)
	code := f.issue(t, "alice@example.com")

	// A wrong code on a fresh challenge is a mismatch, not exhaustion.
	_, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "alice@example.com", Code: "000001"})
	requireBusinessCode(t, err, goerror.CodeUnauthorized)

	out, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "alice@example.com", Code: code})
	require.NoError(t, err)
	require.NotEmpty(t, out.Token)
}

func TestVerifyPhoneIdentity(t *testing.T) {
	f := newFixture(t)
	code := f.issue(t, "+14155550123")

	out, err := f.uc.ChallengeVerify(context.Background(),
		ChallengeVerifyInput{Identity: "+14155550123", Code: code})
	require.NoError(t, err)
	require.NotEmpty(t, out.Token)
}
