package usecase

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/otpgate/otpgate/internal/audit/entity"
	authentity "github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/config"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/otpgate/otpgate/internal/pkg/jwt"
	"github.com/otpgate/otpgate/internal/pkg/storage"
	"github.com/otpgate/otpgate/internal/pkg/uid"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
modules:
  audit:
    export_bucket: audit-test
    export_url_ttl_minutes: 15
`

type fakeRepo struct {
	mu    sync.Mutex
	logs  []entity.APILog
	roles map[int64]authentity.Role
}

func (r *fakeRepo) CreateLog(_ context.Context, in entity.APILog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, in)
	return nil
}

func (r *fakeRepo) GetLogList(_ context.Context, filter entity.LogListFilter) ([]entity.APILog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]entity.APILog, 0, len(r.logs))
	for _, log := range r.logs {
		if !filter.From.IsZero() && log.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !log.CreatedAt.Before(filter.To) {
			continue
		}
		matched = append(matched, log)
	}

	total := int64(len(matched))
	start := int(filter.Page)
	if start > len(matched) {
		return nil, total, nil
	}
	end := min(start+int(filter.Size), len(matched))
	return matched[start:end], total, nil
}

func (r *fakeRepo) GetPrincipalRole(_ context.Context, principalID int64) (authentity.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[principalID]
	if !ok {
		return authentity.RoleUnknown, goerror.ErrNotFound
	}
	return role, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *fakeStorage) PutObject(_ context.Context, bucket, key string, r io.Reader, _ storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[bucket+"/"+key] = data
	return storage.ObjectInfo{Bucket: bucket, Key: key, Size: int64(len(data))}, nil
}

func (s *fakeStorage) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, storage.ObjectInfo{}, goerror.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Bucket: bucket, Key: key}, nil
}

func (s *fakeStorage) DeleteObject(context.Context, string, string) error { return nil }

func (s *fakeStorage) ListObjects(context.Context, string, string, int32) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (s *fakeStorage) PresignGet(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + bucket + "/" + key, nil
}

func (s *fakeStorage) Close() error { return nil }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newFixture(t *testing.T) (*Usecase, *fakeRepo, *fakeStorage) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfigYAML))
	require.NoError(t, err)

	snow, err := uid.NewSnowflake(2)
	require.NoError(t, err)

	oid, err := uid.NewObjectIDGenerator()
	require.NoError(t, err)

	repo := &fakeRepo{roles: map[int64]authentity.Role{
		1: authentity.RoleAdmin,
		2: authentity.RoleUser,
	}}
	store := &fakeStorage{}

	uc := New(Dependency{
		RepoDB:     repo,
		Storage:    store,
		Config:     cfg,
		UID:        snow,
		OID:        oid,
		Clock:      fixedClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)},
		Instrument: instrument.NewNoop(),
	})

	return uc, repo, store
}

func adminCtx() context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{PrincipalID: 1, Role: "admin"})
}

func userCtx() context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{PrincipalID: 2, Role: "user"})
}

func TestRecordPersistsLog(t *testing.T) {
	uc, repo, _ := newFixture(t)

	uc.Record(context.Background(), RecordInput{
		Method:        "POST",
		Route:         "/api/v1/auth/challenge",
		URI:           "/api/v1/auth/challenge",
		IP:            "203.0.113.7",
		CorrelationID: "cid-1",
		Status:        200,
		LatencyMS:     12,
	})

	require.Len(t, repo.logs, 1)
	require.Equal(t, "/api/v1/auth/challenge", repo.logs[0].Route)
	require.Equal(t, "203.0.113.7", repo.logs[0].Metadata.GetString("ip"))
	require.NotZero(t, repo.logs[0].ID)
}

func TestLogListRequiresAdmin(t *testing.T) {
	uc, _, _ := newFixture(t)

	_, err := uc.LogList(context.Background(), LogListInput{})
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, goerror.CodeUnauthorized, gerr.Code())

	_, err = uc.LogList(userCtx(), LogListInput{})
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, goerror.CodeForbidden, gerr.Code())
}

func TestLogListRoleLoadedFresh(t *testing.T) {
	uc, repo, _ := newFixture(t)

	// Claims assert admin but the store says user.
	ctx := jwt.SetAuth(context.Background(), jwt.Claims{PrincipalID: 2, Role: "admin"})
	_, err := uc.LogList(ctx, LogListInput{})
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, goerror.CodeForbidden, gerr.Code())

	// Promotion in the store takes effect without a new token.
	repo.mu.Lock()
	repo.roles[2] = authentity.RoleAdmin
	repo.mu.Unlock()
	_, err = uc.LogList(ctx, LogListInput{})
	require.NoError(t, err)
}

func TestLogListPaging(t *testing.T) {
	uc, repo, _ := newFixture(t)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range 25 {
		repo.logs = append(repo.logs, entity.APILog{
			ID:        int64(i + 1),
			Method:    "GET",
			Route:     "/api/v1/auth/profile",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	out, err := uc.LogList(adminCtx(), LogListInput{Size: 10, Page: 3})
	require.NoError(t, err)
	require.EqualValues(t, 25, out.Total)
	require.Len(t, out.Logs, 5)
	require.EqualValues(t, 3, out.Page)
}

func TestLogExportWritesObjectAndPresigns(t *testing.T) {
	uc, repo, store := newFixture(t)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range 3 {
		repo.logs = append(repo.logs, entity.APILog{
			ID:        int64(i + 1),
			Method:    "POST",
			Route:     "/api/v1/auth/verify",
			Status:    401,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	out, err := uc.LogExport(adminCtx(), LogExportInput{})
	require.NoError(t, err)
	require.EqualValues(t, 3, out.Count)
	require.True(t, strings.HasPrefix(out.ObjectKey, "audit-exports/"))
	require.Contains(t, out.DownloadURL, "https://storage.test/audit-test/")

	data, ok := store.objects["audit-test/"+out.ObjectKey]
	require.True(t, ok)
	require.Equal(t, 3, strings.Count(string(data), "\n"))
	require.Contains(t, string(data), `"/api/v1/auth/verify"`)
}

func TestLogExportEmptyRange(t *testing.T) {
	uc, _, _ := newFixture(t)

	out, err := uc.LogExport(adminCtx(), LogExportInput{
		From: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.EqualValues(t, 0, out.Count)
}

func TestLogExportForbiddenForUser(t *testing.T) {
	uc, _, _ := newFixture(t)

	_, err := uc.LogExport(userCtx(), LogExportInput{})
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, goerror.CodeForbidden, gerr.Code())
}
