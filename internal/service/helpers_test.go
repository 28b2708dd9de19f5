package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"formini/internal/auth"
	"formini/internal/db"
	"formini/internal/logging"
	"formini/internal/metrics"
	"formini/internal/repository"
)

var baseTime = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier remembers the last code generated for each address, delivered or not.
type recordingNotifier struct {
	mu    sync.Mutex
	fail  bool
	codes map[string]string
	calls int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{codes: make(map[string]string)}
}

func (n *recordingNotifier) SendVerificationCode(_ context.Context, to, code string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.codes[to] = code
	if n.fail {
		return errors.New("smtp: connection refused")
	}
	return nil
}

func (n *recordingNotifier) code(to string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[to]
}

// memTokenStore is an in-process revocation list.
type memTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{revoked: make(map[string]time.Duration)}
}

func (s *memTokenStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = ttl
	return nil
}

func (s *memTokenStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[tokenID]
	return ok, nil
}

type harness struct {
	svc      AuthService
	repo     repository.AccountRepository
	db       *gorm.DB
	clock    *testClock
	notifier *recordingNotifier
	tokens   *memTokenStore
	jwt      *auth.JWTService
	logs     *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	gormDB, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB, false))
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	})

	h := &harness{
		repo:     repository.NewAccountRepository(gormDB),
		db:       gormDB,
		clock:    &testClock{now: baseTime},
		notifier: newRecordingNotifier(),
		tokens:   newMemTokenStore(),
		logs:     &bytes.Buffer{},
	}
	h.jwt = auth.NewJWTService("test-secret", 0).WithClock(h.clock.Now)
	h.svc = NewAuthService(
		h.repo,
		auth.NewBcryptHasher(bcrypt.MinCost),
		h.jwt,
		h.tokens,
		h.notifier,
		logging.New(h.logs, "logfmt", "debug"),
		metrics.NewNop(),
		WithClock(h.clock.Now),
	)
	return h
}

func (h *harness) register(t *testing.T, email, password string) *RegisterResult {
	t.Helper()
	res, err := h.svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) registerVerified(t *testing.T, email, password string) *RegisterResult {
	t.Helper()
	res := h.register(t, email, password)
	_, err := h.svc.Verify(context.Background(), email, h.notifier.code(res.Account.Email))
	require.NoError(t, err)
	return res
}
