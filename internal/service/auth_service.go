package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"formini/internal/auth"
	apperrors "formini/internal/errors"
	"formini/internal/logging"
	"formini/internal/metrics"
	"formini/internal/model"
	"formini/internal/notify"
	"formini/internal/repository"
)

const (
	// CodeTTL is how long a verification code stays valid after generation.
	CodeTTL = 10 * time.Minute
	// MaxLoginAttempts is the number of consecutive failures that opens a lockout window.
	MaxLoginAttempts = 5
	// LockoutWindow is how long login is refused once MaxLoginAttempts is reached.
	LockoutWindow = 30 * time.Minute

	defaultNotifyTimeout = 15 * time.Second
)

// RegisterInput carries the registration request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      model.Role
}

// RegisterResult is returned by Register. No token is issued before verification.
type RegisterResult struct {
	Account   model.PublicAccount
	EmailSent bool
}

// Session is a bearer token issued for a verified, active account.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   model.PublicAccount
}

// AuthService owns the account lifecycle: registration, email verification, code resend,
// login with lockout, and token revocation. Every error it returns is an *errors.Error.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Verify(ctx context.Context, email, code string) (*Session, error)
	ResendCode(ctx context.Context, email string) (emailSent bool, err error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
	CurrentAccount(ctx context.Context, accountID uuid.UUID) (*model.PublicAccount, error)
}

type authService struct {
	accountRepo repository.AccountRepository
	hasher      auth.PasswordHasher
	jwtService  *auth.JWTService
	tokenStore  auth.TokenStoreInterface
	notifier    notify.Notifier
	logger      logging.Logger
	metrics     *metrics.Metrics

	codes         CodeGenerator
	now           func() time.Time
	notifyTimeout time.Duration
}

// Option customizes the service.
type Option func(*authService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *authService) { s.now = now }
}

// WithCodeGenerator overrides the verification code source.
func WithCodeGenerator(g CodeGenerator) Option {
	return func(s *authService) { s.codes = g }
}

// WithNotifyTimeout bounds each delivery attempt.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *authService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	accountRepo repository.AccountRepository,
	hasher auth.PasswordHasher,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	notifier notify.Notifier,
	logger logging.Logger,
	m *metrics.Metrics,
	opts ...Option,
) AuthService {
	s := &authService{
		accountRepo:   accountRepo,
		hasher:        hasher,
		jwtService:    jwtService,
		tokenStore:    tokenStore,
		notifier:      notifier,
		logger:        logger.With("component", "auth"),
		metrics:       m,
		codes:         NewRandomCodeGenerator(),
		now:           time.Now,
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an unverified account and sends it a verification code.
func (s *authService) Register(ctx context.Context, in RegisterInput) (result *RegisterResult, err error) {
	defer s.observe(ctx, "register", &err)

	in, err = PrepareRegistration(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.accountRepo.FindByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrDuplicateAccount
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	code, err := s.codes.Generate()
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	now := s.clock()
	expiresAt := now.Add(CodeTTL)

	account := &model.Account{
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Email:            in.Email,
		PasswordHash:     hash,
		Role:             in.Role,
		Status:           model.StatusActive,
		IsVerified:       false,
		VerificationCode: &code,
		CodeExpiresAt:    &expiresAt,
		CreatedAt:        now,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		// The unique index decides races between concurrent registrations.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.ErrDuplicateAccount
		}
		return nil, apperrors.Internal(err)
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID, "role", account.Role)
	sent := s.deliver(ctx, account.Email, code, expiresAt)

	return &RegisterResult{Account: account.Public(), EmailSent: sent}, nil
}

// Verify consumes a live verification code and signs the account in.
func (s *authService) Verify(ctx context.Context, email, code string) (session *Session, err error) {
	defer s.observe(ctx, "verify", &err)

	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if err := requireFields("email", email, "code", code); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.ConsumeVerificationCode(ctx, email, code, s.clock())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.Info(ctx, "account verified", "account_id", account.ID)
	return s.newSession(account)
}

// ResendCode replaces the code of an unverified account. Any earlier code stops working.
func (s *authService) ResendCode(ctx context.Context, email string) (emailSent bool, err error) {
	defer s.observe(ctx, "resend", &err)

	email = normalizeEmail(email)
	if err := requireFields("email", email); err != nil {
		return false, err
	}

	code, err := s.codes.Generate()
	if err != nil {
		return false, apperrors.Internal(err)
	}
	expiresAt := s.clock().Add(CodeTTL)

	account, err := s.accountRepo.ReplaceVerificationCode(ctx, email, code, expiresAt)
	if errors.Is(err, repository.ErrNotFound) {
		return false, apperrors.ErrAccountNotFoundOrAlreadyVerified
	}
	if err != nil {
		return false, apperrors.Internal(err)
	}

	s.logger.Info(ctx, "verification code reissued", "account_id", account.ID)
	return s.deliver(ctx, account.Email, code, expiresAt), nil
}

// Login checks, in order: existence, open lock, expired lock reset, password, status,
// verification. Only then is the failure counter cleared and a token issued.
func (s *authService) Login(ctx context.Context, email, password string) (session *Session, err error) {
	defer s.observe(ctx, "login", &err)

	email = normalizeEmail(email)
	if err := requireFields("email", email, "password", password); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := s.clock()
	if account.IsLocked(now) {
		return nil, apperrors.ErrAccountLocked
	}
	if account.LockExpired(now) {
		if err := s.accountRepo.ResetExpiredLock(ctx, account.ID, now); err != nil {
			return nil, apperrors.Internal(err)
		}
		account.LoginAttempts = 0
		account.LockedUntil = nil
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrMismatchedPassword) {
			return nil, apperrors.Internal(err)
		}
		updated, err := s.accountRepo.RecordLoginFailure(ctx, account.ID, now, MaxLoginAttempts, LockoutWindow)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if updated.IsLocked(now) {
			s.logger.Warn(ctx, "account locked after repeated login failures",
				"account_id", account.ID, "attempts", updated.LoginAttempts, "locked_until", updated.LockedUntil.Format(time.RFC3339))
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	if account.Status != model.StatusActive {
		return nil, apperrors.ErrAccountSuspended
	}
	if !account.IsVerified {
		return nil, apperrors.ErrAccountNotVerified
	}

	if err := s.accountRepo.RecordLoginSuccess(ctx, account.ID, now); err != nil {
		if errors.Is(err, repository.ErrLocked) {
			return nil, apperrors.ErrAccountLocked
		}
		return nil, apperrors.Internal(err)
	}
	account.LoginAttempts = 0
	account.LockedUntil = nil
	account.LastLoginAt = &now

	return s.newSession(account)
}

// Logout revokes the token described by claims until its natural expiry.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) (err error) {
	defer s.observe(ctx, "logout", &err)

	if claims == nil || claims.ExpiresAt == nil {
		return apperrors.ErrInvalidToken
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.tokenStore.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperrors.Internal(err)
	}
	s.logger.Info(ctx, "token revoked", "account_id", claims.AccountID)
	return nil
}

// Authenticate validates a bearer token and rejects revoked ones.
func (s *authService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtService.Validate(token)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	revoked, err := s.tokenStore.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if revoked {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// CurrentAccount returns the projection of the token's account. A token whose account no
// longer exists is treated as invalid.
func (s *authService) CurrentAccount(ctx context.Context, accountID uuid.UUID) (*model.PublicAccount, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrInvalidToken
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	public := account.Public()
	return &public, nil
}

func (s *authService) newSession(account *model.Account) (*Session, error) {
	issued, err := s.jwtService.Issue(account.ID, account.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &Session{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		Account:   account.Public(),
	}, nil
}

// deliver attempts to send the code and reports whether delivery was confirmed. The
// attempt is detached from request cancellation; an unconfirmed delivery logs the code so
// an operator can complete the flow by hand.
// clock returns the current time at the microsecond precision the store keeps.
func (s *authService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *authService) deliver(ctx context.Context, email, code string, expiresAt time.Time) bool {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	err := s.notifier.SendVerificationCode(dctx, email, code, expiresAt)
	s.metrics.Delivery(err == nil)
	if err != nil {
		s.logger.Warn(ctx, "verification code not delivered",
			"email", email, "code", code, "expires_at", expiresAt.Format(time.RFC3339), "error", err)
		return false
	}
	s.logger.Info(ctx, "verification code delivered", "email", email)
	return true
}

// observe records the outcome of an operation and logs internal failures with their cause.
func (s *authService) observe(ctx context.Context, operation string, errp *error) {
	err := *errp
	if err == nil {
		s.metrics.Operation(operation, "ok")
		return
	}
	kind := apperrors.KindOf(err)
	s.metrics.Operation(operation, string(kind))
	if kind == apperrors.KindInternal {
		cause := errors.Unwrap(err)
		if cause == nil {
			cause = err
		}
		s.logger.Error(ctx, "operation failed", "operation", operation, "error", cause)
	}
}
