package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"formini/internal/model"
)

var (
	// ErrNotFound is returned when no account matches the lookup or the update condition.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned when the unique email index rejects an insert.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrLocked is returned when a login success cannot be recorded because the account
	// was locked concurrently.
	ErrLocked = errors.New("account locked")
)

// AccountRepository defines account persistence operations. Every state transition is a
// single atomic statement or transaction, so concurrent requests on the same account are
// serialized by the database rather than by the caller.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// ConsumeVerificationCode marks the account verified and clears its code, provided the
	// code matches and has not expired at now. Returns ErrNotFound otherwise.
	ConsumeVerificationCode(ctx context.Context, email, code string, now time.Time) (*model.Account, error)
	// ReplaceVerificationCode overwrites the code of an unverified account.
	ReplaceVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) (*model.Account, error)

	ResetExpiredLock(ctx context.Context, id uuid.UUID, now time.Time) error
	// RecordLoginFailure increments the failure counter and opens the lockout window once the
	// counter reaches maxAttempts. Returns the account as stored after the update.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockFor time.Duration) (*model.Account, error)
	// RecordLoginSuccess resets the counter and lock and stamps the login time unless the
	// account is locked at now, in which case it returns ErrLocked.
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, now time.Time) error

	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AccountRepository) error) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create creates a new account.
func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// FindByID finds an account by ID.
func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

// FindByEmail finds an account by its normalized email.
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func (r *accountRepository) ConsumeVerificationCode(ctx context.Context, email, code string, now time.Time) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Account{}).
			Where("email = ? AND verification_code = ? AND code_expires_at > ? AND is_verified = ?", email, code, now, false).
			Updates(map[string]interface{}{
				"is_verified":       true,
				"verification_code": nil,
				"code_expires_at":   nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("email = ?", email).First(&account).Error
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func (r *accountRepository) ReplaceVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Account{}).
			Where("email = ? AND is_verified = ?", email, false).
			Updates(map[string]interface{}{
				"verification_code": code,
				"code_expires_at":   expiresAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("email = ?", email).First(&account).Error
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func (r *accountRepository) ResetExpiredLock(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ? AND locked_until IS NOT NULL AND locked_until <= ?", id, now).
		Updates(map[string]interface{}{
			"login_attempts": 0,
			"locked_until":   nil,
		}).Error
}

func (r *accountRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockFor time.Duration) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Account{}).
			Where("id = ?", id).
			UpdateColumn("login_attempts", gorm.Expr("login_attempts + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		// Only an account that is not already inside a window gets a new one, so
		// concurrent failures cannot keep extending the lock.
		if err := tx.Model(&model.Account{}).
			Where("id = ? AND login_attempts >= ? AND (locked_until IS NULL OR locked_until <= ?)", id, maxAttempts, now).
			UpdateColumn("locked_until", now.Add(lockFor)).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&account).Error
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func (r *accountRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ? AND (locked_until IS NULL OR locked_until <= ?)", id, now).
		Updates(map[string]interface{}{
			"login_attempts": 0,
			"locked_until":   nil,
			"last_login_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLocked
	}
	return nil
}

// WithTransaction executes a function within a database transaction.
func (r *accountRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AccountRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &accountRepository{db: tx}
		return fn(ctx, txRepo)
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// isDuplicateKey recognizes unique violations. gorm translates them when the dialect
// supports it; the message checks cover drivers that do not.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}
