package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"formini/internal/auth"
	"formini/internal/config"
	"formini/internal/db"
	"formini/internal/logging"
	"formini/internal/model"
	"formini/internal/repository"
	"formini/internal/service"
)

func main() {
	var in service.RegisterInput
	var role string
	flag.StringVar(&in.Email, "email", os.Getenv("SEED_EMAIL"), "account email")
	flag.StringVar(&in.Password, "password", os.Getenv("SEED_PASSWORD"), "account password")
	flag.StringVar(&in.FirstName, "first-name", "Admin", "first name")
	flag.StringVar(&in.LastName, "last-name", "Formini", "last name")
	flag.StringVar(&role, "role", string(model.RoleAdmin), "role: student, instructor or admin")
	flag.Parse()
	in.Role = model.Role(role)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Error(ctx, "connect database", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB, false); err != nil {
		logger.Error(ctx, "migrate database", "error", err)
		os.Exit(1)
	}

	account, created, err := seedAccount(ctx, repository.NewAccountRepository(gormDB), auth.NewBcryptHasher(cfg.BcryptCost), in, time.Now().UTC())
	if err != nil {
		logger.Error(ctx, "seed account", "email", in.Email, "error", err)
		os.Exit(1)
	}
	if !created {
		logger.Info(ctx, "account already exists, left unchanged", "account_id", account.ID, "email", account.Email)
		return
	}
	logger.Info(ctx, "verified account created", "account_id", account.ID, "email", account.Email, "role", account.Role)
}

// seedAccount creates a verified, active account unless the email is already registered,
// in which case the existing account is returned untouched.
func seedAccount(ctx context.Context, repo repository.AccountRepository, hasher auth.PasswordHasher, in service.RegisterInput, now time.Time) (*model.Account, bool, error) {
	in, err := service.PrepareRegistration(in)
	if err != nil {
		return nil, false, err
	}

	var account *model.Account
	created := false
	err = repo.WithTransaction(ctx, func(ctx context.Context, tx repository.AccountRepository) error {
		existing, err := tx.FindByEmail(ctx, in.Email)
		if err == nil {
			account = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		hash, err := hasher.Hash(in.Password)
		if err != nil {
			return err
		}
		account = &model.Account{
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
			Status:       model.StatusActive,
			IsVerified:   true,
			CreatedAt:    now,
		}
		if err := tx.Create(ctx, account); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return account, created, nil
}
