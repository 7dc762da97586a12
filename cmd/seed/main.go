// Command seed creates demo clients and merchants with funded accounts and a
// few sample transfers. Running it twice leaves existing users untouched.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"paywave/internal/config"
	"paywave/internal/logging"
	"paywave/internal/models"
	"paywave/internal/repositories"
	"paywave/internal/services/transfer"
	"paywave/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const demoPassword = "password123"

type seedUser struct {
	name    string
	email   string
	role    string
	balance string
}

var users = []seedUser{
	{"John Doe", "john@example.com", models.RoleClient, "1500"},
	{"Jane Smith", "jane@example.com", models.RoleClient, "2000"},
	{"Coffee Store", "store@example.com", models.RoleMerchant, "5000"},
	{"Corner Cafe", "cafe@example.com", models.RoleMerchant, "3000"},
}

var sampleTransfers = []struct {
	from, to, amount, kind, description string
}{
	{"john@example.com", "jane@example.com", "25.50", models.TransactionTypeP2PTransfer, "Dinner split"},
	{"jane@example.com", "store@example.com", "4.75", models.TransactionTypeMerchantPayment, "Flat white"},
	{"john@example.com", "cafe@example.com", "12.00", models.TransactionTypeMerchantPayment, "Lunch"},
}

func main() {
	os.Exit(seed())
}

func seed() int {
	config.LoadEnv()
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Printf("failed to build logger: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("seed failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := repositories.InitDB(cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = repositories.CloseDB(db) }()

	ctx := context.Background()
	store := repositories.NewGormStore(db)

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ids := make(map[string]uint, len(users))
	created := 0
	for _, su := range users {
		u, isNew, err := ensureUser(ctx, store, su, string(hash))
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", su.email, err)
		}
		ids[su.email] = u.ID
		if isNew {
			created++
		}
		logger.Info("user ready", zap.String("email", u.Email), zap.String("role", u.Role), zap.Bool("created", isNew))
	}

	// Sample history only on a fresh database.
	if created == len(users) {
		engine := transfer.NewService(store, transfer.Config{
			MaxAmount: cfg.TransferMaxAmount,
			Timeout:   cfg.TransferTimeout,
		}, logger, nil, nil)

		for _, st := range sampleTransfers {
			_, err := engine.Transfer(ctx, transfer.Request{
				SenderID:    ids[st.from],
				Receiver:    st.to,
				Amount:      decimal.RequireFromString(st.amount),
				Kind:        st.kind,
				Description: st.description,
			})
			if err != nil {
				return fmt.Errorf("failed to seed transfer %s -> %s: %w", st.from, st.to, err)
			}
		}
	}

	if cfg.IsProduction() {
		return nil
	}
	for _, su := range users {
		token, err := utils.GenerateToken(cfg.JWTSecret, models.UserClaims{
			UserID: ids[su.email],
			Email:  su.email,
			Role:   su.role,
		}, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("failed to sign demo token: %w", err)
		}
		logger.Info("demo token", zap.String("email", su.email), zap.String("token", token))
	}
	return nil
}

// ensureUser creates the user and its funded account, or returns the
// existing user when the email is already registered.
func ensureUser(ctx context.Context, store repositories.Store, su seedUser, passwordHash string) (*models.User, bool, error) {
	u := &models.User{
		Name:         su.name,
		Email:        su.email,
		Role:         su.role,
		PasswordHash: passwordHash,
	}

	err := store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		return tx.Accounts().Create(ctx, &models.Account{
			UserID:  u.ID,
			Balance: decimal.RequireFromString(su.balance),
		})
	})
	if errors.Is(err, repositories.ErrEmailTaken) {
		existing, ferr := store.Users().FindByEmail(ctx, su.email)
		return existing, false, ferr
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}
