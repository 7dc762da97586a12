package repositories

import (
	"context"
	"fmt"
	"paywave/internal/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a gorm-backed LedgerRepository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *models.Transaction) (string, error) {
	prepareEntry(entry)

	// Sender and Receiver are read-only summaries; never upsert users from here.
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error; err != nil {
		return "", fmt.Errorf("failed to append ledger entry: %w", classify(err))
	}
	return entry.ID, nil
}

func (r *ledgerRepository) ListForUser(ctx context.Context, userID uint, page, pageSize int) ([]models.Transaction, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", classify(err))
	}

	var entries []models.Transaction
	err = r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", classify(err))
	}

	return entries, total, nil
}

func prepareEntry(entry *models.Transaction) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = models.TransactionStatusCompleted
	}
}
