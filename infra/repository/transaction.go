package repository

import (
	"context"
	"errors"

	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/domain/account"
	repo "github.com/amirasaad/householdledger/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type transactionRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewTransactionRepository creates a new GORM-backed transaction repository.
func NewTransactionRepository(db *gorm.DB) repo.TransactionRepository {
	return &transactionRepository{db: db}
}

// Append inserts tx and moves the account balance under a row lock on the
// account.
func (r *transactionRepository) Append(
	ctx context.Context,
	tx *account.Transaction,
) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := atomic(ctx, r.db, r.inTx, func(db *gorm.DB) error {
		var acct Account
		err := WrapError(func() error {
			return db.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", tx.AccountID).
				First(&acct).Error
		})
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		balance = acct.Balance.Add(tx.SignedAmount())
		if !account.InRange(balance) {
			return domain.ErrBalanceOutOfRange
		}
		if err := WrapError(func() error {
			return db.Create(mapTransactionToModel(tx)).Error
		}); err != nil {
			return err
		}
		return WrapError(func() error {
			return db.Model(&Account{}).
				Where("id = ?", tx.AccountID).
				Updates(map[string]any{"balance": balance, "updated_at": tx.CreatedAt}).Error
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (r *transactionRepository) ListByAccount(
	ctx context.Context,
	accountID uuid.UUID,
) ([]*account.Transaction, error) {
	return r.ListByAccounts(ctx, []uuid.UUID{accountID}, 0)
}

func (r *transactionRepository) ListByAccounts(
	ctx context.Context,
	accountIDs []uuid.UUID,
	limit int,
) ([]*account.Transaction, error) {
	if len(accountIDs) == 0 {
		return []*account.Transaction{}, nil
	}
	var models []Transaction
	err := WrapError(func() error {
		q := r.db.WithContext(ctx).
			Where("account_id IN ?", accountIDs).
			Order("created_at DESC").
			Order("seq DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&models).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]*account.Transaction, 0, len(models))
	for i := range models {
		out = append(out, mapTransactionToDomain(&models[i]))
	}
	return out, nil
}
