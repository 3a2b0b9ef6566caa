package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/domain/account"
	repo "github.com/amirasaad/householdledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewAccountRepository creates a new GORM-backed account repository.
func NewAccountRepository(db *gorm.DB) repo.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *accountRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *accountRepository) get(db *gorm.DB, id uuid.UUID) (*account.Account, error) {
	var m Account
	err := WrapError(func() error {
		return db.Where("id = ?", id).First(&m).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return mapAccountToDomain(&m), nil
}

func (r *accountRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*account.Account, error) {
	if len(ids) == 0 {
		return []*account.Account{}, nil
	}
	var models []Account
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error
	}); err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*Account, len(models))
	for i := range models {
		byID[models[i].ID] = &models[i]
	}
	out := make([]*account.Account, 0, len(models))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, mapAccountToDomain(m))
		}
	}
	return out, nil
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	// Unscoped so a tombstoned row with the same id still counts.
	var n int64
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).Unscoped().Model(&Account{}).
			Where("id = ?", a.ID).Count(&n).Error
	}); err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrAlreadyExists
	}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(mapAccountToModel(a)).Error
	})
}

func (r *accountRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	var affected int64
	err := WrapError(func() error {
		res := r.db.WithContext(ctx).Model(&Account{}).
			Where("id = ?", id).
			Updates(map[string]any{"name": name, "updated_at": time.Now().UTC()})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return atomic(ctx, r.db, r.inTx, func(tx *gorm.DB) error {
		if err := WrapError(func() error {
			return tx.Where("account_id = ?", id).Delete(&Membership{}).Error
		}); err != nil {
			return err
		}
		if err := WrapError(func() error {
			return tx.Where("account_id = ?", id).Delete(&Transaction{}).Error
		}); err != nil {
			return err
		}
		var affected int64
		if err := WrapError(func() error {
			res := tx.Where("id = ?", id).Delete(&Account{})
			affected = res.RowsAffected
			return res.Error
		}); err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrAccountNotFound
		}
		return nil
	})
}

// atomic runs fn in a database transaction unless the caller already holds
// one.
func atomic(ctx context.Context, db *gorm.DB, inTx bool, fn func(tx *gorm.DB) error) error {
	if inTx {
		return fn(db.WithContext(ctx))
	}
	return db.WithContext(ctx).Transaction(fn)
}
