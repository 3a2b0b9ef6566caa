package repository

import (
	"context"
	"errors"

	"github.com/amirasaad/householdledger/pkg/domain"
	repo "github.com/amirasaad/householdledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new GORM-backed membership repository.
func NewMembershipRepository(db *gorm.DB) repo.MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Add(ctx context.Context, username string, accountID uuid.UUID) error {
	err := WrapError(func() error {
		return r.db.WithContext(ctx).Create(&Membership{
			Username:  username,
			AccountID: accountID,
		}).Error
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return domain.ErrAlreadyMember
	}
	return err
}

func (r *membershipRepository) Remove(ctx context.Context, username string, accountID uuid.UUID) error {
	var affected int64
	if err := WrapError(func() error {
		res := r.db.WithContext(ctx).
			Where("username = ? AND account_id = ?", username, accountID).
			Delete(&Membership{})
		affected = res.RowsAffected
		return res.Error
	}); err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotAMember
	}
	return nil
}

func (r *membershipRepository) Exists(ctx context.Context, username string, accountID uuid.UUID) (bool, error) {
	var n int64
	err := WrapError(func() error {
		return r.db.WithContext(ctx).Model(&Membership{}).
			Where("username = ? AND account_id = ?", username, accountID).
			Count(&n).Error
	})
	return n > 0, err
}

func (r *membershipRepository) CountByUser(ctx context.Context, username string) (int, error) {
	var n int64
	err := WrapError(func() error {
		return r.db.WithContext(ctx).Model(&Membership{}).
			Where("username = ?", username).
			Count(&n).Error
	})
	return int(n), err
}

func (r *membershipRepository) ListByUser(ctx context.Context, username string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := WrapError(func() error {
		return r.db.WithContext(ctx).Model(&Membership{}).
			Where("username = ?", username).
			Order("seq ASC").
			Pluck("account_id", &ids).Error
	})
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

func (r *membershipRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	var names []string
	err := WrapError(func() error {
		return r.db.WithContext(ctx).Model(&Membership{}).
			Where("account_id = ?", accountID).
			Order("seq ASC").
			Pluck("username", &names).Error
	})
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
