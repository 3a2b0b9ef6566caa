package repository

import (
	"context"
	"errors"

	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/domain/user"
	repo "github.com/amirasaad/householdledger/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new GORM-backed user repository.
func NewUserRepository(db *gorm.DB) repo.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, username string) (*user.User, error) {
	return r.get(r.db.WithContext(ctx), username)
}

func (r *userRepository) GetForUpdate(ctx context.Context, username string) (*user.User, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), username)
}

func (r *userRepository) get(db *gorm.DB, username string) (*user.User, error) {
	var m User
	err := WrapError(func() error {
		return db.Where("username = ?", username).First(&m).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return mapUserToDomain(&m), nil
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	err := WrapError(func() error {
		return r.db.WithContext(ctx).Create(mapUserToModel(u)).Error
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return domain.ErrUsernameTaken
	}
	return err
}
