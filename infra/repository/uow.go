package repository

import (
	"context"
	"fmt"

	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/repository"
	"gorm.io/gorm"
)

// UoW provides transaction boundary and repository access in one abstraction.
// Repositories handed out inside Do share the transaction session; outside
// Do they run against the plain connection.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs fn inside a database transaction. Errors returned by fn are passed
// through untouched; begin and commit failures surface as
// domain.ErrStorageUnavailable. Called on a UoW that is already inside Do,
// fn joins the open transaction.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) (err error) {
	if u.tx != nil {
		return fn(u)
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return MapGormErrorToDomain(tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(&UoW{db: u.db, tx: tx}); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err = tx.Commit().Error; err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (u *UoW) session() (*gorm.DB, bool) {
	if u.tx != nil {
		return u.tx, true
	}
	return u.db, false
}

// UserRepository returns a user repository bound to the current session.
func (u *UoW) UserRepository() (repository.UserRepository, error) {
	db, _ := u.session()
	return &userRepository{db: db}, nil
}

// AccountRepository returns an account repository bound to the current session.
func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	db, inTx := u.session()
	return &accountRepository{db: db, inTx: inTx}, nil
}

// MembershipRepository returns a membership repository bound to the current session.
func (u *UoW) MembershipRepository() (repository.MembershipRepository, error) {
	db, _ := u.session()
	return &membershipRepository{db: db}, nil
}

// TransactionRepository returns a transaction repository bound to the current session.
func (u *UoW) TransactionRepository() (repository.TransactionRepository, error) {
	db, inTx := u.session()
	return &transactionRepository{db: db, inTx: inTx}, nil
}
