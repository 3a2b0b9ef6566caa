package repository

import (
	"context"
)

// UnitOfWork defines the contract for transactional work and repository
// access.
//
// Repositories are handed out by the UnitOfWork so that everything done
// inside one Do call uses the same store session: either all of it is
// committed or none of it is.
//
// Example usage:
//
//	err := uow.Do(ctx, func(uow UnitOfWork) error {
//		repo, err := uow.AccountRepository()
//		if err != nil {
//			return err
//		}
//		return repo.Rename(ctx, id, name)
//	})
type UnitOfWork interface {
	// Do executes the given function within a transaction boundary.
	// If the function returns an error, the transaction is rolled back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	UserRepository() (UserRepository, error)
	AccountRepository() (AccountRepository, error)
	MembershipRepository() (MembershipRepository, error)
	TransactionRepository() (TransactionRepository, error)
}
