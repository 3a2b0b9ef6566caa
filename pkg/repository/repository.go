package repository

import (
	"context"

	"github.com/amirasaad/householdledger/pkg/domain/account"
	"github.com/amirasaad/householdledger/pkg/domain/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRepository defines user persistence.
type UserRepository interface {
	// Get returns the user or nil when no such user exists.
	Get(ctx context.Context, username string) (*user.User, error)

	// GetForUpdate is Get holding a write lock on the user until the unit
	// of work ends. Membership changes lock the user to keep the cap.
	GetForUpdate(ctx context.Context, username string) (*user.User, error)

	// Create stores a new user. Returns domain.ErrUsernameTaken when the
	// username is already registered.
	Create(ctx context.Context, u *user.User) error
}

// AccountRepository defines account persistence.
type AccountRepository interface {
	// Get returns a live account or nil when it does not exist or was
	// deleted.
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)

	// GetForUpdate is Get holding a write lock on the account row until
	// the unit of work ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error)

	// ListByIDs returns the live accounts among ids, in the order of ids.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*account.Account, error)

	// Create stores a new account. Ids are never reused: an id that belonged
	// to a deleted account is rejected with domain.ErrAlreadyExists.
	Create(ctx context.Context, a *account.Account) error

	// Rename updates the display name.
	Rename(ctx context.Context, id uuid.UUID, name string) error

	// Delete removes the account, all of its transactions and every
	// membership referencing it as one unit.
	Delete(ctx context.Context, id uuid.UUID) error
}

// MembershipRepository defines the user × account relation.
type MembershipRepository interface {
	Add(ctx context.Context, username string, accountID uuid.UUID) error
	Remove(ctx context.Context, username string, accountID uuid.UUID) error
	Exists(ctx context.Context, username string, accountID uuid.UUID) (bool, error)
	CountByUser(ctx context.Context, username string) (int, error)

	// ListByUser returns account ids in the order the user joined them.
	ListByUser(ctx context.Context, username string) ([]uuid.UUID, error)

	// ListByAccount returns member usernames in the order they joined.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]string, error)
}

// TransactionRepository defines transaction persistence.
type TransactionRepository interface {
	// Append stores tx and applies its signed amount to the account balance
	// in one step, returning the new balance. A reader never sees one
	// without the other.
	Append(ctx context.Context, tx *account.Transaction) (decimal.Decimal, error)

	// ListByAccount returns the account's transactions, newest first.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*account.Transaction, error)

	// ListByAccounts merges the transactions of several accounts, newest
	// first. A limit <= 0 returns everything.
	ListByAccounts(ctx context.Context, accountIDs []uuid.UUID, limit int) ([]*account.Transaction, error)
}
