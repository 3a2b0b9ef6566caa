package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxMemberships is the hard cap on the number of accounts a single user
// may belong to.
const MaxMemberships = 4

// ErrOwnerRequired is returned by Build when no owner username was set.
var ErrOwnerRequired = errors.New("owner is required")

// Account is a shared money pool. It acts as the aggregate root for its
// transactions.
//
// Invariants:
//   - Balance is always the signed sum of the account's transactions.
//   - ID is never reused, even after the account is deleted.
//   - Owner is the creating user and never changes.
//   - A live account always has at least one member.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	Owner     string          `json:"owner"`
	Members   []string        `json:"members,omitempty"` // filled by detail queries only
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsOwner reports whether username created the account.
func (a *Account) IsOwner(username string) bool {
	return a.Owner == username
}

// Apply adds the signed amount of tx to the balance.
func (a *Account) Apply(tx *Transaction) {
	a.Balance = a.Balance.Add(tx.SignedAmount())
	a.UpdatedAt = tx.CreatedAt
}

// Builder provides a fluent API for constructing Account instances.
type Builder struct {
	id        uuid.UUID
	name      string
	owner     string
	balance   decimal.Decimal
	createdAt time.Time
	updatedAt time.Time
}

// New creates a new Builder with a fresh id and a zero balance.
func New() *Builder {
	now := time.Now().UTC()
	return &Builder{
		id:        uuid.New(),
		balance:   decimal.Zero,
		createdAt: now,
		updatedAt: now,
	}
}

// WithID sets the ID for the account being built.
func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

// WithName sets the display name.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithOwner sets the owner username. This is a mandatory field.
func (b *Builder) WithOwner(owner string) *Builder {
	b.owner = owner
	return b
}

// WithBalance sets the balance. This should only be used for hydrating an
// existing account from a data store or for test setup.
func (b *Builder) WithBalance(balance decimal.Decimal) *Builder {
	b.balance = balance
	return b
}

// WithCreatedAt sets the creation timestamp.
func (b *Builder) WithCreatedAt(t time.Time) *Builder {
	b.createdAt = t
	return b
}

// WithUpdatedAt sets the last-updated timestamp.
func (b *Builder) WithUpdatedAt(t time.Time) *Builder {
	b.updatedAt = t
	return b
}

// Build finalizes the construction of the Account.
func (b *Builder) Build() (*Account, error) {
	if b.owner == "" {
		return nil, ErrOwnerRequired
	}
	return &Account{
		ID:        b.id,
		Name:      b.name,
		Balance:   b.balance,
		Owner:     b.owner,
		CreatedAt: b.createdAt,
		UpdatedAt: b.updatedAt,
	}, nil
}

// LeaveResult tells which branch LeaveOrDelete took.
type LeaveResult int

const (
	// LeaveResultLeft means a non-owner member removed only their own
	// membership.
	LeaveResultLeft LeaveResult = iota + 1
	// LeaveResultDeleted means the owner deleted the account together with
	// all memberships and transactions.
	LeaveResultDeleted
)

func (r LeaveResult) String() string {
	switch r {
	case LeaveResultLeft:
		return "left"
	case LeaveResultDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
