// Package events defines the ledger's domain events. They are emitted after
// a unit of work commits and describe what changed, never how.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is implemented by every domain event.
type Event interface {
	Type() string
}

// Event type names.
const (
	AccountCreatedType    = "AccountCreated"
	AccountRenamedType    = "AccountRenamed"
	AccountDeletedType    = "AccountDeleted"
	MemberJoinedType      = "MemberJoined"
	MemberLeftType        = "MemberLeft"
	TransactionPostedType = "TransactionPosted"
)

// Meta is shared by all ledger events.
type Meta struct {
	ID         uuid.UUID `json:"id"`
	AccountID  uuid.UUID `json:"account_id"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewMeta stamps a new event for accountID caused by actor.
func NewMeta(accountID uuid.UUID, actor string) Meta {
	return Meta{
		ID:         uuid.New(),
		AccountID:  accountID,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
}

// EventMeta exposes the shared fields of any event embedding Meta.
func (m Meta) EventMeta() Meta { return m }

// AccountCreated is emitted when a user creates a new account.
type AccountCreated struct {
	Meta
	Name string `json:"name"`
}

func (AccountCreated) Type() string { return AccountCreatedType }

// AccountRenamed is emitted when any member renames an account.
type AccountRenamed struct {
	Meta
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

func (AccountRenamed) Type() string { return AccountRenamedType }

// AccountDeleted is emitted when the owner deletes an account.
type AccountDeleted struct {
	Meta
	Name          string   `json:"name"`
	FormerMembers []string `json:"former_members"`
}

func (AccountDeleted) Type() string { return AccountDeletedType }

// MemberJoined is emitted when a user joins an account with its id.
type MemberJoined struct {
	Meta
}

func (MemberJoined) Type() string { return MemberJoinedType }

// MemberLeft is emitted when a non-owner member leaves an account.
type MemberLeft struct {
	Meta
}

func (MemberLeft) Type() string { return MemberLeftType }

// TransactionPosted is emitted after a transaction and its balance delta
// were committed.
type TransactionPosted struct {
	Meta
	TransactionID   uuid.UUID       `json:"transaction_id"`
	TransactionType string          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	Balance         decimal.Decimal `json:"balance"`
}

func (TransactionPosted) Type() string { return TransactionPostedType }

// EventTypes maps type names to constructors, used by transports that need
// to decode events.
var EventTypes = map[string]func() Event{
	AccountCreatedType:    func() Event { return &AccountCreated{} },
	AccountRenamedType:    func() Event { return &AccountRenamed{} },
	AccountDeletedType:    func() Event { return &AccountDeleted{} },
	MemberJoinedType:      func() Event { return &MemberJoined{} },
	MemberLeftType:        func() Event { return &MemberLeft{} },
	TransactionPostedType: func() Event { return &TransactionPosted{} },
}
