package account

import (
	"time"

	"github.com/amirasaad/householdledger/pkg/domain/account"
	"github.com/shopspring/decimal"
)

type CreateAccountRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type RenameAccountRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// JoinAccountRequest carries the pasted account id.
type JoinAccountRequest struct {
	AccountID string `json:"account_id" validate:"required"`
}

// PostTransactionRequest keeps the amount as text so that "150.50" is parsed
// exactly.
type PostTransactionRequest struct {
	Type        string `json:"type" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"max=255"`
}

// AccountDTO is the API response representation of an account.
type AccountDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	Owner     string          `json:"owner"`
	IsOwner   bool            `json:"is_owner"`
	Members   []string        `json:"members,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// TransactionDTO is the API response representation of a transaction.
type TransactionDTO struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	AccountName string          `json:"account_name,omitempty"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	RecordedBy  string          `json:"recorded_by"`
	CreatedAt   string          `json:"created_at"`
}

// ToAccountDTO maps an account as seen by viewer.
func ToAccountDTO(a *account.Account, viewer string) *AccountDTO {
	return &AccountDTO{
		ID:        a.ID.String(),
		Name:      a.Name,
		Balance:   a.Balance,
		Owner:     a.Owner,
		IsOwner:   a.IsOwner(viewer),
		Members:   a.Members,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

func ToTransactionDTO(tx *account.Transaction) *TransactionDTO {
	return &TransactionDTO{
		ID:          tx.ID.String(),
		AccountID:   tx.AccountID.String(),
		Type:        string(tx.Type),
		Amount:      tx.Amount,
		Description: tx.Description,
		RecordedBy:  tx.RecordedBy,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339Nano),
	}
}

func ToActivityDTO(e *account.ActivityEntry) *TransactionDTO {
	dto := ToTransactionDTO(e.Transaction)
	dto.AccountName = e.AccountName
	return dto
}
