package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType says whether a transaction adds to or takes from the
// balance. The amount itself is always positive.
type TransactionType string

// Transaction type constants.
const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Default descriptions used when a transaction is posted without one.
const (
	DefaultIncomeDescription  = "Income"
	DefaultExpenseDescription = "Expense"
)

// MaxAmount bounds amounts and balances. Stores keep them in decimal(20,4),
// which leaves 16 integer digits.
var MaxAmount = decimal.New(1, 16)

// InRange reports whether d fits the stored amount range.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThan(MaxAmount)
}

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// DefaultDescription returns the label used for blank descriptions.
func (t TransactionType) DefaultDescription() string {
	if t == TypeIncome {
		return DefaultIncomeDescription
	}
	return DefaultExpenseDescription
}

// Transaction is an immutable income or expense record. RecordedBy may be
// any member of the account, not only its owner.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	RecordedBy  string          `json:"recorded_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewTransaction creates a transaction stamped with the current time. A blank
// description is replaced with the default label for the type.
func NewTransaction(
	accountID uuid.UUID,
	txType TransactionType,
	amount decimal.Decimal,
	description, recordedBy string,
) *Transaction {
	description = strings.TrimSpace(description)
	if description == "" {
		description = txType.DefaultDescription()
	}
	return &Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Type:        txType,
		Amount:      amount,
		Description: description,
		RecordedBy:  recordedBy,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewTransactionFromData creates a Transaction from raw data (used for store
// hydration or test fixtures).
func NewTransactionFromData(
	id, accountID uuid.UUID,
	txType TransactionType,
	amount decimal.Decimal,
	description, recordedBy string,
	created time.Time,
) *Transaction {
	return &Transaction{
		ID:          id,
		AccountID:   accountID,
		Type:        txType,
		Amount:      amount,
		Description: description,
		RecordedBy:  recordedBy,
		CreatedAt:   created,
	}
}

// SignedAmount is +Amount for income and -Amount for expense.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Balance folds transactions into the balance they imply.
func Balance(txs []*Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.SignedAmount())
	}
	return sum
}

// ActivityEntry is a transaction tagged with its account's display name, as
// shown in the cross-account activity feed.
type ActivityEntry struct {
	*Transaction
	AccountName string `json:"account_name"`
}
