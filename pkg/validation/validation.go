// Package validation holds the pure input checks run before any ledger
// operation. Nothing here touches the store.
package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/domain/account"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Length limits, counted in characters. The maximums match the store
// columns.
const (
	MinUsernameLength    = 2
	MaxUsernameLength    = 64
	MinPasswordLength    = 8
	MaxNameLength        = 255
	MaxDescriptionLength = 255
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// AmountScale is the number of decimal places kept for amounts. Stores keep
// amounts in decimal(20,4) columns.
const AmountScale = 4

// maxIntegerDigits is the number of integer digits below account.MaxAmount.
const maxIntegerDigits = 16

// ValidateRegistration checks the raw registration form.
func ValidateRegistration(username, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return domain.ErrEmptyField
	}
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return domain.ErrUsernameTooShort
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return domain.ErrUsernameTooLong
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return domain.ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return domain.ErrPasswordTooLong
	}
	return nil
}

// ValidateTransactionAmount parses raw as a decimal and checks it with
// CheckAmount. Sign is carried by the transaction type, never by the amount.
func ValidateTransactionAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, domain.ErrNotANumber
	}
	return CheckAmount(amount)
}

// CheckAmount rounds amount to AmountScale places and requires the result to
// be strictly positive and below account.MaxAmount.
func CheckAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrNonPositiveAmount
	}
	// Bounds are checked on digits and exponent before Round touches the
	// coefficient.
	magnitude := int64(amount.NumDigits()) + int64(amount.Exponent())
	if magnitude > maxIntegerDigits {
		return decimal.Zero, domain.ErrAmountTooLarge
	}
	if magnitude < -AmountScale {
		return decimal.Zero, domain.ErrNonPositiveAmount
	}
	amount = amount.Round(AmountScale)
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrNonPositiveAmount
	}
	if !account.InRange(amount) {
		return decimal.Zero, domain.ErrAmountTooLarge
	}
	return amount, nil
}

// ValidateAccountName trims name and rejects blank or overlong names.
func ValidateAccountName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", domain.ErrNameTooLong
	}
	return name, nil
}

// ValidateDescription trims description and rejects overlong ones. A blank
// description is allowed; the transaction type supplies a default.
func ValidateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", domain.ErrDescriptionTooLong
	}
	return description, nil
}

// ValidateTransactionType accepts "income" or "expense" in any case.
func ValidateTransactionType(raw string) (account.TransactionType, error) {
	t := account.TransactionType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", domain.ErrInvalidTransactionType
	}
	return t, nil
}

// ParseAccountID parses a pasted join token. A token that is not a valid id
// cannot name any account, so it is reported as not found.
func ParseAccountID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, domain.ErrAccountNotFound
	}
	return id, nil
}
