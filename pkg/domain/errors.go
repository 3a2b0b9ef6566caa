package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrStorageUnavailable is returned when the persistence backend fails.
	// The backend cause is wrapped, nothing is retried.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Input validation errors. They are always recoverable and are shown to the
// caller as-is.
var (
	ErrEmptyField             = errors.New("username and password cannot be empty")
	ErrUsernameTooShort       = errors.New("username must be at least 2 characters")
	ErrPasswordTooShort       = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong        = errors.New("password must be at most 72 bytes")
	ErrUsernameTooLong        = errors.New("username must be at most 64 characters")
	ErrNameTooLong            = errors.New("account name must be at most 255 characters")
	ErrDescriptionTooLong     = errors.New("description must be at most 255 characters")
	ErrAmountTooLarge         = errors.New("amount must be less than 10000000000000000")
	ErrEmptyName              = errors.New("account name cannot be empty")
	ErrNotANumber             = errors.New("amount must be a number (for example 150.50)")
	ErrNonPositiveAmount      = errors.New("amount must be greater than zero")
	ErrInvalidTransactionType = errors.New("transaction type must be income or expense")
)

// Business rule rejections. The caller keeps its current state unchanged.
var (
	ErrUsernameTaken          = errors.New("username is already taken")
	ErrAlreadyMember          = errors.New("account is already in your list")
	ErrMembershipLimitReached = errors.New("membership limit of 4 accounts reached")
	ErrAccountNotFound        = errors.New("account not found")
	ErrNotAMember             = errors.New("user is not a member of the account")
	ErrAuthFailure            = errors.New("invalid username or password")
	ErrBalanceOutOfRange      = errors.New("balance would leave the supported range")
)

var validationErrors = []error{
	ErrEmptyField,
	ErrUsernameTooShort,
	ErrPasswordTooShort,
	ErrPasswordTooLong,
	ErrUsernameTooLong,
	ErrNameTooLong,
	ErrDescriptionTooLong,
	ErrAmountTooLarge,
	ErrEmptyName,
	ErrNotANumber,
	ErrNonPositiveAmount,
	ErrInvalidTransactionType,
}

var businessRuleErrors = []error{
	ErrUsernameTaken,
	ErrAlreadyMember,
	ErrMembershipLimitReached,
	ErrAccountNotFound,
	ErrNotAMember,
	ErrAuthFailure,
	ErrBalanceOutOfRange,
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	return isOneOf(err, validationErrors)
}

// IsBusinessRule reports whether err is a business rule rejection.
func IsBusinessRule(err error) bool {
	return isOneOf(err, businessRuleErrors)
}

func isOneOf(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
