package repository

import (
	"github.com/amirasaad/householdledger/pkg/domain/account"
	"github.com/amirasaad/householdledger/pkg/domain/user"
)

func mapUserToDomain(m *User) *user.User {
	return user.NewFromData(m.Username, m.Password, m.CreatedAt)
}

func mapUserToModel(u *user.User) *User {
	return &User{
		Username:  u.Username,
		Password:  u.Password,
		CreatedAt: u.CreatedAt,
	}
}

func mapAccountToDomain(m *Account) *account.Account {
	return &account.Account{
		ID:        m.ID,
		Name:      m.Name,
		Balance:   m.Balance.Decimal,
		Owner:     m.Owner,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func mapAccountToModel(a *account.Account) *Account {
	return &Account{
		ID:        a.ID,
		Name:      a.Name,
		Balance:   Amount{a.Balance},
		Owner:     a.Owner,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func mapTransactionToDomain(m *Transaction) *account.Transaction {
	return account.NewTransactionFromData(
		m.ID,
		m.AccountID,
		account.TransactionType(m.Type),
		m.Amount.Decimal,
		m.Description,
		m.RecordedBy,
		m.CreatedAt,
	)
}

func mapTransactionToModel(tx *account.Transaction) *Transaction {
	return &Transaction{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Type:        string(tx.Type),
		Amount:      Amount{tx.Amount},
		Description: tx.Description,
		RecordedBy:  tx.RecordedBy,
		CreatedAt:   tx.CreatedAt,
	}
}
