package filestore

import (
	"context"
	"fmt"
	"sort"

	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/domain/account"
	"github.com/amirasaad/householdledger/pkg/domain/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type userRepository struct{ s session }

func (r *userRepository) Get(_ context.Context, username string) (*user.User, error) {
	var out *user.User
	err := r.s.read(func(d *document) error {
		if rec, ok := d.Users[username]; ok {
			out = user.NewFromData(rec.Username, rec.Password, rec.CreatedAt)
		}
		return nil
	})
	return out, err
}

// GetForUpdate is Get: the unit of work already holds the store's write lock.
func (r *userRepository) GetForUpdate(ctx context.Context, username string) (*user.User, error) {
	return r.Get(ctx, username)
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	return r.s.write(ctx, func(d *document) error {
		if _, exists := d.Users[u.Username]; exists {
			return domain.ErrUsernameTaken
		}
		d.Users[u.Username] = userRecord{
			Username:  u.Username,
			Password:  u.Password,
			CreatedAt: u.CreatedAt,
		}
		return nil
	})
}

type accountRepository struct{ s session }

func accountFromRecord(rec accountRecord) (*account.Account, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: account id %q: %w", domain.ErrStorageUnavailable, rec.ID, err)
	}
	balance, err := decimal.NewFromString(rec.Balance)
	if err != nil {
		return nil, fmt.Errorf("%w: account balance %q: %w", domain.ErrStorageUnavailable, rec.Balance, err)
	}
	return &account.Account{
		ID:        id,
		Name:      rec.Name,
		Balance:   balance,
		Owner:     rec.Owner,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (r *accountRepository) Get(_ context.Context, id uuid.UUID) (*account.Account, error) {
	var out *account.Account
	err := r.s.read(func(d *document) error {
		rec, ok := d.Accounts[id.String()]
		if !ok {
			return nil
		}
		a, err := accountFromRecord(rec)
		out = a
		return err
	})
	return out, err
}

func (r *accountRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.Get(ctx, id)
}

func (r *accountRepository) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*account.Account, error) {
	out := make([]*account.Account, 0, len(ids))
	err := r.s.read(func(d *document) error {
		for _, id := range ids {
			rec, ok := d.Accounts[id.String()]
			if !ok {
				continue
			}
			a, err := accountFromRecord(rec)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	return r.s.write(ctx, func(d *document) error {
		key := a.ID.String()
		if _, exists := d.Accounts[key]; exists || d.isRetired(key) {
			return domain.ErrAlreadyExists
		}
		d.Accounts[key] = accountRecord{
			ID:        key,
			Name:      a.Name,
			Balance:   a.Balance.String(),
			Owner:     a.Owner,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		}
		return nil
	})
}

func (r *accountRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	return r.s.write(ctx, func(d *document) error {
		rec, ok := d.Accounts[id.String()]
		if !ok {
			return domain.ErrAccountNotFound
		}
		rec.Name = name
		rec.UpdatedAt = nowUTC()
		d.Accounts[id.String()] = rec
		return nil
	})
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(d *document) error {
		key := id.String()
		if _, ok := d.Accounts[key]; !ok {
			return domain.ErrAccountNotFound
		}
		members := d.Memberships[:0]
		for _, m := range d.Memberships {
			if m.AccountID != key {
				members = append(members, m)
			}
		}
		d.Memberships = members

		txs := d.Transactions[:0]
		for _, tx := range d.Transactions {
			if tx.AccountID != key {
				txs = append(txs, tx)
			}
		}
		d.Transactions = txs

		delete(d.Accounts, key)
		d.RetiredIDs = append(d.RetiredIDs, key)
		return nil
	})
}

type membershipRepository struct{ s session }

func (r *membershipRepository) Add(ctx context.Context, username string, accountID uuid.UUID) error {
	return r.s.write(ctx, func(d *document) error {
		key := accountID.String()
		for _, m := range d.Memberships {
			if m.Username == username && m.AccountID == key {
				return domain.ErrAlreadyMember
			}
		}
		d.Memberships = append(d.Memberships, membershipRecord{Username: username, AccountID: key})
		return nil
	})
}

func (r *membershipRepository) Remove(ctx context.Context, username string, accountID uuid.UUID) error {
	return r.s.write(ctx, func(d *document) error {
		key := accountID.String()
		for i, m := range d.Memberships {
			if m.Username == username && m.AccountID == key {
				d.Memberships = append(d.Memberships[:i], d.Memberships[i+1:]...)
				return nil
			}
		}
		return domain.ErrNotAMember
	})
}

func (r *membershipRepository) Exists(_ context.Context, username string, accountID uuid.UUID) (bool, error) {
	var found bool
	err := r.s.read(func(d *document) error {
		key := accountID.String()
		for _, m := range d.Memberships {
			if m.Username == username && m.AccountID == key {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *membershipRepository) CountByUser(_ context.Context, username string) (int, error) {
	var n int
	err := r.s.read(func(d *document) error {
		for _, m := range d.Memberships {
			if m.Username == username {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *membershipRepository) ListByUser(_ context.Context, username string) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.s.read(func(d *document) error {
		for _, m := range d.Memberships {
			if m.Username != username {
				continue
			}
			id, err := uuid.Parse(m.AccountID)
			if err != nil {
				return fmt.Errorf("%w: membership account id %q: %w", domain.ErrStorageUnavailable, m.AccountID, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

func (r *membershipRepository) ListByAccount(_ context.Context, accountID uuid.UUID) ([]string, error) {
	names := []string{}
	err := r.s.read(func(d *document) error {
		key := accountID.String()
		for _, m := range d.Memberships {
			if m.AccountID == key {
				names = append(names, m.Username)
			}
		}
		return nil
	})
	return names, err
}

type transactionRepository struct{ s session }

func transactionFromRecord(rec transactionRecord) (*account.Transaction, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction id %q: %w", domain.ErrStorageUnavailable, rec.ID, err)
	}
	accountID, err := uuid.Parse(rec.AccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction account id %q: %w", domain.ErrStorageUnavailable, rec.AccountID, err)
	}
	amount, err := decimal.NewFromString(rec.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction amount %q: %w", domain.ErrStorageUnavailable, rec.Amount, err)
	}
	return account.NewTransactionFromData(
		id, accountID, account.TransactionType(rec.Type), amount,
		rec.Description, rec.RecordedBy, rec.CreatedAt,
	), nil
}

func (r *transactionRepository) Append(ctx context.Context, tx *account.Transaction) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.s.write(ctx, func(d *document) error {
		key := tx.AccountID.String()
		rec, ok := d.Accounts[key]
		if !ok {
			return domain.ErrAccountNotFound
		}
		current, err := decimal.NewFromString(rec.Balance)
		if err != nil {
			return fmt.Errorf("%w: account balance %q: %w", domain.ErrStorageUnavailable, rec.Balance, err)
		}
		balance = current.Add(tx.SignedAmount())
		if !account.InRange(balance) {
			return domain.ErrBalanceOutOfRange
		}

		d.Transactions = append(d.Transactions, transactionRecord{
			ID:          tx.ID.String(),
			AccountID:   key,
			Type:        string(tx.Type),
			Amount:      tx.Amount.String(),
			Description: tx.Description,
			RecordedBy:  tx.RecordedBy,
			CreatedAt:   tx.CreatedAt,
		})
		rec.Balance = balance.String()
		rec.UpdatedAt = tx.CreatedAt
		d.Accounts[key] = rec
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*account.Transaction, error) {
	return r.ListByAccounts(ctx, []uuid.UUID{accountID}, 0)
}

func (r *transactionRepository) ListByAccounts(
	_ context.Context,
	accountIDs []uuid.UUID,
	limit int,
) ([]*account.Transaction, error) {
	wanted := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id.String()] = struct{}{}
	}

	var recs []transactionRecord
	err := r.s.read(func(d *document) error {
		// Walk backwards so equal timestamps stay newest-inserted first.
		for i := len(d.Transactions) - 1; i >= 0; i-- {
			if _, ok := wanted[d.Transactions[i].AccountID]; ok {
				recs = append(recs, d.Transactions[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	out := make([]*account.Transaction, 0, len(recs))
	for _, rec := range recs {
		tx, err := transactionFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
