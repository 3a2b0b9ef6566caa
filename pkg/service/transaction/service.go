// Package transaction posts income and expense records and reads history.
package transaction

import (
	"context"
	"log/slog"

	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/domain/account"
	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/amirasaad/householdledger/pkg/eventbus"
	"github.com/amirasaad/householdledger/pkg/repository"
	"github.com/amirasaad/householdledger/pkg/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultActivityLimit is the size of the dashboard feed.
const DefaultActivityLimit = 10

// Service provides transaction operations.
type Service struct {
	uow           repository.UnitOfWork
	bus           eventbus.Bus
	logger        *slog.Logger
	activityLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithActivityLimit sets the feed size used when callers pass limit <= 0.
func WithActivityLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.activityLimit = n
		}
	}
}

// New creates a new transaction Service. bus may be nil.
func New(
	uow repository.UnitOfWork,
	bus eventbus.Bus,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		uow:           uow,
		bus:           bus,
		logger:        logger,
		activityLimit: DefaultActivityLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PostTransaction records an income or expense by actor against the account
// and moves its balance in the same step. A blank description gets the
// default label for the type.
func (s *Service) PostTransaction(
	ctx context.Context,
	accountID uuid.UUID,
	txType account.TransactionType,
	amount decimal.Decimal,
	description, actor string,
) (tx *account.Transaction, err error) {
	log := s.logger.With(
		"context", "PostTransaction",
		"actor", actor,
		"account_id", accountID,
		"type", txType,
	)
	log.Debug("PostTransaction called", "amount", amount)

	if !txType.Valid() {
		return nil, domain.ErrInvalidTransactionType
	}
	amount, err = validation.CheckAmount(amount)
	if err != nil {
		log.Warn("PostTransaction rejected", "error", err)
		return nil, err
	}
	description, err = validation.ValidateDescription(description)
	if err != nil {
		log.Warn("PostTransaction rejected", "error", err)
		return nil, err
	}

	var balance decimal.Decimal
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		a, err := accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if a == nil {
			return domain.ErrAccountNotFound
		}
		if err := requireMember(ctx, uow, actor, accountID); err != nil {
			return err
		}

		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		tx = account.NewTransaction(accountID, txType, amount, description, actor)
		balance, err = txs.Append(ctx, tx)
		return err
	})
	if err != nil {
		log.Error("PostTransaction failed", "error", err)
		return nil, err
	}

	log.Info("Transaction posted", "transaction_id", tx.ID, "balance", balance)
	if s.bus != nil {
		if err := s.bus.Emit(ctx, events.TransactionPosted{
			Meta:            events.NewMeta(accountID, actor),
			TransactionID:   tx.ID,
			TransactionType: string(tx.Type),
			Amount:          tx.Amount,
			Balance:         balance,
		}); err != nil {
			log.Error("failed to emit event", "error", err)
		}
	}
	return tx, nil
}

// History returns the account's transactions, newest first. Only members
// may read it.
func (s *Service) History(
	ctx context.Context,
	actor string,
	accountID uuid.UUID,
) (history []*account.Transaction, err error) {
	log := s.logger.With("context", "History", "actor", actor, "account_id", accountID)
	log.Debug("History called")

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		a, err := accounts.Get(ctx, accountID)
		if err != nil {
			return err
		}
		if a == nil {
			return domain.ErrAccountNotFound
		}
		if err := requireMember(ctx, uow, actor, accountID); err != nil {
			return err
		}
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		history, err = txs.ListByAccount(ctx, accountID)
		return err
	})
	if err != nil {
		log.Error("History failed", "error", err)
		return nil, err
	}
	return history, nil
}

// RecentActivity merges the transactions of accountIDs, newest first, each
// tagged with its account name. Unknown or deleted accounts are skipped.
func (s *Service) RecentActivity(
	ctx context.Context,
	accountIDs []uuid.UUID,
	limit int,
) (entries []*account.ActivityEntry, err error) {
	log := s.logger.With("context", "RecentActivity")
	log.Debug("RecentActivity called", "accounts", len(accountIDs), "limit", limit)

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		entries, err = s.recentActivity(ctx, uow, accountIDs, limit)
		return err
	})
	if err != nil {
		log.Error("RecentActivity failed", "error", err)
		return nil, err
	}
	return entries, nil
}

// ActivityFor is RecentActivity over every account username belongs to.
func (s *Service) ActivityFor(
	ctx context.Context,
	username string,
	limit int,
) (entries []*account.ActivityEntry, err error) {
	log := s.logger.With("context", "ActivityFor", "user", username)
	log.Debug("ActivityFor called", "limit", limit)

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		members, err := uow.MembershipRepository()
		if err != nil {
			return err
		}
		ids, err := members.ListByUser(ctx, username)
		if err != nil {
			return err
		}
		entries, err = s.recentActivity(ctx, uow, ids, limit)
		return err
	})
	if err != nil {
		log.Error("ActivityFor failed", "error", err)
		return nil, err
	}
	return entries, nil
}

func (s *Service) recentActivity(
	ctx context.Context,
	uow repository.UnitOfWork,
	accountIDs []uuid.UUID,
	limit int,
) ([]*account.ActivityEntry, error) {
	if limit <= 0 {
		limit = s.activityLimit
	}
	entries := []*account.ActivityEntry{}
	if len(accountIDs) == 0 {
		return entries, nil
	}

	accounts, err := uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	live, err := accounts.ListByIDs(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(live))
	ids := make([]uuid.UUID, 0, len(live))
	for _, a := range live {
		names[a.ID] = a.Name
		ids = append(ids, a.ID)
	}

	txs, err := uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	recent, err := txs.ListByAccounts(ctx, ids, limit)
	if err != nil {
		return nil, err
	}
	for _, tx := range recent {
		entries = append(entries, &account.ActivityEntry{Transaction: tx, AccountName: names[tx.AccountID]})
	}
	return entries, nil
}

func requireMember(ctx context.Context, uow repository.UnitOfWork, username string, id uuid.UUID) error {
	members, err := uow.MembershipRepository()
	if err != nil {
		return err
	}
	ok, err := members.Exists(ctx, username, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotAMember
	}
	return nil
}
