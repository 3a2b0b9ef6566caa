// Package account implements the account lifecycle: create, join, rename,
// leave or delete, and listing.
package account

import (
	"context"
	"log/slog"
	"slices"

	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/domain/account"
	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/amirasaad/householdledger/pkg/eventbus"
	"github.com/amirasaad/householdledger/pkg/repository"
	"github.com/amirasaad/householdledger/pkg/validation"
	"github.com/google/uuid"
)

// Service provides account operations. Every operation runs in one unit of
// work, so it either fully applies or leaves the ledger untouched.
type Service struct {
	uow    repository.UnitOfWork
	bus    eventbus.Bus
	logger *slog.Logger
}

// New creates a new account Service. bus may be nil.
func New(
	uow repository.UnitOfWork,
	bus eventbus.Bus,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, bus: bus, logger: logger}
}

// CreateAccount creates an account owned by owner with a fresh id and zero
// balance, and makes owner its first member.
func (s *Service) CreateAccount(
	ctx context.Context,
	owner, name string,
) (created *account.Account, err error) {
	log := s.logger.With("context", "CreateAccount", "owner", owner)
	log.Debug("CreateAccount called", "name", name)

	name, err = validation.ValidateAccountName(name)
	if err != nil {
		log.Warn("CreateAccount rejected", "error", err)
		return nil, err
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		if err := lockUserWithRoom(ctx, uow, owner); err != nil {
			return err
		}
		a, err := account.New().WithName(name).WithOwner(owner).Build()
		if err != nil {
			return err
		}
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		if err := accounts.Create(ctx, a); err != nil {
			return err
		}
		members, err := uow.MembershipRepository()
		if err != nil {
			return err
		}
		if err := members.Add(ctx, owner, a.ID); err != nil {
			return err
		}
		a.Members = []string{owner}
		created = a
		return nil
	})
	if err != nil {
		log.Error("CreateAccount failed", "error", err)
		return nil, err
	}

	log.Info("Account created", "account_id", created.ID)
	s.emit(ctx, events.AccountCreated{Meta: events.NewMeta(created.ID, owner), Name: created.Name})
	return created, nil
}

// JoinAccount adds username to the account identified by accountID. Checks
// run in order: the account exists, the user has room for one more
// membership, the user is not a member yet.
func (s *Service) JoinAccount(
	ctx context.Context,
	username string,
	accountID uuid.UUID,
) (joined *account.Account, err error) {
	log := s.logger.With("context", "JoinAccount", "user", username, "account_id", accountID)
	log.Debug("JoinAccount called")

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		a, err := lockAccount(ctx, uow, accountID)
		if err != nil {
			return err
		}
		if err := lockUserWithRoom(ctx, uow, username); err != nil {
			return err
		}
		members, err := uow.MembershipRepository()
		if err != nil {
			return err
		}
		ok, err := members.Exists(ctx, username, accountID)
		if err != nil {
			return err
		}
		if ok {
			return domain.ErrAlreadyMember
		}
		if err := members.Add(ctx, username, accountID); err != nil {
			return err
		}
		joined = a
		return nil
	})
	if err != nil {
		log.Error("JoinAccount failed", "error", err)
		return nil, err
	}

	log.Info("Account joined")
	s.emit(ctx, events.MemberJoined{Meta: events.NewMeta(accountID, username)})
	return joined, nil
}

// RenameAccount changes the display name. Any member may rename.
func (s *Service) RenameAccount(
	ctx context.Context,
	actor string,
	accountID uuid.UUID,
	newName string,
) (renamed *account.Account, err error) {
	log := s.logger.With("context", "RenameAccount", "actor", actor, "account_id", accountID)
	log.Debug("RenameAccount called", "name", newName)

	newName, err = validation.ValidateAccountName(newName)
	if err != nil {
		log.Warn("RenameAccount rejected", "error", err)
		return nil, err
	}

	var oldName string
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		a, err := lockAccount(ctx, uow, accountID)
		if err != nil {
			return err
		}
		if err := requireMember(ctx, uow, actor, accountID); err != nil {
			return err
		}
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		if err := accounts.Rename(ctx, accountID, newName); err != nil {
			return err
		}
		oldName = a.Name
		a.Name = newName
		renamed = a
		return nil
	})
	if err != nil {
		log.Error("RenameAccount failed", "error", err)
		return nil, err
	}

	log.Info("Account renamed", "old_name", oldName)
	s.emit(ctx, events.AccountRenamed{
		Meta:    events.NewMeta(accountID, actor),
		OldName: oldName,
		NewName: newName,
	})
	return renamed, nil
}

// LeaveOrDeleteAccount deletes the account when actor owns it, otherwise
// removes only actor's membership. The choice depends solely on ownership.
func (s *Service) LeaveOrDeleteAccount(
	ctx context.Context,
	accountID uuid.UUID,
	actor string,
) (result account.LeaveResult, err error) {
	log := s.logger.With("context", "LeaveOrDeleteAccount", "actor", actor, "account_id", accountID)
	log.Debug("LeaveOrDeleteAccount called")

	var (
		name          string
		formerMembers []string
	)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		a, err := lockAccount(ctx, uow, accountID)
		if err != nil {
			return err
		}
		name = a.Name
		members, err := uow.MembershipRepository()
		if err != nil {
			return err
		}

		if a.IsOwner(actor) {
			formerMembers, err = members.ListByAccount(ctx, accountID)
			if err != nil {
				return err
			}
			accounts, err := uow.AccountRepository()
			if err != nil {
				return err
			}
			if err := accounts.Delete(ctx, accountID); err != nil {
				return err
			}
			result = account.LeaveResultDeleted
			return nil
		}

		if err := requireMember(ctx, uow, actor, accountID); err != nil {
			return err
		}
		if err := members.Remove(ctx, actor, accountID); err != nil {
			return err
		}
		result = account.LeaveResultLeft
		return nil
	})
	if err != nil {
		log.Error("LeaveOrDeleteAccount failed", "error", err)
		return 0, err
	}

	log.Info("LeaveOrDeleteAccount successful", "result", result)
	if result == account.LeaveResultDeleted {
		s.emit(ctx, events.AccountDeleted{
			Meta:          events.NewMeta(accountID, actor),
			Name:          name,
			FormerMembers: formerMembers,
		})
	} else {
		s.emit(ctx, events.MemberLeft{Meta: events.NewMeta(accountID, actor)})
	}
	return result, nil
}

// ListAccounts returns username's accounts in the order they were joined.
func (s *Service) ListAccounts(
	ctx context.Context,
	username string,
) (accounts []*account.Account, err error) {
	log := s.logger.With("context", "ListAccounts", "user", username)
	log.Debug("ListAccounts called")

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		members, err := uow.MembershipRepository()
		if err != nil {
			return err
		}
		ids, err := members.ListByUser(ctx, username)
		if err != nil {
			return err
		}
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		accounts, err = repo.ListByIDs(ctx, ids)
		return err
	})
	if err != nil {
		log.Error("ListAccounts failed", "error", err)
		return nil, err
	}
	return accounts, nil
}

// GetAccount returns the account with its member list. Only members may
// look at an account.
func (s *Service) GetAccount(
	ctx context.Context,
	actor string,
	accountID uuid.UUID,
) (a *account.Account, err error) {
	log := s.logger.With("context", "GetAccount", "actor", actor, "account_id", accountID)
	log.Debug("GetAccount called")

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		a, err = accounts.Get(ctx, accountID)
		if err != nil {
			return err
		}
		if a == nil {
			return domain.ErrAccountNotFound
		}
		members, err := uow.MembershipRepository()
		if err != nil {
			return err
		}
		names, err := members.ListByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if !slices.Contains(names, actor) {
			return domain.ErrNotAMember
		}
		a.Members = names
		return nil
	})
	if err != nil {
		log.Error("GetAccount failed", "error", err)
		return nil, err
	}
	return a, nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(ctx, event); err != nil {
		s.logger.Error("failed to emit event", "type", event.Type(), "error", err)
	}
}

// lockAccount loads the account holding its row lock for the rest of the
// unit of work.
func lockAccount(ctx context.Context, uow repository.UnitOfWork, id uuid.UUID) (*account.Account, error) {
	accounts, err := uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	a, err := accounts.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

// lockUserWithRoom locks the user row and checks the membership cap. Holding
// the lock keeps concurrent creates and joins by the same user from both
// passing the check.
func lockUserWithRoom(ctx context.Context, uow repository.UnitOfWork, username string) error {
	users, err := uow.UserRepository()
	if err != nil {
		return err
	}
	u, err := users.GetForUpdate(ctx, username)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.ErrAuthFailure
	}
	members, err := uow.MembershipRepository()
	if err != nil {
		return err
	}
	n, err := members.CountByUser(ctx, username)
	if err != nil {
		return err
	}
	if n >= account.MaxMemberships {
		return domain.ErrMembershipLimitReached
	}
	return nil
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
