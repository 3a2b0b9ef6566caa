package account_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	infraeventbus "github.com/amirasaad/householdledger/infra/eventbus"
	"github.com/amirasaad/householdledger/infra/filestore"
	infrarepo "github.com/amirasaad/householdledger/infra/repository"
	"github.com/amirasaad/householdledger/internal/database"
	"github.com/amirasaad/householdledger/internal/fixtures"
	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/domain/account"
	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/amirasaad/householdledger/pkg/domain/user"
	"github.com/amirasaad/householdledger/pkg/repository"
	accountsvc "github.com/amirasaad/householdledger/pkg/service/account"
	txsvc "github.com/amirasaad/householdledger/pkg/service/transaction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name string
	open func(t *testing.T) repository.UnitOfWork
}

var backends = []backend{
	{"gorm", func(t *testing.T) repository.UnitOfWork {
		return infrarepo.NewUoW(database.NewTestDB(t))
	}},
	{"filestore", func(t *testing.T) repository.UnitOfWork {
		s, err := filestore.Open(filepath.Join(t.TempDir(), "ledger.json"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}},
}

func seedUsers(t *testing.T, uow repository.UnitOfWork, names ...string) {
	t.Helper()
	users, err := uow.UserRepository()
	require.NoError(t, err)
	for _, n := range names {
		require.NoError(t, users.Create(context.Background(), user.NewFromData(n, "hash", time.Now().UTC())))
	}
}

func newService(t *testing.T, b backend, names ...string) (*accountsvc.Service, repository.UnitOfWork, *infraeventbus.MemoryEventBus) {
	t.Helper()
	uow := b.open(t)
	seedUsers(t, uow, names...)
	bus := infraeventbus.NewWithMemory(slog.Default())
	return accountsvc.New(uow, bus, slog.Default()), uow, bus
}

func eachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			fn(t, b)
		})
	}
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		svc, _, bus := newService(t, b, "alice")

		a, err := svc.CreateAccount(ctx, "alice", "  Groceries  ")
		require.NoError(t, err)
		assert.Equal(t, "Groceries", a.Name)
		assert.Equal(t, "alice", a.Owner)
		assert.True(t, a.Balance.IsZero())
		assert.Equal(t, []string{"alice"}, a.Members)

		list, err := svc.ListAccounts(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, a.ID, list[0].ID)

		published := bus.Published()
		require.Len(t, published, 1)
		created := published[0].(events.AccountCreated)
		assert.Equal(t, a.ID, created.AccountID)
		assert.Equal(t, "alice", created.Actor)

		_, err = svc.CreateAccount(ctx, "alice", "   ")
		assert.ErrorIs(t, err, domain.ErrEmptyName)
		_, err = svc.CreateAccount(ctx, "ghost", "Nope")
		assert.ErrorIs(t, err, domain.ErrAuthFailure)
	})
}

func TestMembershipLimit(t *testing.T) {
	t.Parallel()
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		svc, _, _ := newService(t, b, "alice", "bob")

		for i := 0; i < account.MaxMemberships; i++ {
			_, err := svc.CreateAccount(ctx, "alice", fmt.Sprintf("A%d", i))
			require.NoError(t, err)
		}
		_, err := svc.CreateAccount(ctx, "alice", "fifth")
		assert.ErrorIs(t, err, domain.ErrMembershipLimitReached)

		other, err := svc.CreateAccount(ctx, "bob", "Bob's")
		require.NoError(t, err)
		_, err = svc.JoinAccount(ctx, "alice", other.ID)
		assert.ErrorIs(t, err, domain.ErrMembershipLimitReached)

		list, err := svc.ListAccounts(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, list, account.MaxMemberships)
	})
}

func TestJoinAccount(t *testing.T) {
	t.Parallel()
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		svc, _, bus := newService(t, b, "alice", "bob")

		a, err := svc.CreateAccount(ctx, "alice", "Family")
		require.NoError(t, err)

		joined, err := svc.JoinAccount(ctx, "bob", a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, joined.ID)

		_, err = svc.JoinAccount(ctx, "bob", a.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyMember)

		_, err = svc.JoinAccount(ctx, "bob", uuid.New())
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)

		got, err := svc.GetAccount(ctx, "bob", a.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, got.Members)

		var joinedEvents int
		for _, e := range bus.Published() {
			if e.Type() == events.MemberJoinedType {
				joinedEvents++
			}
		}
		assert.Equal(t, 1, joinedEvents)
	})
}

func TestJoinAccount_CheckOrder(t *testing.T) {
	t.Parallel()
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		svc, _, _ := newService(t, b, "alice")

		var first *account.Account
		for i := 0; i < account.MaxMemberships; i++ {
			a, err := svc.CreateAccount(ctx, "alice", fmt.Sprintf("A%d", i))
			require.NoError(t, err)
			if first == nil {
				first = a
			}
		}
		// Not found wins over the cap.
		_, err := svc.JoinAccount(ctx, "alice", uuid.New())
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		// The cap wins over already-a-member.
		_, err = svc.JoinAccount(ctx, "alice", first.ID)
		assert.ErrorIs(t, err, domain.ErrMembershipLimitReached)
	})
}

func TestConcurrentJoinsRespectCap(t *testing.T) {
	t.Parallel()
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		svc, _, _ := newService(t, b, "owner1", "owner2", "carol")

		var ids []uuid.UUID
		for i := 0; i < 8; i++ {
			owner := "owner1"
			if i >= 4 {
				owner = "owner2"
			}
			a, err := svc.CreateAccount(ctx, owner, fmt.Sprintf("A%d", i))
			require.NoError(t, err)
			ids = append(ids, a.ID)
		}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok, full int
		)
		for _, id := range ids {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				_, err := svc.JoinAccount(ctx, "carol", id)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, domain.ErrMembershipLimitReached):
					full++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(id)
		}
		wg.Wait()

		assert.Equal(t, account.MaxMemberships, ok)
		assert.Equal(t, len(ids)-account.MaxMemberships, full)
	})
}

func TestConcurrentDeleteLeavesNoOrphans(t *testing.T) {
	t.Parallel()
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		joiners := []string{"carol", "dave", "erin", "frank"}
		svc, uow, bus := newService(t, b, append([]string{"alice", "bob"}, joiners...)...)
		txs := txsvc.New(uow, bus, slog.Default())

		a, err := svc.CreateAccount(ctx, "alice", "Family")
		require.NoError(t, err)
		_, err = svc.JoinAccount(ctx, "bob", a.ID)
		require.NoError(t, err)

		var wg sync.WaitGroup
		check := func(err error) {
			if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
				t.Errorf("unexpected error: %v", err)
			}
		}
		for _, name := range joiners {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				_, err := svc.JoinAccount(ctx, name, a.ID)
				check(err)
			}(name)
		}
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := txs.PostTransaction(ctx, a.ID, account.TypeExpense, decimal.NewFromInt(5), "groceries", "bob")
				check(err)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.LeaveOrDeleteAccount(ctx, a.ID, "alice")
			assert.NoError(t, err)
			assert.Equal(t, account.LeaveResultDeleted, result)
		}()
		wg.Wait()

		require.NoError(t, uow.Do(ctx, func(uow repository.UnitOfWork) error {
			accounts, err := uow.AccountRepository()
			require.NoError(t, err)
			got, err := accounts.Get(ctx, a.ID)
			require.NoError(t, err)
			assert.Nil(t, got)

			memberships, err := uow.MembershipRepository()
			require.NoError(t, err)
			members, err := memberships.ListByAccount(ctx, a.ID)
			require.NoError(t, err)
			assert.Empty(t, members)
			for _, name := range append([]string{"alice", "bob"}, joiners...) {
				ids, err := memberships.ListByUser(ctx, name)
				require.NoError(t, err)
				assert.NotContains(t, ids, a.ID, name)
			}

			transactions, err := uow.TransactionRepository()
			require.NoError(t, err)
			left, err := transactions.ListByAccount(ctx, a.ID)
			require.NoError(t, err)
			assert.Empty(t, left)
			return nil
		}))

		_, err = svc.JoinAccount(ctx, "carol", a.ID)
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		_, err = txs.PostTransaction(ctx, a.ID, account.TypeIncome, decimal.NewFromInt(1), "", "bob")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestRenameAccount(t *testing.T) {
	t.Parallel()
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		svc, _, bus := newService(t, b, "alice", "bob", "mallory")

		a, err := svc.CreateAccount(ctx, "alice", "Family")
		require.NoError(t, err)
		_, err = svc.JoinAccount(ctx, "bob", a.ID)
		require.NoError(t, err)

		renamed, err := svc.RenameAccount(ctx, "bob", a.ID, " Holidays ")
		require.NoError(t, err)
		assert.Equal(t, "Holidays", renamed.Name)

		got, err := svc.GetAccount(ctx, "alice", a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Holidays", got.Name)

		_, err = svc.RenameAccount(ctx, "mallory", a.ID, "Mine")
		assert.ErrorIs(t, err, domain.ErrNotAMember)
		_, err = svc.RenameAccount(ctx, "alice", a.ID, "")
		assert.ErrorIs(t, err, domain.ErrEmptyName)
		_, err = svc.RenameAccount(ctx, "alice", uuid.New(), "X")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)

		last := bus.Published()[len(bus.Published())-1].(events.AccountRenamed)
		assert.Equal(t, "Family", last.OldName)
		assert.Equal(t, "Holidays", last.NewName)
	})
}

func TestLeaveOrDeleteAccount(t *testing.T) {
	t.Parallel()
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		svc, uow, _ := newService(t, b, "alice", "bob", "mallory")

		a, err := svc.CreateAccount(ctx, "alice", "Family")
		require.NoError(t, err)
		_, err = svc.JoinAccount(ctx, "bob", a.ID)
		require.NoError(t, err)
		txs, err := uow.TransactionRepository()
		require.NoError(t, err)
		_, err = txs.Append(ctx, account.NewTransaction(a.ID, account.TypeIncome, decimal.NewFromInt(100), "", "alice"))
		require.NoError(t, err)

		// Non-member.
		_, err = svc.LeaveOrDeleteAccount(ctx, a.ID, "mallory")
		assert.ErrorIs(t, err, domain.ErrNotAMember)

		// Non-owner leave keeps the account and its history.
		res, err := svc.LeaveOrDeleteAccount(ctx, a.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, account.LeaveResultLeft, res)

		bobs, err := svc.ListAccounts(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, bobs)
		got, err := svc.GetAccount(ctx, "alice", a.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(100).Equal(got.Balance))
		assert.Equal(t, []string{"alice"}, got.Members)
		history, err := txs.ListByAccount(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, history, 1)

		// Owner "leave" deletes for everyone.
		_, err = svc.JoinAccount(ctx, "bob", a.ID)
		require.NoError(t, err)
		res, err = svc.LeaveOrDeleteAccount(ctx, a.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, account.LeaveResultDeleted, res)

		for _, name := range []string{"alice", "bob"} {
			list, err := svc.ListAccounts(ctx, name)
			require.NoError(t, err)
			assert.Empty(t, list, name)
		}
		history, err = txs.ListByAccount(ctx, a.ID)
		require.NoError(t, err)
		assert.Empty(t, history)

		_, err = svc.JoinAccount(ctx, "bob", a.ID)
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		_, err = svc.LeaveOrDeleteAccount(ctx, a.ID, "alice")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestGetAccount_NotAMember(t *testing.T) {
	t.Parallel()
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		svc, _, _ := newService(t, b, "alice")
		a, err := svc.CreateAccount(ctx, "alice", "Family")
		require.NoError(t, err)

		_, err = svc.GetAccount(ctx, "bob", a.ID)
		assert.ErrorIs(t, err, domain.ErrNotAMember)
		_, err = svc.GetAccount(ctx, "alice", uuid.New())
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestCreateAccount_EmitFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uow := fixtures.NewMockUnitOfWork(t)
	bus := fixtures.NewMockBus(t)

	uow.Users.On("GetForUpdate", mock.Anything, "alice").
		Return(user.NewFromData("alice", "hash", time.Now()), nil).Once()
	uow.Memberships.On("CountByUser", mock.Anything, "alice").Return(0, nil).Once()
	uow.Accounts.On("Create", mock.Anything, mock.AnythingOfType("*account.Account")).Return(nil).Once()
	uow.Memberships.On("Add", mock.Anything, "alice", mock.AnythingOfType("uuid.UUID")).Return(nil).Once()
	bus.On("Emit", mock.Anything, mock.AnythingOfType("events.AccountCreated")).
		Return(errors.New("broker down")).Once()

	svc := accountsvc.New(uow, bus, slog.Default())
	a, err := svc.CreateAccount(ctx, "alice", "Family")
	require.NoError(t, err)
	assert.Equal(t, "Family", a.Name)
}

func TestCreateAccount_StorageFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uow := fixtures.NewMockUnitOfWork(t)
	storageErr := fmt.Errorf("%w: disk full", domain.ErrStorageUnavailable)

	uow.Users.On("GetForUpdate", mock.Anything, "alice").
		Return(user.NewFromData("alice", "hash", time.Now()), nil).Once()
	uow.Memberships.On("CountByUser", mock.Anything, "alice").Return(0, nil).Once()
	uow.Accounts.On("Create", mock.Anything, mock.Anything).Return(storageErr).Once()

	svc := accountsvc.New(uow, nil, slog.Default())
	_, err := svc.CreateAccount(ctx, "alice", "Family")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestLeaveOrDelete_DecidedByOwnershipOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uow := fixtures.NewMockUnitOfWork(t)
	a, err := account.New().WithName("Family").WithOwner("alice").Build()
	require.NoError(t, err)

	uow.Accounts.On("GetForUpdate", mock.Anything, a.ID).Return(a, nil).Once()
	uow.Memberships.On("ListByAccount", mock.Anything, a.ID).Return([]string{"alice", "bob"}, nil).Once()
	uow.Accounts.On("Delete", mock.Anything, a.ID).Return(nil).Once()

	svc := accountsvc.New(uow, nil, slog.Default())
	res, err := svc.LeaveOrDeleteAccount(ctx, a.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, account.LeaveResultDeleted, res)
	uow.Memberships.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)
}
