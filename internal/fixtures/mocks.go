// Package fixtures holds hand-written testify mocks of the store and bus
// contracts.
package fixtures

import (
	"context"
	"testing"

	"github.com/amirasaad/householdledger/pkg/domain/account"
	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/amirasaad/householdledger/pkg/domain/user"
	"github.com/amirasaad/householdledger/pkg/eventbus"
	"github.com/amirasaad/householdledger/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUnitOfWork runs Do callbacks against itself and hands out the mock
// repositories. Set DoErr to simulate a failing commit.
type MockUnitOfWork struct {
	Users        *MockUserRepository
	Accounts     *MockAccountRepository
	Memberships  *MockMembershipRepository
	Transactions *MockTransactionRepository
	DoErr        error
	DoCalls      int
}

// NewMockUnitOfWork creates a unit of work with fresh repository mocks whose
// expectations are asserted at test cleanup.
func NewMockUnitOfWork(t *testing.T) *MockUnitOfWork {
	return &MockUnitOfWork{
		Users:        NewMockUserRepository(t),
		Accounts:     NewMockAccountRepository(t),
		Memberships:  NewMockMembershipRepository(t),
		Transactions: NewMockTransactionRepository(t),
	}
}

func (m *MockUnitOfWork) Do(_ context.Context, fn func(uow repository.UnitOfWork) error) error {
	m.DoCalls++
	if err := fn(m); err != nil {
		return err
	}
	return m.DoErr
}

func (m *MockUnitOfWork) UserRepository() (repository.UserRepository, error) {
	return m.Users, nil
}

func (m *MockUnitOfWork) AccountRepository() (repository.AccountRepository, error) {
	return m.Accounts, nil
}

func (m *MockUnitOfWork) MembershipRepository() (repository.MembershipRepository, error) {
	return m.Memberships, nil
}

func (m *MockUnitOfWork) TransactionRepository() (repository.TransactionRepository, error) {
	return m.Transactions, nil
}

type MockUserRepository struct {
	mock.Mock
}

func NewMockUserRepository(t *testing.T) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Get(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) GetForUpdate(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

type MockAccountRepository struct {
	mock.Mock
}

func NewMockAccountRepository(t *testing.T) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*account.Account)
	return a, args.Error(1)
}

func (m *MockAccountRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*account.Account)
	return a, args.Error(1)
}

func (m *MockAccountRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*account.Account, error) {
	args := m.Called(ctx, ids)
	out, _ := args.Get(0).([]*account.Account)
	return out, args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, a *account.Account) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAccountRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMembershipRepository struct {
	mock.Mock
}

func NewMockMembershipRepository(t *testing.T) *MockMembershipRepository {
	m := &MockMembershipRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockMembershipRepository) Add(ctx context.Context, username string, accountID uuid.UUID) error {
	args := m.Called(ctx, username, accountID)
	return args.Error(0)
}

func (m *MockMembershipRepository) Remove(ctx context.Context, username string, accountID uuid.UUID) error {
	args := m.Called(ctx, username, accountID)
	return args.Error(0)
}

func (m *MockMembershipRepository) Exists(ctx context.Context, username string, accountID uuid.UUID) (bool, error) {
	args := m.Called(ctx, username, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipRepository) CountByUser(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

func (m *MockMembershipRepository) ListByUser(ctx context.Context, username string) ([]uuid.UUID, error) {
	args := m.Called(ctx, username)
	out, _ := args.Get(0).([]uuid.UUID)
	return out, args.Error(1)
}

func (m *MockMembershipRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, accountID)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func NewMockTransactionRepository(t *testing.T) *MockTransactionRepository {
	m := &MockTransactionRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTransactionRepository) Append(ctx context.Context, tx *account.Transaction) (decimal.Decimal, error) {
	args := m.Called(ctx, tx)
	d, _ := args.Get(0).(decimal.Decimal)
	return d, args.Error(1)
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*account.Transaction, error) {
	args := m.Called(ctx, accountID)
	out, _ := args.Get(0).([]*account.Transaction)
	return out, args.Error(1)
}

func (m *MockTransactionRepository) ListByAccounts(
	ctx context.Context,
	accountIDs []uuid.UUID,
	limit int,
) ([]*account.Transaction, error) {
	args := m.Called(ctx, accountIDs, limit)
	out, _ := args.Get(0).([]*account.Transaction)
	return out, args.Error(1)
}

// MockBus records emitted events.
type MockBus struct {
	mock.Mock
}

func NewMockBus(t *testing.T) *MockBus {
	m := &MockBus{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockBus) Emit(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockBus) Register(eventType string, handler eventbus.HandlerFunc) {
	m.Called(eventType, handler)
}

var (
	_ repository.UnitOfWork = (*MockUnitOfWork)(nil)
	_ eventbus.Bus          = (*MockBus)(nil)
)
