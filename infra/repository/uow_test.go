package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDb.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestUoW_DoAndRepositories(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	db, mock := newMockDB(t)

	uow := NewUoW(db)

	// Expect transaction begin and commit
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		acctRepo, err := txUow.AccountRepository()
		require.NoError(err)
		concrete, ok := acctRepo.(*accountRepository)
		require.True(ok)
		assert.True(concrete.inTx)

		txRepo, err := txUow.TransactionRepository()
		require.NoError(err)
		_, ok = txRepo.(*transactionRepository)
		assert.True(ok)

		userRepo, err := txUow.UserRepository()
		require.NoError(err)
		_, ok = userRepo.(*userRepository)
		assert.True(ok)

		memberRepo, err := txUow.MembershipRepository()
		require.NoError(err)
		_, ok = memberRepo.(*membershipRepository)
		assert.True(ok)
		return nil
	})
	assert.NoError(err)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestUoW_NestedDoJoinsOpenTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)

	// One begin and one commit: the inner Do must not open its own.
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(outer repository.UnitOfWork) error {
		return outer.Do(context.Background(), func(inner repository.UnitOfWork) error {
			assert.Same(t, outer, inner)
			return nil
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_NestedDoErrorRollsBackOnce(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := uow.Do(context.Background(), func(outer repository.UnitOfWork) error {
		return outer.Do(context.Background(), func(repository.UnitOfWork) error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_RepositoriesOutsideDo(t *testing.T) {
	db, _ := newMockDB(t)
	uow := NewUoW(db)

	accountRepo, err := uow.AccountRepository()
	require.NoError(t, err)
	assert.False(t, accountRepo.(*accountRepository).inTx)

	transactionRepo, err := uow.TransactionRepository()
	require.NoError(t, err)
	assert.False(t, transactionRepo.(*transactionRepository).inTx)
}

func TestUoW_RollbackKeepsCallbackError(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := uow.Do(context.Background(), func(repository.UnitOfWork) error {
		return domain.ErrAlreadyMember
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)
	assert.NotErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_BeginAndCommitFailures(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		err := NewUoW(db).Do(context.Background(), func(repository.UnitOfWork) error {
			t.Fatal("callback must not run")
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	})

	t.Run("commit", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

		err := NewUoW(db).Do(context.Background(), func(repository.UnitOfWork) error {
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	})
}

func TestRepositories_MapBackendFailures(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)
	ctx := context.Background()
	boom := errors.New("server closed the connection unexpectedly")

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(boom)
	users, _ := uow.UserRepository()
	_, err := users.Get(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "memberships"`).WillReturnError(boom)
	members, _ := uow.MembershipRepository()
	_, err = members.CountByUser(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	mock.ExpectQuery(`SELECT \* FROM "transactions"`).WillReturnError(boom)
	txs, _ := uow.TransactionRepository()
	_, err = txs.ListByAccount(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}
