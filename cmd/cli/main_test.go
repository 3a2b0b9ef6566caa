package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	infraeventbus "github.com/amirasaad/householdledger/infra/eventbus"
	infrarepo "github.com/amirasaad/householdledger/infra/repository"
	"github.com/amirasaad/householdledger/internal/database"
	"github.com/amirasaad/householdledger/pkg/app"
	"github.com/amirasaad/householdledger/pkg/config"
	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/utils"
	"github.com/fatih/color"
	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	utils.PasswordCost = bcrypt.MinCost
	color.NoColor = true
	os.Exit(m.Run())
}

var idPattern = regexp.MustCompile(`Account id: ([0-9a-f-]{36})`)

func newLedger(t *testing.T) *app.App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := &app.Deps{
		Uow:      infrarepo.NewUoW(database.NewTestDB(t)),
		EventBus: infraeventbus.NewWithMemory(logger),
		Logger:   logger,
	}
	return app.New(deps, &config.App{
		Auth:   &config.Auth{Strategy: "basic", Jwt: &config.Jwt{Expiry: time.Hour}},
		Ledger: &config.Ledger{ActivityLimit: 10},
	})
}

// runCLI executes one command line against ledger and returns its exit
// status with what it printed.
func runCLI(t *testing.T, ledger *app.App, args ...string) (subcommands.ExitStatus, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr := stdout, stderr
	stdout, stderr = &out, &errOut
	defer func() { stdout, stderr = oldOut, oldErr }()

	top := flag.NewFlagSet("cli", flag.ContinueOnError)
	cdr := subcommands.NewCommander(top, "cli")
	cdr.Output = &out
	cdr.Error = &errOut
	register(cdr)
	require.NoError(t, top.Parse(args))

	open := openFunc(func() (*app.App, error) { return ledger, nil })
	status := cdr.Execute(context.Background(), open)
	return status, out.String(), errOut.String()
}

func registerUser(t *testing.T, ledger *app.App, username string) {
	t.Helper()
	status, _, errOut := runCLI(t, ledger, "register", "-u", username, "-p", "password123")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
}

func TestHouseholdWorkflow(t *testing.T) {
	ledger := newLedger(t)
	registerUser(t, ledger, "alice")
	registerUser(t, ledger, "bob")

	status, out, _ := runCLI(t, ledger, "create", "-u", "alice", "-p", "password123", "Household")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, `Created "Household"`)
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2)
	id := m[1]

	status, out, _ = runCLI(t, ledger, "post", "-u", "alice", "-p", "password123", id, "income", "100", "Salary")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "+100")

	status, out, _ = runCLI(t, ledger, "post", "-u", "alice", "-p", "password123", id, "expense", "30")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "(Expense)")

	status, out, _ = runCLI(t, ledger, "history", "-u", "alice", "-p", "password123", id)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Salary")
	assert.Contains(t, out, "-30")

	status, out, _ = runCLI(t, ledger, "accounts", "-u", "alice", "-p", "password123")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Household")
	assert.Contains(t, out, "70")
	assert.Contains(t, out, "owner")

	status, out, _ = runCLI(t, ledger, "join", "-u", "bob", "-p", "password123", "  "+id+"  ")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, `Joined "Household"`)

	status, out, _ = runCLI(t, ledger, "rename", "-u", "bob", "-p", "password123", id, "Family", "budget")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, `Renamed to "Family budget"`)

	status, out, _ = runCLI(t, ledger, "show", "-u", "bob", "-p", "password123", id)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Family budget")
	assert.Contains(t, out, "alice, bob")
	assert.Contains(t, out, "You are: member")

	status, out, _ = runCLI(t, ledger, "activity", "-u", "bob", "-p", "password123", "-limit", "1")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Family budget")
	assert.NotContains(t, out, "Salary")

	status, out, _ = runCLI(t, ledger, "leave", "-u", "bob", "-p", "password123", id)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Left account")

	status, out, _ = runCLI(t, ledger, "leave", "-u", "alice", "-p", "password123", id)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Account deleted")

	status, out, _ = runCLI(t, ledger, "accounts", "-u", "alice", "-p", "password123")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "No accounts yet")
}

func TestAuthFailure(t *testing.T) {
	ledger := newLedger(t)
	registerUser(t, ledger, "alice")

	status, _, errOut := runCLI(t, ledger, "accounts", "-u", "alice", "-p", "wrongpassword")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, domain.ErrAuthFailure.Error())

	status, _, errOut = runCLI(t, ledger, "accounts", "-p", "password123")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "-u is required")
}

func TestRegisterRejections(t *testing.T) {
	ledger := newLedger(t)
	registerUser(t, ledger, "alice")

	status, _, errOut := runCLI(t, ledger, "register", "-u", "alice", "-p", "password123")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, domain.ErrUsernameTaken.Error())

	status, _, errOut = runCLI(t, ledger, "register", "-u", "carol", "-p", "short")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, domain.ErrPasswordTooShort.Error())
}

func TestPasswordPrompt(t *testing.T) {
	old := readPassword
	readPassword = func() (string, error) { return "password123", nil }
	defer func() { readPassword = old }()

	ledger := newLedger(t)
	status, out, _ := runCLI(t, ledger, "register", "-u", "alice")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Registered alice")

	status, _, _ = runCLI(t, ledger, "accounts", "-u", "alice")
	assert.Equal(t, subcommands.ExitSuccess, status)
}

func TestPostRejections(t *testing.T) {
	ledger := newLedger(t)
	registerUser(t, ledger, "alice")
	status, out, _ := runCLI(t, ledger, "create", "-u", "alice", "-p", "password123", "Household")
	require.Equal(t, subcommands.ExitSuccess, status)
	id := idPattern.FindStringSubmatch(out)[1]

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"not a number", []string{id, "expense", "abc"}, domain.ErrNotANumber},
		{"zero", []string{id, "expense", "0"}, domain.ErrNonPositiveAmount},
		{"bad type", []string{id, "transfer", "10"}, domain.ErrInvalidTransactionType},
		{"bad id", []string{"not-an-id", "income", "10"}, domain.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"post", "-u", "alice", "-p", "password123"}, tt.args...)
			status, _, errOut := runCLI(t, ledger, args...)
			assert.Equal(t, subcommands.ExitFailure, status)
			assert.Contains(t, errOut, tt.want.Error())
		})
	}
}

func TestUsageErrors(t *testing.T) {
	ledger := newLedger(t)

	status, _, _ := runCLI(t, ledger, "join", "-u", "alice", "-p", "password123")
	assert.Equal(t, subcommands.ExitUsageError, status)

	status, _, _ = runCLI(t, ledger, "post", "-u", "alice", "-p", "password123", "id", "income")
	assert.Equal(t, subcommands.ExitUsageError, status)

	status, _, _ = runCLI(t, ledger, "frobnicate")
	assert.Equal(t, subcommands.ExitUsageError, status)
}
