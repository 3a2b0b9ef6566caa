package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/amirasaad/householdledger/pkg/app"
	"github.com/amirasaad/householdledger/pkg/domain/account"
	"github.com/amirasaad/householdledger/pkg/validation"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/google/subcommands"
	"golang.org/x/term"
)

// openFunc opens the ledger on first use so that help commands need no store.
type openFunc func() (*app.App, error)

var (
	success = color.New(color.FgGreen, color.Bold)
	income  = color.New(color.FgGreen)
	expense = color.New(color.FgRed)
	faint   = color.New(color.Faint)
)

// readPassword prompts on the terminal without echo.
var readPassword = func() (string, error) {
	fmt.Fprint(stderr, "Password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(stderr)
	return string(b), err
}

func ledgerFrom(args []interface{}) (*app.App, error) {
	if len(args) == 0 {
		return nil, errors.New("no ledger configured")
	}
	open, ok := args[0].(openFunc)
	if !ok {
		return nil, errors.New("no ledger configured")
	}
	return open()
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

// credentials are given on every call.
type credentials struct {
	username string
	password string
}

func (c *credentials) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "username")
	f.StringVar(&c.password, "p", "", "password (prompted when empty)")
}

func (c *credentials) secret() (string, error) {
	if c.username == "" {
		return "", errors.New("-u is required")
	}
	if c.password != "" {
		return c.password, nil
	}
	return readPassword()
}

// login opens the ledger and checks the credentials.
func (c *credentials) login(ctx context.Context, args []interface{}) (*app.App, string, error) {
	password, err := c.secret()
	if err != nil {
		return nil, "", err
	}
	ledger, err := ledgerFrom(args)
	if err != nil {
		return nil, "", err
	}
	u, err := ledger.AuthService.Authenticate(ctx, c.username, password)
	if err != nil {
		return nil, "", err
	}
	return ledger, u.Username, nil
}

// run is the shared Execute body of the authenticated commands.
func (c *credentials) run(
	ctx context.Context,
	f *flag.FlagSet,
	args []interface{},
	nargs int,
	body func(ledger *app.App, username string, rest []string) error,
) subcommands.ExitStatus {
	if nargs >= 0 && f.NArg() != nargs {
		f.Usage()
		return subcommands.ExitUsageError
	}
	ledger, username, err := c.login(ctx, args)
	if err != nil {
		return fail(err)
	}
	if err := body(ledger, username, f.Args()); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func signed(tx *account.Transaction) string {
	if tx.Type == account.TypeIncome {
		return income.Sprint("+" + tx.Amount.String())
	}
	return expense.Sprint("-" + tx.Amount.String())
}

func role(a *account.Account, username string) string {
	if a.IsOwner(username) {
		return "owner"
	}
	return "member"
}

type registerCmd struct {
	credentials
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "Create a user" }
func (*registerCmd) Usage() string {
	return `register -u <username> [-p <password>]:
  Create a user with no accounts. The password is prompted when -p is omitted.
`
}

func (c *registerCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	password, err := c.secret()
	if err != nil {
		return fail(err)
	}
	ledger, err := ledgerFrom(args)
	if err != nil {
		return fail(err)
	}
	u, err := ledger.AuthService.Register(ctx, c.username, password)
	if err != nil {
		return fail(err)
	}
	success.Fprintf(stdout, "Registered %s\n", u.Username)
	return subcommands.ExitSuccess
}

type accountsCmd struct {
	credentials
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "List your accounts" }
func (*accountsCmd) Usage() string {
	return `accounts -u <username>:
  List the accounts you belong to, in the order you joined them.
`
}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, args, 0, func(ledger *app.App, username string, _ []string) error {
		accounts, err := ledger.AccountService.ListAccounts(ctx, username)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			faint.Fprintln(stdout, "No accounts yet. Create one or join one with its id.")
			return nil
		}
		t := newTable("ID", "NAME", "BALANCE", "ROLE")
		for _, a := range accounts {
			t.Row(a.ID.String(), a.Name, a.Balance.String(), role(a, username))
		}
		fmt.Fprintln(stdout, t.String())
		return nil
	})
}

type createCmd struct {
	credentials
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "Create an account" }
func (*createCmd) Usage() string {
	return `create -u <username> <name>:
  Create an account you own. Share its id so others can join.
`
}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, args, -1, func(ledger *app.App, username string, rest []string) error {
		a, err := ledger.AccountService.CreateAccount(ctx, username, strings.Join(rest, " "))
		if err != nil {
			return err
		}
		success.Fprintf(stdout, "Created %q\n", a.Name)
		fmt.Fprintf(stdout, "Account id: %s\n", a.ID)
		return nil
	})
}

type joinCmd struct {
	credentials
}

func (*joinCmd) Name() string     { return "join" }
func (*joinCmd) Synopsis() string { return "Join an account by id" }
func (*joinCmd) Usage() string {
	return `join -u <username> <account-id>:
  Join the account identified by the shared id.
`
}

func (c *joinCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, args, 1, func(ledger *app.App, username string, rest []string) error {
		id, err := validation.ParseAccountID(rest[0])
		if err != nil {
			return err
		}
		a, err := ledger.AccountService.JoinAccount(ctx, username, id)
		if err != nil {
			return err
		}
		success.Fprintf(stdout, "Joined %q\n", a.Name)
		return nil
	})
}

type renameCmd struct {
	credentials
}

func (*renameCmd) Name() string     { return "rename" }
func (*renameCmd) Synopsis() string { return "Rename an account" }
func (*renameCmd) Usage() string {
	return `rename -u <username> <account-id> <new name>:
  Change the display name of an account you belong to.
`
}

func (c *renameCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return c.run(ctx, f, args, -1, func(ledger *app.App, username string, rest []string) error {
		id, err := validation.ParseAccountID(rest[0])
		if err != nil {
			return err
		}
		a, err := ledger.AccountService.RenameAccount(ctx, username, id, strings.Join(rest[1:], " "))
		if err != nil {
			return err
		}
		success.Fprintf(stdout, "Renamed to %q\n", a.Name)
		return nil
	})
}

type leaveCmd struct {
	credentials
}

func (*leaveCmd) Name() string     { return "leave" }
func (*leaveCmd) Synopsis() string { return "Leave an account, or delete it if you own it" }
func (*leaveCmd) Usage() string {
	return `leave -u <username> <account-id>:
  Members leave the account and its history stays. The owner deletes the
  account with all its transactions and memberships.
`
}

func (c *leaveCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, args, 1, func(ledger *app.App, username string, rest []string) error {
		id, err := validation.ParseAccountID(rest[0])
		if err != nil {
			return err
		}
		result, err := ledger.AccountService.LeaveOrDeleteAccount(ctx, id, username)
		if err != nil {
			return err
		}
		if result == account.LeaveResultDeleted {
			success.Fprintln(stdout, "Account deleted")
		} else {
			success.Fprintln(stdout, "Left account")
		}
		return nil
	})
}

type showCmd struct {
	credentials
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "Show an account and its members" }
func (*showCmd) Usage() string {
	return `show -u <username> <account-id>:
  Print the name, balance, owner and members of an account.
`
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, args, 1, func(ledger *app.App, username string, rest []string) error {
		id, err := validation.ParseAccountID(rest[0])
		if err != nil {
			return err
		}
		a, err := ledger.AccountService.GetAccount(ctx, username, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n", color.New(color.Bold).Sprint(a.Name))
		fmt.Fprintf(stdout, "Id:      %s\n", a.ID)
		fmt.Fprintf(stdout, "Balance: %s\n", a.Balance)
		fmt.Fprintf(stdout, "Owner:   %s\n", a.Owner)
		fmt.Fprintf(stdout, "Members: %s\n", strings.Join(a.Members, ", "))
		fmt.Fprintf(stdout, "You are: %s\n", role(a, username))
		return nil
	})
}

type postCmd struct {
	credentials
}

func (*postCmd) Name() string     { return "post" }
func (*postCmd) Synopsis() string { return "Record an income or expense" }
func (*postCmd) Usage() string {
	return `post -u <username> <account-id> <income|expense> <amount> [description]:
  Record a transaction. A blank description defaults to "Income" or "Expense".
`
}

func (c *postCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 3 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return c.run(ctx, f, args, -1, func(ledger *app.App, username string, rest []string) error {
		id, err := validation.ParseAccountID(rest[0])
		if err != nil {
			return err
		}
		txType, err := validation.ValidateTransactionType(rest[1])
		if err != nil {
			return err
		}
		amount, err := validation.ValidateTransactionAmount(rest[2])
		if err != nil {
			return err
		}
		tx, err := ledger.TransactionService.PostTransaction(
			ctx, id, txType, amount, strings.Join(rest[3:], " "), username,
		)
		if err != nil {
			return err
		}
		success.Fprintf(stdout, "Recorded %s %s (%s)\n", tx.Type, signed(tx), tx.Description)
		return nil
	})
}

type historyCmd struct {
	credentials
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "List the transactions of an account" }
func (*historyCmd) Usage() string {
	return `history -u <username> <account-id>:
  List the transactions of an account, newest first.
`
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, args, 1, func(ledger *app.App, username string, rest []string) error {
		id, err := validation.ParseAccountID(rest[0])
		if err != nil {
			return err
		}
		history, err := ledger.TransactionService.History(ctx, username, id)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			faint.Fprintln(stdout, "No transactions yet.")
			return nil
		}
		t := newTable("DATE", "DESCRIPTION", "AMOUNT", "BY")
		for _, tx := range history {
			t.Row(tx.CreatedAt.Format("2006-01-02 15:04"), tx.Description, signed(tx), tx.RecordedBy)
		}
		fmt.Fprintln(stdout, t.String())
		return nil
	})
}

type activityCmd struct {
	credentials
	limit int
}

func (*activityCmd) Name() string     { return "activity" }
func (*activityCmd) Synopsis() string { return "Show recent activity across your accounts" }
func (*activityCmd) Usage() string {
	return `activity -u <username> [-limit N]:
  Show the most recent transactions across all your accounts.
`
}

func (c *activityCmd) SetFlags(f *flag.FlagSet) {
	c.credentials.SetFlags(f)
	f.IntVar(&c.limit, "limit", 0, "number of entries (0 uses the configured default)")
}

func (c *activityCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, args, 0, func(ledger *app.App, username string, _ []string) error {
		entries, err := ledger.TransactionService.ActivityFor(ctx, username, c.limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			faint.Fprintln(stdout, "No activity yet.")
			return nil
		}
		t := newTable("DATE", "ACCOUNT", "DESCRIPTION", "AMOUNT", "BY")
		for _, e := range entries {
			t.Row(
				e.CreatedAt.Format("2006-01-02 15:04"),
				e.AccountName,
				e.Description,
				signed(e.Transaction),
				e.RecordedBy,
			)
		}
		fmt.Fprintln(stdout, t.String())
		return nil
	})
}
