// Command cli manages household ledger accounts from the terminal against the
// configured ledger store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/amirasaad/householdledger/infra/initializer"
	"github.com/amirasaad/householdledger/pkg/app"
	"github.com/amirasaad/householdledger/pkg/config"
	"github.com/google/subcommands"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Register the subcommands.
func register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&registerCmd{}, "users")

	c.Register(&accountsCmd{}, "accounts")
	c.Register(&createCmd{}, "accounts")
	c.Register(&joinCmd{}, "accounts")
	c.Register(&renameCmd{}, "accounts")
	c.Register(&leaveCmd{}, "accounts")
	c.Register(&showCmd{}, "accounts")

	c.Register(&postCmd{}, "transactions")
	c.Register(&historyCmd{}, "transactions")
	c.Register(&activityCmd{}, "transactions")
}

func main() {
	// Per-call credentials; the CLI never holds a session token.
	if _, ok := os.LookupEnv("AUTH_STRATEGY"); !ok {
		_ = os.Setenv("AUTH_STRATEGY", "basic")
	}

	cdr := subcommands.NewCommander(flag.CommandLine, os.Args[0])
	register(cdr)
	flag.Parse()

	var ledger *app.App
	open := openFunc(func() (*app.App, error) {
		if ledger != nil {
			return ledger, nil
		}
		cfg, err := config.Load(".env")
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		deps, err := initializer.InitializeDependencies(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		ledger = app.New(deps, cfg)
		return ledger, nil
	})

	status := cdr.Execute(context.Background(), open)
	if ledger != nil {
		if err := ledger.Close(); err != nil {
			fmt.Fprintf(stderr, "Error: closing ledger: %v\n", err)
		}
	}
	os.Exit(int(status))
}
