// Package account serves the shared-account and transaction endpoints. Every
// route requires a bearer token; the acting user is taken from it.
package account

import (
	"github.com/amirasaad/householdledger/pkg/config"
	"github.com/amirasaad/householdledger/pkg/middleware"
	accountsvc "github.com/amirasaad/householdledger/pkg/service/account"
	authsvc "github.com/amirasaad/householdledger/pkg/service/auth"
	txsvc "github.com/amirasaad/householdledger/pkg/service/transaction"
	"github.com/amirasaad/householdledger/pkg/validation"
	"github.com/amirasaad/householdledger/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// Routes:
//   - GET    /accounts                  : accounts of the current user
//   - POST   /accounts                  : create an account
//   - POST   /accounts/join             : join an account by id
//   - GET    /accounts/:id              : account details with members
//   - PATCH  /accounts/:id              : rename
//   - DELETE /accounts/:id              : leave, or delete when owner
//   - GET    /accounts/:id/transactions : history, newest first
//   - POST   /accounts/:id/transactions : post income or expense
//   - GET    /activity                  : recent activity across accounts
func Routes(
	app *fiber.App,
	accountSvc *accountsvc.Service,
	txSvc *txsvc.Service,
	authSvc *authsvc.Service,
	cfg *config.App,
) {
	protected := middleware.JwtProtected(cfg.Auth.Jwt)
	app.Get("/accounts", protected, ListAccounts(accountSvc, authSvc))
	app.Post("/accounts", protected, CreateAccount(accountSvc, authSvc))
	app.Post("/accounts/join", protected, JoinAccount(accountSvc, authSvc))
	app.Get("/accounts/:id", protected, GetAccount(accountSvc, authSvc))
	app.Patch("/accounts/:id", protected, RenameAccount(accountSvc, authSvc))
	app.Delete("/accounts/:id", protected, LeaveOrDeleteAccount(accountSvc, authSvc))
	app.Get("/accounts/:id/transactions", protected, History(txSvc, authSvc))
	app.Post("/accounts/:id/transactions", protected, PostTransaction(txSvc, authSvc))
	app.Get("/activity", protected, Activity(txSvc, authSvc))
}

// ListAccounts returns the current user's accounts in join order.
func ListAccounts(accountSvc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := common.CurrentUser(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		accounts, err := accountSvc.ListAccounts(c.UserContext(), username)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list accounts", err)
		}
		dtos := make([]*AccountDTO, 0, len(accounts))
		for _, a := range accounts {
			dtos = append(dtos, ToAccountDTO(a, username))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Accounts fetched", dtos)
	}
}

// CreateAccount creates an account owned by the current user.
func CreateAccount(accountSvc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := common.CurrentUser(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[CreateAccountRequest](c)
		if input == nil {
			return err
		}
		a, err := accountSvc.CreateAccount(c.UserContext(), username, input.Name)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to create account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Account created", ToAccountDTO(a, username))
	}
}

// JoinAccount adds the current user to an existing account.
func JoinAccount(accountSvc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := common.CurrentUser(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[JoinAccountRequest](c)
		if input == nil {
			return err
		}
		id, err := validation.ParseAccountID(input.AccountID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to join account", err)
		}
		a, err := accountSvc.JoinAccount(c.UserContext(), username, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to join account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account joined", ToAccountDTO(a, username))
	}
}

// GetAccount returns the account with its members.
func GetAccount(accountSvc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := common.CurrentUser(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, err := validation.ParseAccountID(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch account", err)
		}
		a, err := accountSvc.GetAccount(c.UserContext(), username, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account fetched", ToAccountDTO(a, username))
	}
}

// RenameAccount changes the display name. Any member may rename.
func RenameAccount(accountSvc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := common.CurrentUser(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, err := validation.ParseAccountID(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to rename account", err)
		}
		input, err := common.BindAndValidate[RenameAccountRequest](c)
		if input == nil {
			return err
		}
		a, err := accountSvc.RenameAccount(c.UserContext(), username, id, input.Name)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to rename account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account renamed", ToAccountDTO(a, username))
	}
}

// LeaveOrDeleteAccount removes the current user from the account. The owner
// deletes it for everyone instead.
func LeaveOrDeleteAccount(accountSvc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := common.CurrentUser(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, err := validation.ParseAccountID(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to leave account", err)
		}
		result, err := accountSvc.LeaveOrDeleteAccount(c.UserContext(), id, username)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to leave account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account "+result.String(), fiber.Map{
			"account_id": id.String(),
			"result":     result.String(),
		})
	}
}

// History lists the account's transactions, newest first.
func History(txSvc *txsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := common.CurrentUser(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, err := validation.ParseAccountID(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list transactions", err)
		}
		txs, err := txSvc.History(c.UserContext(), username, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list transactions", err)
		}
		dtos := make([]*TransactionDTO, 0, len(txs))
		for _, tx := range txs {
			dtos = append(dtos, ToTransactionDTO(tx))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions fetched", dtos)
	}
}

// PostTransaction records an income or expense against the account.
func PostTransaction(txSvc *txsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := common.CurrentUser(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, err := validation.ParseAccountID(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to post transaction", err)
		}
		input, err := common.BindAndValidate[PostTransactionRequest](c)
		if input == nil {
			return err
		}
		txType, err := validation.ValidateTransactionType(input.Type)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to post transaction", err)
		}
		amount, err := validation.ValidateTransactionAmount(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to post transaction", err)
		}
		tx, err := txSvc.PostTransaction(c.UserContext(), id, txType, amount, input.Description, username)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to post transaction", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Transaction posted", ToTransactionDTO(tx))
	}
}

// Activity returns the most recent transactions across the current user's
// accounts. limit defaults to the configured feed size.
func Activity(txSvc *txsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := common.CurrentUser(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		limit := c.QueryInt("limit", 0)
		entries, err := txSvc.ActivityFor(c.UserContext(), username, limit)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch activity", err)
		}
		dtos := make([]*TransactionDTO, 0, len(entries))
		for _, e := range entries {
			dtos = append(dtos, ToActivityDTO(e))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Activity fetched", dtos)
	}
}
