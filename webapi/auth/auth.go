package auth

import (
	"time"

	authsvc "github.com/amirasaad/householdledger/pkg/service/auth"
	"github.com/amirasaad/householdledger/webapi/common"
	"github.com/gofiber/fiber/v2"
)

func Routes(app *fiber.App, authSvc *authsvc.Service) {
	app.Post("/auth/register", Register(authSvc))
	app.Post("/auth/login", Login(authSvc))
}

// Register creates a user with no memberships.
func Register(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[RegisterInput](c)
		if input == nil {
			return err // Error already written by BindAndValidate
		}
		u, err := authSvc.Register(c.UserContext(), input.Username, input.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Registration failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "User registered", UserDTO{
			Username:  u.Username,
			CreatedAt: u.CreatedAt.Format(time.RFC3339),
		})
	}
}

// Login handles user authentication and returns a JWT token.
func Login(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginInput](c)
		if input == nil {
			return err
		}
		_, token, err := authSvc.Login(c.UserContext(), input.Username, input.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid username or password", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Success login", fiber.Map{"token": token})
	}
}
