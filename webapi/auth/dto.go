package auth

// RegisterInput is the registration form. The length rules are checked by
// the service so that the error messages match the CLI.
type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginInput represents the request body for user authentication.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserDTO is the public view of a user.
type UserDTO struct {
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}
