package user

import (
	"time"

	"github.com/amirasaad/householdledger/pkg/utils"
	"github.com/amirasaad/householdledger/pkg/validation"
)

// User is a registered household member. The username is the identity and
// never changes.
type User struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"` // bcrypt hash
	CreatedAt time.Time `json:"created_at"`
}

// New validates the credentials and creates a User with a hashed password.
func New(username, password string) (*User, error) {
	if err := validation.ValidateRegistration(username, password); err != nil {
		return nil, err
	}
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		Username:  username,
		Password:  hashedPassword,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewFromData creates a User from stored data (used for store hydration).
func NewFromData(username, hashedPassword string, created time.Time) *User {
	return &User{
		Username:  username,
		Password:  hashedPassword,
		CreatedAt: created,
	}
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return utils.CheckPasswordHash(password, u.Password)
}
