package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for new password hashes.
var PasswordCost = bcrypt.DefaultCost

// dummyHash is compared against when a user does not exist so that unknown
// and known usernames take the same time to reject.
const dummyHash = "$2a$10$7zFqzDbD3RrlkMTczbXG9OWZ0FLOXjIxXzSZ.QZxkVXjXcx7QZQiC"

// HashPassword hashes a plain password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plain password with a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck runs a comparison against a fixed hash and discards the
// result.
func BurnPasswordCheck(password string) {
	_ = CheckPasswordHash(password, dummyHash)
}
