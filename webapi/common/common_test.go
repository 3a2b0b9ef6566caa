package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestErrorToStatusCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrAmountTooLarge, fiber.StatusBadRequest},
		{domain.ErrDescriptionTooLong, fiber.StatusBadRequest},
		{domain.ErrUsernameTooLong, fiber.StatusBadRequest},
		{domain.ErrAuthFailure, fiber.StatusUnauthorized},
		{domain.ErrNotAMember, fiber.StatusForbidden},
		{domain.ErrAccountNotFound, fiber.StatusNotFound},
		{domain.ErrAlreadyMember, fiber.StatusConflict},
		{domain.ErrMembershipLimitReached, fiber.StatusUnprocessableEntity},
		{domain.ErrBalanceOutOfRange, fiber.StatusUnprocessableEntity},
		{fmt.Errorf("append: %w", domain.ErrBalanceOutOfRange), fiber.StatusUnprocessableEntity},
		{domain.ErrStorageUnavailable, fiber.StatusServiceUnavailable},
		{fiber.ErrTooManyRequests, fiber.StatusTooManyRequests},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ErrorToStatusCode(tc.err), tc.err.Error())
	}
}
