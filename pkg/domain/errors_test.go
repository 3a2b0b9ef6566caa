package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	t.Parallel()
	wrapped := fmt.Errorf("post: %w", domain.ErrNonPositiveAmount)
	assert.True(t, domain.IsValidation(wrapped))
	assert.False(t, domain.IsBusinessRule(wrapped))

	assert.True(t, domain.IsBusinessRule(domain.ErrMembershipLimitReached))
	assert.False(t, domain.IsValidation(domain.ErrMembershipLimitReached))

	storage := fmt.Errorf("%w: connection refused", domain.ErrStorageUnavailable)
	assert.False(t, domain.IsValidation(storage))
	assert.False(t, domain.IsBusinessRule(storage))
	assert.False(t, domain.IsValidation(errors.New("boom")))
}
