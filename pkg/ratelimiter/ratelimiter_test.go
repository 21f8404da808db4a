package ratelimiter

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	l := New(nil)
	for i := 0; i < 3; i++ {
		assert.NoError(t, l.Acquire(context.Background(), uuid.New(), "comment", time.Minute))
	}
	assert.NoError(t, l.Release(context.Background(), uuid.New(), "comment"))

	var nilLimiter *Limiter
	assert.NoError(t, nilLimiter.Acquire(context.Background(), uuid.New(), "upload", time.Minute))
}

func TestRateLimitErrorMapsTo429(t *testing.T) {
	err := &RateLimitError{Message: "slow down", RetryAfter: 3 * time.Second}
	assert.True(t, errors.Is(err, apperror.ErrRateLimitExceeded))
	assert.Equal(t, http.StatusTooManyRequests, apperror.MapErrorToStatus(err))
	assert.Equal(t, "slow down", err.Error())
}
