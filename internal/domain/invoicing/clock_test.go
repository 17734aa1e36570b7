package invoicing_test

import (
	"testing"
	"time"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/stretchr/testify/assert"
)

func TestDefaultPerformanceDate(t *testing.T) {
	assert.Equal(t, day(2025, 2, 1), invoicing.DefaultPerformanceDate(time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)))
	assert.Equal(t, day(2024, 12, 1), invoicing.DefaultPerformanceDate(day(2025, 1, 31)))
	assert.Equal(t, day(2025, 2, 1), invoicing.DefaultPerformanceDate(day(2025, 3, 31)))
}

func TestDefaultPaymentDate(t *testing.T) {
	assert.Equal(t, day(2025, 4, 14), invoicing.DefaultPaymentDate(time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC), 30))
	assert.Equal(t, day(2025, 3, 15), invoicing.DefaultPaymentDate(day(2025, 3, 15), 0))
}

func TestFixedClock(t *testing.T) {
	clock := invoicing.FixedClock(now)
	assert.Equal(t, now, clock.Now())
	assert.WithinDuration(t, time.Now(), invoicing.SystemClock{}.Now(), time.Second)
}
