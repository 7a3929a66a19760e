package aitmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDualLimiterBurst(t *testing.T) {
	d := newDualLimiter(5, 100)

	for i := 0; i < 5; i++ {
		delay, ok := d.admit()
		assert.True(t, ok, "call %d should be admitted", i)
		assert.Zero(t, delay)
	}

	delay, ok := d.admit()
	assert.False(t, ok)
	assert.Greater(t, delay.Seconds(), 0.0)
}

func TestDualLimiterHourBucketBinds(t *testing.T) {
	// Generous minute bucket, tiny hour bucket: the hour bucket must deny.
	d := newDualLimiter(100, 2)

	_, ok := d.admit()
	assert.True(t, ok)
	_, ok = d.admit()
	assert.True(t, ok)

	delay, ok := d.admit()
	assert.False(t, ok)
	// Hour bucket refills one token every 30 minutes.
	assert.Greater(t, delay.Minutes(), 1.0)
}

func TestDualLimiterDenialDoesNotConsume(t *testing.T) {
	d := newDualLimiter(1, 1)

	_, ok := d.admit()
	assert.True(t, ok)

	// Repeated denials must not push the refill time further out.
	first, ok := d.admit()
	assert.False(t, ok)
	second, ok := d.admit()
	assert.False(t, ok)
	assert.LessOrEqual(t, second.Seconds(), first.Seconds()+1)
}
