package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEndOfLife(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	eol := EndOfLife(created, 3600)
	assert.Equal(t, created.Unix()+3600, eol.Unix())
}

func TestRemaining(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	eol := EndOfLife(created, 600)

	assert.Equal(t, int64(600), Remaining(eol, created))
	assert.Equal(t, int64(100), Remaining(eol, created.Add(500*time.Second)))
}

func TestRemainingNegativeWhenDead(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	eol := EndOfLife(created, 60)

	got := Remaining(eol, created.Add(2*time.Minute))
	assert.Equal(t, int64(-60), got)
	assert.LessOrEqual(t, got, int64(0))
}

func TestSubSecondTruncation(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 900_000_000, time.UTC)
	eol := EndOfLife(created, 10)

	// arithmetic is done at second granularity
	assert.Equal(t, created.Unix()+10, eol.Unix())
	assert.Equal(t, int64(10), Remaining(eol, created))
}
