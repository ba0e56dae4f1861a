package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodValidate(t *testing.T) {
	assert.NoError(t, Period{Start: day(1), End: day(30)}.Validate())
	assert.NoError(t, Period{Start: day(1), End: day(1)}.Validate())
	assert.ErrorIs(t, Period{Start: day(30), End: day(1)}.Validate(), ErrInvertedPeriod)
	assert.ErrorIs(t, Period{End: day(30)}.Validate(), ErrEmptyPeriod)
	assert.ErrorIs(t, Period{Start: day(1)}.Validate(), ErrEmptyPeriod)
}

func TestPeriodOverlaps(t *testing.T) {
	june := Period{Start: day(1), End: day(30)}

	assert.True(t, june.Overlaps(Period{Start: day(15), End: day(20)}))
	assert.True(t, june.Overlaps(Period{Start: day(20), End: day(40)}))
	// Inclusive bounds: touching on a single day is an overlap.
	assert.True(t, june.Overlaps(Period{Start: day(30), End: day(40)}))
	assert.False(t, june.Overlaps(Period{Start: day(31), End: day(40)}))
}

func TestPeriodContains(t *testing.T) {
	june := Period{Start: day(1), End: day(30)}

	assert.True(t, june.Contains(day(1)))
	assert.True(t, june.Contains(day(30)))
	assert.False(t, june.Contains(day(31)))
}
