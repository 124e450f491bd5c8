package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siakad-hub/siakad-enrollment-hub/pkg/timeutil"
)

func TestParseCronExpressionValidatesFieldCount(t *testing.T) {
	_, err := ParseCronExpression("30 6 * *")
	require.Error(t, err)

	_, err = ParseCronExpression(EveryDayDigest)
	require.NoError(t, err)
}

func TestCronExpressionNextDigestTime(t *testing.T) {
	ce := MustParseCronExpression(EveryDayDigest)

	// Before the digest time: fires the same day at 06:30 WIB.
	before := time.Date(2026, 3, 10, 5, 0, 0, 0, timeutil.WIB)
	next := ce.Next(before)
	assert.Equal(t, time.Date(2026, 3, 10, 6, 30, 0, 0, timeutil.WIB), next)

	// After the digest time: fires the next day.
	after := time.Date(2026, 3, 10, 7, 0, 0, 0, timeutil.WIB)
	next = ce.Next(after)
	assert.Equal(t, time.Date(2026, 3, 11, 6, 30, 0, 0, timeutil.WIB), next)
}

func TestCronExpressionStepField(t *testing.T) {
	ce := MustParseCronExpression(Every15Minutes)

	at := time.Date(2026, 3, 10, 10, 7, 0, 0, timeutil.WIB)
	next := ce.Next(at)
	assert.Equal(t, 15, next.Minute())
	assert.Equal(t, 10, next.Hour())
}

func TestCronExpressionDayOrWeekdayWhenBothRestricted(t *testing.T) {
	// Midnight on the 15th or on any Monday, whichever comes first.
	ce := MustParseCronExpression("0 0 15 * 1")

	// From Tuesday March 10: the 15th (a Sunday) comes before Monday the 16th.
	from := time.Date(2026, 3, 10, 5, 0, 0, 0, timeutil.WIB)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, timeutil.WIB), ce.Next(from))

	// From the 15th itself: the following Monday.
	from = time.Date(2026, 3, 15, 5, 0, 0, 0, timeutil.WIB)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, timeutil.WIB), ce.Next(from))
}

func TestCronExpressionWeekdaySevenIsSunday(t *testing.T) {
	ce := MustParseCronExpression("0 9 * * 7")

	from := time.Date(2026, 3, 10, 5, 0, 0, 0, timeutil.WIB)
	next := ce.Next(from)
	assert.Equal(t, time.Sunday, next.Weekday())
	assert.Equal(t, time.Date(2026, 3, 15, 9, 0, 0, 0, timeutil.WIB), next)
}

func TestParseCronExpressionListsAndRanges(t *testing.T) {
	ce := MustParseCronExpression("0 8-10,14 * * *")

	at := time.Date(2026, 3, 10, 11, 0, 0, 0, timeutil.WIB)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 0, 0, 0, timeutil.WIB), ce.Next(at))
}

func TestParseCronExpressionRejectsOutOfRange(t *testing.T) {
	_, err := ParseCronExpression("60 * * * *")
	require.Error(t, err)

	_, err = ParseCronExpression("* 24 * * *")
	require.Error(t, err)

	_, err = ParseCronExpression("* * 0 * *")
	require.Error(t, err)
}

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(15 * time.Minute)

	at := time.Date(2026, 3, 10, 10, 0, 0, 0, timeutil.WIB)
	assert.Equal(t, at.Add(15*time.Minute), s.Next(at))
	assert.Equal(t, "@every 15m0s", s.String())

	// A zero interval would spin the loop; it falls back to one minute.
	assert.Equal(t, at.Add(time.Minute), NewIntervalSchedule(0).Next(at))
}
