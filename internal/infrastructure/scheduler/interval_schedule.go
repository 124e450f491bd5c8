package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule fires at a fixed period, counted from the previous fire
// time rather than aligned to the wall clock.
type IntervalSchedule struct {
	every time.Duration
}

// NewIntervalSchedule builds a schedule that fires every interval.
// A non-positive interval falls back to one minute; a schedule whose Next
// never advances would spin the scheduler loop.
func NewIntervalSchedule(interval time.Duration) IntervalSchedule {
	if interval <= 0 {
		interval = time.Minute
	}
	return IntervalSchedule{every: interval}
}

// Next returns the fire time following t.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.every)
}

// String formats the schedule in @every notation.
func (s IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.every.String())
}
