package schedule

import (
	"time"

	"github.com/RomanDevelop/alien-manager/common"
)

type Rules struct {
	StartDelay time.Duration
	Duration   time.Duration

	timeNow func() time.Time
}

func New(startDelay, duration time.Duration) *Rules {
	return &Rules{StartDelay: startDelay, Duration: duration, timeNow: time.Now}
}

func Default() *Rules {
	return New(common.DefaultStartDelay, common.DefaultDuration)
}

// WithClock replaces the time source.
func (r *Rules) WithClock(timeNow func() time.Time) *Rules {
	r.timeNow = timeNow
	return r
}

func (r *Rules) Now() time.Time {
	return r.timeNow().UTC().Truncate(time.Second)
}

// DeployWindow returns start and end of a presale deployed right now.
// Both are whole seconds since the contract stores unix timestamps.
func (r *Rules) DeployWindow() (start, end time.Time) {
	now := r.Now()
	return now.Add(r.StartDelay), now.Add(r.Duration)
}

// Extend returns a new end time Duration from now. Start stays as is,
// so the result must still be after it.
func (r *Rules) Extend(start time.Time, duration time.Duration) (time.Time, error) {
	end := r.Now().Add(duration)
	if !end.After(start) {
		return time.Time{}, common.ErrInvalidTimes
	}
	return end, nil
}

func Phase(now, start, end time.Time, paused bool) common.Phase {
	switch {
	case now.Before(start):
		return common.BeforeStart
	case now.After(end):
		return common.Ended
	case paused:
		return common.Paused
	}
	return common.Active
}

func ValidateTimes(start, end time.Time) error {
	if !end.After(start) {
		return common.ErrInvalidTimes
	}
	return nil
}

// TimeLeft splits the time until end into whole days and hours.
func TimeLeft(now, end time.Time) (days, hours int) {
	left := end.Sub(now)
	if left <= 0 {
		return 0, 0
	}
	days = int(left / (24 * time.Hour))
	hours = int((left % (24 * time.Hour)) / time.Hour)
	return days, hours
}
