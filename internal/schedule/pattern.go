package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const dateLayout = "2006-01-02"

var timeLayouts = []string{"15:04", "15:04:05"}

// cronParser accepts standard 5-field specs with an optional CRON_TZ= prefix.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseAnchor combines date and time in loc.
func ParseAnchor(date, clock string, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("%w: date and time are required", ErrValidation)
	}
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrValidation, date)
	}
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, clock)
		if err != nil {
			continue
		}
		return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: time %q must be HH:MM or HH:MM:SS", ErrValidation, clock)
}

// validateAt is the check shared by Validate and Add.
func validateAt(date, clock string, now time.Time, loc *time.Location) (time.Time, error) {
	anchor, err := ParseAnchor(date, clock, loc)
	if err != nil {
		return time.Time{}, err
	}
	if !anchor.After(now) {
		return time.Time{}, fmt.Errorf("%w: %s %s is not in the future", ErrValidation, date, clock)
	}
	return anchor, nil
}

// onceSchedule fires a single time at a fixed instant.
type onceSchedule struct {
	at time.Time
}

func (s onceSchedule) Next(t time.Time) time.Time {
	if s.at.After(t) {
		return s.at
	}
	return time.Time{}
}

// cronSpec derives the recurring spec from the anchor. Seconds are dropped.
func cronSpec(anchor time.Time, freq Frequency) (string, error) {
	var spec string
	switch freq {
	case FrequencyDaily:
		spec = fmt.Sprintf("%d %d * * *", anchor.Minute(), anchor.Hour())
	case FrequencyWeekly:
		spec = fmt.Sprintf("%d %d * * %d", anchor.Minute(), anchor.Hour(), int(anchor.Weekday()))
	case FrequencyMonthly:
		// Months without this day are skipped.
		spec = fmt.Sprintf("%d %d %d * *", anchor.Minute(), anchor.Hour(), anchor.Day())
	default:
		return "", fmt.Errorf("frequency %q has no recurring pattern", freq)
	}
	return spec, nil
}

// buildSchedule turns a job's anchor and frequency into a cron.Schedule.
func buildSchedule(job Job, now time.Time, loc *time.Location) (cron.Schedule, string, error) {
	anchor, err := ParseAnchor(job.Date, job.Time, loc)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTrigger, err)
	}

	if job.Frequency == FrequencyOnce {
		if !anchor.After(now) {
			return nil, "", fmt.Errorf("%w: one-shot time %s already passed", ErrTrigger, anchor.Format(time.RFC3339))
		}
		return onceSchedule{at: anchor}, "once at " + anchor.Format("2006-01-02 15:04:05"), nil
	}

	spec, err := cronSpec(anchor, job.Frequency)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTrigger, err)
	}
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, "", fmt.Errorf("%w: parse %q: %v", ErrTrigger, spec, err)
	}
	// The parser defaults to time.Local; fixed zones have no loadable CRON_TZ name.
	if ss, ok := sched.(*cron.SpecSchedule); ok {
		ss.Location = anchor.Location()
	}
	if sched.Next(now).IsZero() {
		return nil, "", fmt.Errorf("%w: %q never fires", ErrTrigger, spec)
	}
	return sched, "CRON_TZ=" + anchor.Location().String() + " " + spec, nil
}
