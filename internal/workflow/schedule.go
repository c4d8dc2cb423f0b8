package workflow

import (
	"fmt"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow),
// the format GitHub Actions accepts for scheduled workflows.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRuns returns the next n fire times after from across all cron schedules,
// earliest first. Workflows without schedules return nil.
func (c *Config) NextRuns(from time.Time, n int) ([]time.Time, error) {
	if n <= 0 || len(c.CronSchedules) == 0 {
		return nil, nil
	}
	var runs []time.Time
	for _, expr := range c.CronSchedules {
		sched, err := cronParser.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: cron schedule %q: %w", c.Name, expr, err)
		}
		t := from
		for range n {
			t = sched.Next(t)
			if t.IsZero() {
				break
			}
			runs = append(runs, t)
		}
	}
	slices.SortFunc(runs, func(a, b time.Time) int { return a.Compare(b) })
	runs = slices.CompactFunc(runs, func(a, b time.Time) bool { return a.Equal(b) })
	if len(runs) > n {
		runs = runs[:n]
	}
	return runs, nil
}
