package automation

import (
	"context"
	"strings"
	"time"

	"toasthub/internal/models"
	"toasthub/internal/store"
	"toasthub/internal/ws"

	"go.uber.org/zap"
)

// Scheduler walks enabled rules on a fixed tick and fires the ones
// whose schedule trigger is due. Event and threshold triggers are
// stored but not fired here; there is no event bus in this deployment.
type Scheduler struct {
	store  *store.Store
	hub    *ws.Hub
	logger *zap.Logger

	interval time.Duration
	now      func() time.Time
}

func NewScheduler(s *store.Store, hub *ws.Hub, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:    s,
		hub:      hub,
		logger:   logger,
		interval: time.Minute,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (sc *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sc.RunDue(); err != nil {
				sc.logger.Error("rule pass failed", zap.Error(err))
			}
		}
	}
}

// RunDue fires every enabled schedule-trigger rule whose next run is
// due, stamping lastRun/nextRun/runCount and broadcasting the run.
func (sc *Scheduler) RunDue() error {
	rules, err := sc.store.ListEnabledRules()
	if err != nil {
		return err
	}

	now := sc.now()
	for _, rule := range rules {
		if rule.Trigger.Kind != models.TriggerSchedule || rule.Trigger.Schedule == nil {
			continue
		}

		due := rule.NextRun
		if due == nil {
			// Never scheduled; seed the first slot without firing.
			// lastRun and runCount must stay zero until a real run.
			next := NextRun(*rule.Trigger.Schedule, now)
			if err := sc.store.SetRuleNextRun(rule.ID, next); err != nil {
				return err
			}
			continue
		}
		if due.After(now) {
			continue
		}

		next := NextRun(*rule.Trigger.Schedule, now)
		if err := sc.store.MarkRuleRun(rule.ID, now, &next); err != nil {
			return err
		}

		sc.logger.Info("automation rule ran",
			zap.String("rule", rule.Name),
			zap.String("category", rule.Category),
			zap.Time("nextRun", next))
		sc.hub.Broadcast(ws.Event{
			Type:   "rule_run",
			RuleID: rule.ID,
			Payload: map[string]interface{}{
				"name":     rule.Name,
				"runCount": rule.RunCount + 1,
				"nextRun":  next.UTC().Format(time.RFC3339),
			},
			Timestamp: now.UTC().Format(time.RFC3339),
		})
	}
	return nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NextRun computes the next due time after "after" for a schedule
// trigger. Unknown or missing fields fall back to sensible defaults
// rather than erroring; validation happens at rule creation.
func NextRun(s models.ScheduleTrigger, after time.Time) time.Time {
	switch s.Frequency {
	case "hourly":
		return after.Truncate(time.Hour).Add(time.Hour)

	case "daily":
		hh, mm := parseAt(s.At)
		next := time.Date(after.Year(), after.Month(), after.Day(), hh, mm, 0, 0, after.Location())
		if !next.After(after) {
			next = next.AddDate(0, 0, 1)
		}
		return next

	case "weekly":
		hh, mm := parseAt(s.At)
		wd, ok := weekdays[strings.ToLower(s.Weekday)]
		if !ok {
			wd = time.Monday
		}
		next := time.Date(after.Year(), after.Month(), after.Day(), hh, mm, 0, 0, after.Location())
		for next.Weekday() != wd || !next.After(after) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}

	// Unknown frequency: push a day out so the rule doesn't spin.
	return after.AddDate(0, 0, 1)
}

// parseAt reads "HH:MM", defaulting to 06:00.
func parseAt(at string) (int, int) {
	hh, mm := 6, 0
	if len(at) == 5 && at[2] == ':' {
		h := int(at[0]-'0')*10 + int(at[1]-'0')
		m := int(at[3]-'0')*10 + int(at[4]-'0')
		if h >= 0 && h < 24 && m >= 0 && m < 60 {
			hh, mm = h, m
		}
	}
	return hh, mm
}
