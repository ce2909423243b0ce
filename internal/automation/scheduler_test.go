package automation

import (
	"testing"
	"time"

	"toasthub/internal/models"
	"toasthub/internal/store"
	"toasthub/internal/ws"

	"go.uber.org/zap"
)

func testStore(t *testing.T) (*store.Store, func()) {
	t.Helper()

	s, err := store.New(store.Config{
		Backend:    store.BackendSQLite,
		SQLitePath: ":memory:",
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s, func() { s.Close() }
}

func testScheduler(t *testing.T, s *store.Store, now time.Time) *Scheduler {
	t.Helper()

	sc := NewScheduler(s, ws.NewHub(zap.NewNop()), zap.NewNop())
	sc.now = func() time.Time { return now }
	return sc
}

func mustCreateRule(t *testing.T, s *store.Store, rule *models.AutomationRule) {
	t.Helper()
	if err := s.CreateRule(rule); err != nil {
		t.Fatalf("Failed to create rule: %v", err)
	}
}

func TestNextRunHourly(t *testing.T) {
	after := time.Date(2026, 3, 1, 9, 42, 13, 0, time.UTC)
	next := NextRun(models.ScheduleTrigger{Frequency: "hourly"}, after)

	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Expected %v, got %v", want, next)
	}
}

func TestNextRunDaily(t *testing.T) {
	morning := time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC)
	next := NextRun(models.ScheduleTrigger{Frequency: "daily", At: "06:30"}, morning)
	want := time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Same-day slot: expected %v, got %v", want, next)
	}

	evening := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	next = NextRun(models.ScheduleTrigger{Frequency: "daily", At: "06:30"}, evening)
	want = time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Next-day slot: expected %v, got %v", want, next)
	}
}

func TestNextRunDailyDefaultsTime(t *testing.T) {
	after := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	next := NextRun(models.ScheduleTrigger{Frequency: "daily", At: "garbage"}, after)
	want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Expected default 06:00, got %v", next)
	}
}

func TestNextRunWeekly(t *testing.T) {
	// March 1 2026 is a Sunday.
	sunday := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	next := NextRun(models.ScheduleTrigger{Frequency: "weekly", At: "09:00", Weekday: "wednesday"}, sunday)
	want := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Expected Wednesday slot %v, got %v", want, next)
	}

	// Same weekday but the slot already passed: a full week out.
	next = NextRun(models.ScheduleTrigger{Frequency: "weekly", At: "09:00", Weekday: "sunday"}, sunday)
	want = time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Expected next Sunday %v, got %v", want, next)
	}

	// Unknown weekday falls back to Monday.
	next = NextRun(models.ScheduleTrigger{Frequency: "weekly", At: "09:00", Weekday: "someday"}, sunday)
	if next.Weekday() != time.Monday {
		t.Errorf("Expected Monday fallback, got %v", next.Weekday())
	}
}

func TestRunDueSeedsNewRules(t *testing.T) {
	s, cleanup := testStore(t)
	defer cleanup()

	rule := &models.AutomationRule{
		Name:     "Daily digest",
		Category: models.CategoryReporting,
		Trigger: models.Trigger{
			Kind:     models.TriggerSchedule,
			Schedule: &models.ScheduleTrigger{Frequency: "daily", At: "06:00"},
		},
		Actions: []models.RuleAction{{Kind: models.ActionEmail}},
		Enabled: true,
	}
	mustCreateRule(t, s, rule)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sc := testScheduler(t, s, now)

	if err := sc.RunDue(); err != nil {
		t.Fatalf("RunDue failed: %v", err)
	}

	// First pass seeds nextRun without firing.
	got, err := s.GetRule(rule.ID)
	if err != nil {
		t.Fatalf("Failed to get rule: %v", err)
	}
	if got.NextRun == nil {
		t.Fatal("Expected nextRun to be seeded")
	}
	if !got.NextRun.After(now) {
		t.Errorf("Expected future nextRun, got %v", got.NextRun)
	}

	// Seeding is not a run: the rule has never executed.
	if got.RunCount != 0 {
		t.Errorf("Seed pass incremented runCount: got %d, want 0", got.RunCount)
	}
	if got.LastRun != nil {
		t.Errorf("Seed pass stamped lastRun: got %v, want nil", got.LastRun)
	}

	// The seeded slot fires like any other once it comes due.
	sc.now = func() time.Time { return got.NextRun.Add(time.Minute) }
	if err := sc.RunDue(); err != nil {
		t.Fatalf("RunDue failed: %v", err)
	}
	fired, err := s.GetRule(rule.ID)
	if err != nil {
		t.Fatalf("Failed to get rule: %v", err)
	}
	if fired.RunCount != 1 {
		t.Errorf("Expected runCount 1 after first real run, got %d", fired.RunCount)
	}
	if fired.LastRun == nil {
		t.Error("Expected lastRun to be stamped by the first real run")
	}
}

func TestRunDueFiresDueRules(t *testing.T) {
	s, cleanup := testStore(t)
	defer cleanup()

	rule := &models.AutomationRule{
		Name:     "Daily digest",
		Category: models.CategoryReporting,
		Trigger: models.Trigger{
			Kind:     models.TriggerSchedule,
			Schedule: &models.ScheduleTrigger{Frequency: "daily", At: "06:00"},
		},
		Actions: []models.RuleAction{{Kind: models.ActionEmail}},
		Enabled: true,
	}
	mustCreateRule(t, s, rule)

	due := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	if err := s.MarkRuleRun(rule.ID, due.AddDate(0, 0, -1), &due); err != nil {
		t.Fatalf("Failed to seed rule: %v", err)
	}

	now := due.Add(5 * time.Minute)
	sc := testScheduler(t, s, now)
	if err := sc.RunDue(); err != nil {
		t.Fatalf("RunDue failed: %v", err)
	}

	got, err := s.GetRule(rule.ID)
	if err != nil {
		t.Fatalf("Failed to get rule: %v", err)
	}
	if got.RunCount != 2 {
		t.Errorf("Expected runCount 2 after firing, got %d", got.RunCount)
	}
	if got.LastRun == nil || !got.LastRun.Equal(now) {
		t.Errorf("Expected lastRun %v, got %v", now, got.LastRun)
	}
	if got.NextRun == nil || !got.NextRun.After(now) {
		t.Errorf("Expected future nextRun, got %v", got.NextRun)
	}
}

func TestRunDueSkipsDisabledAndNotDue(t *testing.T) {
	s, cleanup := testStore(t)
	defer cleanup()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(6 * time.Hour)

	notDue := &models.AutomationRule{
		Name:     "Not due",
		Category: models.CategoryReporting,
		Trigger: models.Trigger{
			Kind:     models.TriggerSchedule,
			Schedule: &models.ScheduleTrigger{Frequency: "daily", At: "18:00"},
		},
		Actions: []models.RuleAction{{Kind: models.ActionEmail}},
		Enabled: true,
	}
	mustCreateRule(t, s, notDue)
	if err := s.MarkRuleRun(notDue.ID, now.AddDate(0, 0, -1), &future); err != nil {
		t.Fatalf("Failed to seed rule: %v", err)
	}

	disabled := &models.AutomationRule{
		Name:     "Disabled",
		Category: models.CategoryReporting,
		Trigger: models.Trigger{
			Kind:     models.TriggerSchedule,
			Schedule: &models.ScheduleTrigger{Frequency: "hourly"},
		},
		Actions: []models.RuleAction{{Kind: models.ActionEmail}},
		Enabled: false,
	}
	mustCreateRule(t, s, disabled)

	sc := testScheduler(t, s, now)
	if err := sc.RunDue(); err != nil {
		t.Fatalf("RunDue failed: %v", err)
	}

	got, _ := s.GetRule(notDue.ID)
	if got.RunCount != 1 {
		t.Errorf("Not-due rule fired: runCount %d", got.RunCount)
	}
	got, _ = s.GetRule(disabled.ID)
	if got.RunCount != 0 || got.NextRun != nil {
		t.Errorf("Disabled rule was touched: %+v", got)
	}
}

func TestRunDueIgnoresEventTriggers(t *testing.T) {
	s, cleanup := testStore(t)
	defer cleanup()

	rule := &models.AutomationRule{
		Name:     "On menu update",
		Category: models.CategoryMenu,
		Trigger: models.Trigger{
			Kind:  models.TriggerEvent,
			Event: &models.EventTrigger{Source: "toast-pos", Event: "menu.updated"},
		},
		Actions: []models.RuleAction{{Kind: models.ActionWebhook}},
		Enabled: true,
	}
	mustCreateRule(t, s, rule)

	sc := testScheduler(t, s, time.Now())
	if err := sc.RunDue(); err != nil {
		t.Fatalf("RunDue failed: %v", err)
	}

	got, _ := s.GetRule(rule.ID)
	if got.RunCount != 0 || got.NextRun != nil {
		t.Errorf("Event rule must not be scheduled: %+v", got)
	}
}
