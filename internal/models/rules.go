package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Rule categories.
const (
	CategoryReporting   = "reporting"
	CategoryInventory   = "inventory"
	CategoryMenu        = "menu"
	CategoryLabor       = "labor"
	CategoryPricing     = "pricing"
	CategoryIntegration = "integration"
)

// ValidRuleCategory reports whether c is a known rule category.
func ValidRuleCategory(c string) bool {
	switch c {
	case CategoryReporting, CategoryInventory, CategoryMenu, CategoryLabor, CategoryPricing, CategoryIntegration:
		return true
	}
	return false
}

// TriggerKind discriminates the Trigger union.
type TriggerKind string

const (
	TriggerSchedule  TriggerKind = "schedule"
	TriggerEvent     TriggerKind = "event"
	TriggerThreshold TriggerKind = "threshold"
)

// ScheduleTrigger fires on a recurring schedule.
type ScheduleTrigger struct {
	Frequency string `json:"frequency"` // hourly, daily, weekly
	At        string `json:"at"`        // "HH:MM", unused for hourly
	Weekday   string `json:"weekday"`   // "monday".."sunday", weekly only
}

// EventTrigger fires when an external system emits a named event.
type EventTrigger struct {
	Source string `json:"source"` // e.g. "toast-pos"
	Event  string `json:"event"`  // e.g. "menu.updated"
}

// ThresholdTrigger fires when a metric crosses a boundary.
type ThresholdTrigger struct {
	Metric   string  `json:"metric"`
	Operator string  `json:"operator"` // "gt", "lt", "eq"
	Value    float64 `json:"value"`
}

// Trigger is a tagged union: exactly one variant is populated and it
// must match Kind. The JSON form carries only the selected variant.
type Trigger struct {
	Kind      TriggerKind
	Schedule  *ScheduleTrigger
	Event     *EventTrigger
	Threshold *ThresholdTrigger
}

type triggerJSON struct {
	Type      TriggerKind       `json:"type"`
	Schedule  *ScheduleTrigger  `json:"schedule,omitempty"`
	Event     *EventTrigger     `json:"event,omitempty"`
	Threshold *ThresholdTrigger `json:"threshold,omitempty"`
}

// MarshalJSON emits only the variant selected by Kind, dropping any
// stray non-selected payloads.
func (t Trigger) MarshalJSON() ([]byte, error) {
	out := triggerJSON{Type: t.Kind}
	switch t.Kind {
	case TriggerSchedule:
		out.Schedule = t.Schedule
	case TriggerEvent:
		out.Event = t.Event
	case TriggerThreshold:
		out.Threshold = t.Threshold
	}
	return json.Marshal(out)
}

func (t *Trigger) UnmarshalJSON(data []byte) error {
	var in triggerJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*t = Trigger{Kind: in.Type}
	switch in.Type {
	case TriggerSchedule:
		t.Schedule = in.Schedule
	case TriggerEvent:
		t.Event = in.Event
	case TriggerThreshold:
		t.Threshold = in.Threshold
	}
	return nil
}

// Validate enforces the one-populated-variant invariant.
func (t Trigger) Validate() error {
	switch t.Kind {
	case TriggerSchedule:
		if t.Schedule == nil {
			return fmt.Errorf("schedule trigger missing schedule config")
		}
		switch t.Schedule.Frequency {
		case "hourly", "daily", "weekly":
		default:
			return fmt.Errorf("unknown schedule frequency %q", t.Schedule.Frequency)
		}
	case TriggerEvent:
		if t.Event == nil {
			return fmt.Errorf("event trigger missing event config")
		}
	case TriggerThreshold:
		if t.Threshold == nil {
			return fmt.Errorf("threshold trigger missing threshold config")
		}
	default:
		return fmt.Errorf("unknown trigger type %q", t.Kind)
	}
	return nil
}

// ActionKind discriminates rule actions.
type ActionKind string

const (
	ActionEmail        ActionKind = "email"
	ActionWebhook      ActionKind = "webhook"
	ActionUpdate       ActionKind = "update"
	ActionNotification ActionKind = "notification"
	ActionExport       ActionKind = "export"
)

// RuleAction is an action kind plus its opaque config map. The config
// is interpreted by the executor for that kind, not validated here.
type RuleAction struct {
	Kind   ActionKind        `json:"type"`
	Config map[string]string `json:"config,omitempty"`
}

// Validate checks the action kind only.
func (a RuleAction) Validate() error {
	switch a.Kind {
	case ActionEmail, ActionWebhook, ActionUpdate, ActionNotification, ActionExport:
		return nil
	}
	return fmt.Errorf("unknown action type %q", a.Kind)
}

// AutomationRule models a back-office automation.
type AutomationRule struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Trigger     Trigger      `json:"trigger"`
	Actions     []RuleAction `json:"actions"`
	Enabled     bool         `json:"enabled"`
	LastRun     *time.Time   `json:"lastRun"`
	NextRun     *time.Time   `json:"nextRun"`
	RunCount    int          `json:"runCount"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Validate checks the parts of a rule the API accepts from callers.
func (r AutomationRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !ValidRuleCategory(r.Category) {
		return fmt.Errorf("unknown category %q", r.Category)
	}
	if err := r.Trigger.Validate(); err != nil {
		return err
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("at least one action is required")
	}
	for _, a := range r.Actions {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}
