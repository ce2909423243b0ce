package adminview

import (
	"context"

	"toasthub/internal/models"
	"toasthub/internal/optimistic"
)

// RuleService is the slice of the API the rules pane talks to.
type RuleService interface {
	ListRules(ctx context.Context) ([]models.AutomationRule, error)
	SetRuleEnabled(ctx context.Context, id string, enabled bool) error
	DeleteRule(ctx context.Context, id string) error
}

// Rules holds the automation pane's rule list. Toggle and delete are
// optimistic: the local change lands before the API confirms, and a
// failure restores the exact prior snapshot.
type Rules struct {
	svc   RuleService
	items []models.AutomationRule
}

func NewRules(svc RuleService) *Rules {
	return &Rules{svc: svc}
}

// Items returns the current rule list.
func (r *Rules) Items() []models.AutomationRule {
	return r.items
}

// Refresh replaces the list from the API.
func (r *Rules) Refresh(ctx context.Context) error {
	rules, err := r.svc.ListRules(ctx)
	if err != nil {
		return err
	}
	r.items = rules
	return nil
}

// Toggle flips a rule's enabled flag optimistically. On API failure
// the rule is restored to its pre-toggle value bit-for-bit.
func (r *Rules) Toggle(ctx context.Context, id string) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return nil
	}

	prior := r.items[idx]
	target := !prior.Enabled
	return optimistic.Apply(prior,
		func() { r.items[idx].Enabled = target },
		func() error { return r.svc.SetRuleEnabled(ctx, id, target) },
		func(snapshot models.AutomationRule) {
			if i := r.indexOf(id); i >= 0 {
				r.items[i] = snapshot
			}
		},
	)
}

// Delete removes a rule optimistically, restoring the full prior list
// when the API rejects the delete.
func (r *Rules) Delete(ctx context.Context, id string) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return nil
	}

	prior := make([]models.AutomationRule, len(r.items))
	copy(prior, r.items)

	return optimistic.Apply(prior,
		func() { r.items = append(r.items[:idx:idx], r.items[idx+1:]...) },
		func() error { return r.svc.DeleteRule(ctx, id) },
		func(snapshot []models.AutomationRule) { r.items = snapshot },
	)
}

func (r *Rules) indexOf(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}
