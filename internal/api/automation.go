package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"toasthub/internal/models"
	"toasthub/internal/ws"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Automation rule handlers. Toggle and delete broadcast over the hub
// so open admin consoles stay current.

func (a *API) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := a.store.ListRules()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load automation rules")
		return
	}
	if rules == nil {
		rules = []models.AutomationRule{}
	}
	respondData(w, http.StatusOK, rules)
}

func (a *API) createRule(w http.ResponseWriter, r *http.Request) {
	var rule models.AutomationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := rule.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule.ID = ""
	rule.LastRun = nil
	rule.RunCount = 0
	if err := a.store.CreateRule(&rule); err != nil {
		a.logger.Error("failed to create rule", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to save rule")
		return
	}

	a.hub.Broadcast(ws.Event{
		Type:      "rule_update",
		RuleID:    rule.ID,
		Payload:   rule,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	respondData(w, http.StatusCreated, rule)
}

// patchRule only supports toggling the enabled flag.
func (a *API) patchRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	if err := a.store.SetRuleEnabled(id, *req.Enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Rule not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to update rule")
		return
	}

	a.hub.Broadcast(ws.Event{
		Type:      "rule_update",
		RuleID:    id,
		Payload:   map[string]bool{"enabled": *req.Enabled},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (a *API) deleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := a.store.DeleteRule(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Rule not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to delete rule")
		return
	}

	a.hub.Broadcast(ws.Event{
		Type:      "rule_delete",
		RuleID:    id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
