package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"toasthub/internal/models"

	"github.com/google/uuid"
)

// Automation rule operations. Trigger and actions are stored as JSON
// text; the tagged-union marshalling lives on the model types.

func (s *Store) CreateRule(r *models.AutomationRule) error {
	r.ID = uuid.New().String()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt

	trigger, err := json.Marshal(r.Trigger)
	if err != nil {
		return err
	}
	actions, err := json.Marshal(r.Actions)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO automation_rules (id, name, description, category, trigger_config, actions,
			enabled, last_run, next_run, run_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Description, r.Category, string(trigger), string(actions),
		r.Enabled, r.LastRun, r.NextRun, r.RunCount, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func scanRule(scan func(dest ...interface{}) error) (*models.AutomationRule, error) {
	var r models.AutomationRule
	var trigger, actions string
	var lastRun, nextRun sql.NullTime
	if err := scan(&r.ID, &r.Name, &r.Description, &r.Category, &trigger, &actions,
		&r.Enabled, &lastRun, &nextRun, &r.RunCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(trigger), &r.Trigger); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(actions), &r.Actions); err != nil {
		r.Actions = []models.RuleAction{}
	}
	if lastRun.Valid {
		t := lastRun.Time
		r.LastRun = &t
	}
	if nextRun.Valid {
		t := nextRun.Time
		r.NextRun = &t
	}
	return &r, nil
}

const ruleColumns = `id, name, description, category, trigger_config, actions,
	enabled, last_run, next_run, run_count, created_at, updated_at`

func (s *Store) GetRule(id string) (*models.AutomationRule, error) {
	row := s.db.QueryRow(`SELECT `+ruleColumns+` FROM automation_rules WHERE id = ?`, id)
	return scanRule(row.Scan)
}

func (s *Store) ListRules() ([]models.AutomationRule, error) {
	rows, err := s.db.Query(`SELECT ` + ruleColumns + ` FROM automation_rules ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.AutomationRule
	for rows.Next() {
		r, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// ListEnabledRules returns enabled rules only, for the scheduler pass.
func (s *Store) ListEnabledRules() ([]models.AutomationRule, error) {
	rows, err := s.db.Query(`SELECT ` + ruleColumns + ` FROM automation_rules WHERE enabled = 1 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.AutomationRule
	for rows.Next() {
		r, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

func (s *Store) SetRuleEnabled(id string, enabled bool) error {
	res, err := s.db.Exec(
		`UPDATE automation_rules SET enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, time.Now(), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

func (s *Store) DeleteRule(id string) error {
	res, err := s.db.Exec(`DELETE FROM automation_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// MarkRuleRun stamps a completed run and the next due time.
func (s *Store) MarkRuleRun(id string, ranAt time.Time, nextRun *time.Time) error {
	_, err := s.db.Exec(
		`UPDATE automation_rules SET last_run = ?, next_run = ?, run_count = run_count + 1, updated_at = ?
		WHERE id = ?`,
		ranAt, nextRun, time.Now(), id,
	)
	return err
}

// SetRuleNextRun updates only the schedule slot. Used when seeding a
// rule that has never fired, so lastRun and runCount stay untouched.
func (s *Store) SetRuleNextRun(id string, nextRun time.Time) error {
	_, err := s.db.Exec(
		`UPDATE automation_rules SET next_run = ?, updated_at = ? WHERE id = ?`,
		nextRun, time.Now(), id,
	)
	return err
}

// Ticket operations

func (s *Store) CreateTicket(t *models.Ticket) error {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	if t.Status == "" {
		t.Status = "open"
	}
	if t.Priority == "" {
		t.Priority = "normal"
	}
	_, err := s.db.Exec(
		`INSERT INTO tickets (id, client_id, subject, body, status, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ClientID, t.Subject, t.Body, t.Status, t.Priority, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (s *Store) GetTicket(id string) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.QueryRow(
		`SELECT id, client_id, subject, body, status, priority, created_at, updated_at
		FROM tickets WHERE id = ?`, id,
	).Scan(&t.ID, &t.ClientID, &t.Subject, &t.Body, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTickets(status string) ([]models.Ticket, error) {
	query := `SELECT id, client_id, subject, body, status, priority, created_at, updated_at
		FROM tickets ORDER BY created_at DESC`
	args := []interface{}{}
	if status != "" {
		query = `SELECT id, client_id, subject, body, status, priority, created_at, updated_at
			FROM tickets WHERE status = ? ORDER BY created_at DESC`
		args = append(args, status)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.ClientID, &t.Subject, &t.Body, &t.Status, &t.Priority,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *Store) UpdateTicket(t *models.Ticket) error {
	t.UpdatedAt = time.Now()
	res, err := s.db.Exec(
		`UPDATE tickets SET subject = ?, body = ?, status = ?, priority = ?, updated_at = ? WHERE id = ?`,
		t.Subject, t.Body, t.Status, t.Priority, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// Lead operations

func (s *Store) CreateLead(l *models.Lead) error {
	l.ID = uuid.New().String()
	l.CreatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO leads (id, name, business_name, email, phone, service, message, suspected_bot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.BusinessName, l.Email, l.Phone, l.Service, l.Message, l.SuspectedBot, l.CreatedAt,
	)
	return err
}

// ListLeads returns submissions, newest first. Honeypot hits are
// excluded unless includeBots is set.
func (s *Store) ListLeads(includeBots bool) ([]models.Lead, error) {
	query := `SELECT id, name, business_name, email, phone, service, message, suspected_bot, created_at
		FROM leads WHERE suspected_bot = 0 ORDER BY created_at DESC`
	if includeBots {
		query = `SELECT id, name, business_name, email, phone, service, message, suspected_bot, created_at
			FROM leads ORDER BY created_at DESC`
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(&l.ID, &l.Name, &l.BusinessName, &l.Email, &l.Phone, &l.Service,
			&l.Message, &l.SuspectedBot, &l.CreatedAt); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// Campaign operations

func (s *Store) CreateCampaign(c *models.Campaign) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = "draft"
	}
	_, err := s.db.Exec(
		`INSERT INTO campaigns (id, name, subject, status, recipients, opens, clicks, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Subject, c.Status, c.Recipients, c.Opens, c.Clicks, c.SentAt, c.CreatedAt,
	)
	return err
}

func (s *Store) ListCampaigns() ([]models.Campaign, error) {
	rows, err := s.db.Query(
		`SELECT id, name, subject, status, recipients, opens, clicks, sent_at, created_at
		FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		var sentAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.Name, &c.Subject, &c.Status, &c.Recipients, &c.Opens,
			&c.Clicks, &sentAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			t := sentAt.Time
			c.SentAt = &t
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}
