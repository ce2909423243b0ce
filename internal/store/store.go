package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"toasthub/internal/models"

	"github.com/google/uuid"
)

type Store struct {
	db      *sql.DB
	backend DataBackend
}

// New creates a new Store from a Config.
// Use ConfigFromEnv() to create config from environment variables.
func New(cfg Config) (*Store, error) {
	backend, err := NewDataBackend(cfg)
	if err != nil {
		return nil, err
	}

	db, err := backend.Connect()
	if err != nil {
		return nil, err
	}

	log.Printf("Database: %s", backend.Description())

	store := &Store{db: db, backend: backend}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

// Backend returns the data backend
func (s *Store) Backend() DataBackend {
	return s.backend
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		company TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		portal_enabled INTEGER NOT NULL DEFAULT 0,
		support_plan_tier TEXT DEFAULT '',
		support_plan_status TEXT DEFAULT '',
		storage_folder TEXT DEFAULT '',
		avatar_url TEXT DEFAULT '',
		notes TEXT DEFAULT '',
		timezone TEXT DEFAULT 'America/New_York',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reps (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		territory TEXT DEFAULT '',
		slug TEXT NOT NULL UNIQUE,
		portal_enabled INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		avatar_url TEXT DEFAULT '',
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT DEFAULT '',
		status TEXT NOT NULL DEFAULT 'open',
		priority TEXT NOT NULL DEFAULT 'normal',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		business_name TEXT DEFAULT '',
		email TEXT NOT NULL,
		phone TEXT DEFAULT '',
		service TEXT DEFAULT '',
		message TEXT NOT NULL,
		suspected_bot INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		subject TEXT DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		recipients INTEGER NOT NULL DEFAULT 0,
		opens INTEGER NOT NULL DEFAULT 0,
		clicks INTEGER NOT NULL DEFAULT 0,
		sent_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS automation_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT DEFAULT '',
		category TEXT NOT NULL,
		trigger_config TEXT NOT NULL,
		actions TEXT NOT NULL DEFAULT '[]',
		enabled INTEGER NOT NULL DEFAULT 1,
		last_run DATETIME,
		next_run DATETIME,
		run_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tickets_client_id ON tickets(client_id);
	CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
	CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
	CREATE INDEX IF NOT EXISTS idx_rules_enabled ON automation_rules(enabled);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Slugify derives a URL slug from a company or person name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, "'", "")
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > 50 {
		out = out[:50]
	}
	return out
}

// uniqueSlug appends a short random suffix when the base slug is taken.
func (s *Store) uniqueSlug(table, base string) (string, error) {
	if base == "" {
		base = uuid.New().String()[:8]
	}
	var existing string
	err := s.db.QueryRow(fmt.Sprintf(`SELECT id FROM %s WHERE slug = ?`, table), base).Scan(&existing)
	if err == sql.ErrNoRows {
		return base, nil
	}
	if err != nil {
		return "", err
	}
	return base + "-" + uuid.New().String()[:6], nil
}

// Client operations

func (s *Store) CreateClient(c *models.Client) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	if c.Slug == "" {
		c.Slug = Slugify(c.Company)
	}
	slug, err := s.uniqueSlug("clients", c.Slug)
	if err != nil {
		return err
	}
	c.Slug = slug

	if c.StorageFolder == "" {
		c.StorageFolder = "clients/" + c.Slug
	}
	if c.Timezone == "" {
		c.Timezone = "America/New_York"
	}

	_, err = s.db.Exec(
		`INSERT INTO clients (id, email, name, company, slug, portal_enabled, support_plan_tier,
			support_plan_status, storage_folder, avatar_url, notes, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Email, c.Name, c.Company, c.Slug, c.PortalEnabled, c.SupportPlanTier,
		c.SupportPlanStatus, c.StorageFolder, c.AvatarURL, c.Notes, c.Timezone, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (s *Store) GetClient(id string) (*models.Client, error) {
	var c models.Client
	err := s.db.QueryRow(
		`SELECT id, email, name, company, slug, portal_enabled, support_plan_tier, support_plan_status,
			storage_folder, avatar_url, notes, timezone, created_at, updated_at
		FROM clients WHERE id = ?`, id,
	).Scan(&c.ID, &c.Email, &c.Name, &c.Company, &c.Slug, &c.PortalEnabled, &c.SupportPlanTier,
		&c.SupportPlanStatus, &c.StorageFolder, &c.AvatarURL, &c.Notes, &c.Timezone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListClients() ([]models.Client, error) {
	rows, err := s.db.Query(
		`SELECT id, email, name, company, slug, portal_enabled, support_plan_tier, support_plan_status,
			storage_folder, avatar_url, notes, timezone, created_at, updated_at
		FROM clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Email, &c.Name, &c.Company, &c.Slug, &c.PortalEnabled,
			&c.SupportPlanTier, &c.SupportPlanStatus, &c.StorageFolder, &c.AvatarURL, &c.Notes,
			&c.Timezone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *Store) UpdateClient(c *models.Client) error {
	c.UpdatedAt = time.Now()
	res, err := s.db.Exec(
		`UPDATE clients SET email = ?, name = ?, company = ?, portal_enabled = ?, support_plan_tier = ?,
			support_plan_status = ?, storage_folder = ?, avatar_url = ?, notes = ?, timezone = ?, updated_at = ?
		WHERE id = ?`,
		c.Email, c.Name, c.Company, c.PortalEnabled, c.SupportPlanTier, c.SupportPlanStatus,
		c.StorageFolder, c.AvatarURL, c.Notes, c.Timezone, c.UpdatedAt, c.ID,
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

func (s *Store) CountClients() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM clients`).Scan(&n)
	return n, err
}

// Rep operations

func (s *Store) CreateRep(r *models.Rep) error {
	r.ID = uuid.New().String()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt

	if r.Status == "" {
		r.Status = models.RepPending
	}
	if r.Slug == "" {
		r.Slug = Slugify(r.Name)
	}
	slug, err := s.uniqueSlug("reps", r.Slug)
	if err != nil {
		return err
	}
	r.Slug = slug

	_, err = s.db.Exec(
		`INSERT INTO reps (id, email, name, territory, slug, portal_enabled, status, avatar_url, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Email, r.Name, r.Territory, r.Slug, r.PortalEnabled, r.Status, r.AvatarURL, r.Notes, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *Store) GetRep(id string) (*models.Rep, error) {
	var r models.Rep
	err := s.db.QueryRow(
		`SELECT id, email, name, territory, slug, portal_enabled, status, avatar_url, notes, created_at, updated_at
		FROM reps WHERE id = ?`, id,
	).Scan(&r.ID, &r.Email, &r.Name, &r.Territory, &r.Slug, &r.PortalEnabled, &r.Status, &r.AvatarURL,
		&r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListReps() ([]models.Rep, error) {
	rows, err := s.db.Query(
		`SELECT id, email, name, territory, slug, portal_enabled, status, avatar_url, notes, created_at, updated_at
		FROM reps ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reps []models.Rep
	for rows.Next() {
		var r models.Rep
		if err := rows.Scan(&r.ID, &r.Email, &r.Name, &r.Territory, &r.Slug, &r.PortalEnabled,
			&r.Status, &r.AvatarURL, &r.Notes, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		reps = append(reps, r)
	}
	return reps, rows.Err()
}

func (s *Store) UpdateRep(r *models.Rep) error {
	r.UpdatedAt = time.Now()
	res, err := s.db.Exec(
		`UPDATE reps SET email = ?, name = ?, territory = ?, portal_enabled = ?, status = ?,
			avatar_url = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		r.Email, r.Name, r.Territory, r.PortalEnabled, r.Status, r.AvatarURL, r.Notes, r.UpdatedAt, r.ID,
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

func (s *Store) CountReps() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM reps`).Scan(&n)
	return n, err
}

// Session operations

func (s *Store) CreateSession(duration time.Duration) (*models.Session, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	sess := &models.Session{
		Token:     hex.EncodeToString(buf),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(duration),
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (token, created_at, expires_at) VALUES (?, ?, ?)`,
		sess.Token, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) GetSession(token string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRow(
		`SELECT token, created_at, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&sess.Token, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) DeleteSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// Config KV operations. Values are JSON blobs.

func (s *Store) GetConfig(key string, out interface{}) error {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

func (s *Store) SetConfig(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(raw),
	)
	return err
}

// DashboardStats aggregates the admin overview counters in one query.
func (s *Store) DashboardStats() (*models.DashboardStats, error) {
	var st models.DashboardStats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM clients),
			(SELECT COUNT(*) FROM reps),
			(SELECT COUNT(*) FROM tickets WHERE status IN ('open', 'in_progress')),
			(SELECT COUNT(*) FROM leads WHERE suspected_bot = 0),
			(SELECT COUNT(*) FROM automation_rules WHERE enabled = 1),
			(SELECT COUNT(*) FROM campaigns WHERE status = 'sent')
	`).Scan(&st.ClientCount, &st.RepCount, &st.OpenTickets, &st.LeadCount, &st.EnabledRules, &st.SentCampaigns)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
