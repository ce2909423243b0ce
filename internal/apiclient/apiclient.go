// Package apiclient is the typed client for the /api surface. The
// console packages (adminview, featuregate, contact) talk to the
// server through it; it decodes the response envelope and separates
// server rejections from transport failures.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"toasthub/internal/adminview"
	"toasthub/internal/contact"
	"toasthub/internal/featuregate"
	"toasthub/internal/models"
)

// RequestError is a request that reached the server and was rejected.
// Anything else returned by the client is a transport failure.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// RejectedMessage returns the server's error text. Callers that need
// to distinguish rejections from transport failures assert on this
// method rather than importing the package.
func (e *RequestError) RejectedMessage() string { return e.Message }

// Client talks to one Toast Hub server. The session cookie set by
// login is kept in the jar, so one Client is one authenticated
// session.
type Client struct {
	base string
	http *http.Client
}

func New(base string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		base: base,
		http: &http.Client{Jar: jar, Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do sends one JSON request and decodes the envelope into out. A
// success:false body becomes a *RequestError.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return &RequestError{Status: res.StatusCode, Message: msg}
	}
	if out != nil && env.Data != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// Auth

// VerifyAdmin asks whether the current session is authenticated. The
// endpoint never uses the envelope and never errors on a negative.
func (c *Client) VerifyAdmin(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/auth/verify", nil)
	if err != nil {
		return false, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	var out struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Authenticated, nil
}

// Login submits the admin password. Rejections come back in the
// result, not as an error; errors are transport-level only.
func (c *Client) Login(ctx context.Context, password string) (adminview.LoginResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/auth/login",
		bytes.NewReader(mustJSON(map[string]string{"password": password})))
	if err != nil {
		return adminview.LoginResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return adminview.LoginResult{}, err
	}
	defer res.Body.Close()

	var out struct {
		Success           bool `json:"success"`
		AttemptsRemaining *int `json:"attemptsRemaining"`
		RetryAfter        *int `json:"retryAfter"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return adminview.LoginResult{}, err
	}
	return adminview.LoginResult{
		OK:                out.Success,
		AttemptsRemaining: out.AttemptsRemaining,
		RetryAfter:        out.RetryAfter,
	}, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Contact

// SubmitLead sends the public contact form and returns the server's
// confirmation message.
func (c *Client) SubmitLead(ctx context.Context, f contact.Form) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/contact", f, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Feature flags + availability

func (c *Client) FeatureFlags(ctx context.Context) (map[string]bool, error) {
	var out struct {
		Flags map[string]bool `json:"flags"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/admin/feature-flags", nil, &out); err != nil {
		return nil, err
	}
	return out.Flags, nil
}

func (c *Client) SetFeatureFlags(ctx context.Context, flags map[string]bool) error {
	return c.do(ctx, http.MethodPut, "/api/admin/feature-flags",
		map[string]interface{}{"flags": flags}, nil)
}

func (c *Client) Availability(ctx context.Context) (*models.Availability, error) {
	var out models.Availability
	if err := c.do(ctx, http.MethodGet, "/api/availability", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetAvailability(ctx context.Context, a models.Availability) error {
	return c.do(ctx, http.MethodPut, "/api/admin/availability", a, nil)
}

// Clients

func (c *Client) ListClients(ctx context.Context) ([]models.Client, error) {
	var out []models.Client
	if err := c.do(ctx, http.MethodGet, "/api/admin/clients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateClient(ctx context.Context, cl models.Client) (*models.Client, error) {
	var out models.Client
	if err := c.do(ctx, http.MethodPost, "/api/admin/clients", cl, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateClient(ctx context.Context, cl models.Client) (*models.Client, error) {
	var out models.Client
	path := "/api/admin/clients/" + url.PathEscape(cl.ID)
	if err := c.do(ctx, http.MethodPut, path, cl, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reps

func (c *Client) ListReps(ctx context.Context) ([]models.Rep, error) {
	var out []models.Rep
	if err := c.do(ctx, http.MethodGet, "/api/admin/reps", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateRep(ctx context.Context, r models.Rep) (*models.Rep, error) {
	var out models.Rep
	if err := c.do(ctx, http.MethodPost, "/api/admin/reps", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRep(ctx context.Context, r models.Rep) (*models.Rep, error) {
	var out models.Rep
	path := "/api/admin/reps/" + url.PathEscape(r.ID)
	if err := c.do(ctx, http.MethodPut, path, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tickets, campaigns, leads

func (c *Client) ListTickets(ctx context.Context, status string) ([]models.Ticket, error) {
	path := "/api/admin/tickets"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out []models.Ticket
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTicket(ctx context.Context, t models.Ticket) (*models.Ticket, error) {
	var out models.Ticket
	if err := c.do(ctx, http.MethodPost, "/api/admin/tickets", t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var out []models.Campaign
	if err := c.do(ctx, http.MethodGet, "/api/admin/campaigns", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListLeads(ctx context.Context, includeBots bool) ([]models.Lead, error) {
	path := "/api/admin/leads"
	if includeBots {
		path += "?includeBots=true"
	}
	var out []models.Lead
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats fetches the dashboard counters in one round trip.
func (c *Client) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var out models.DashboardStats
	if err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Automation rules

func (c *Client) ListRules(ctx context.Context) ([]models.AutomationRule, error) {
	var out []models.AutomationRule
	if err := c.do(ctx, http.MethodGet, "/api/automation/rules", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateRule(ctx context.Context, r models.AutomationRule) (*models.AutomationRule, error) {
	var out models.AutomationRule
	if err := c.do(ctx, http.MethodPost, "/api/automation/rules", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	path := "/api/automation/rules/" + url.PathEscape(id)
	return c.do(ctx, http.MethodPatch, path, map[string]bool{"enabled": enabled}, nil)
}

func (c *Client) DeleteRule(ctx context.Context, id string) error {
	path := "/api/automation/rules/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func mustJSON(v interface{}) []byte {
	buf, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return buf
}

// Interface checks against the console packages.
var (
	_ adminview.DataSource  = (*Client)(nil)
	_ adminview.AuthService = (*Client)(nil)
	_ adminview.RuleService = (*Client)(nil)
	_ contact.Service       = (*Client)(nil)
	_ featuregate.Service   = (*Client)(nil)
)
