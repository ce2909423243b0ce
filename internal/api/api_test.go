package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"toasthub/internal/auth"
	"toasthub/internal/store"
	"toasthub/internal/ws"

	"go.uber.org/zap"
)

const testPassword = "testpassword123"

// testAPI creates an API backed by in-memory SQLite. No object
// storage, so upload endpoints answer 503.
func testAPI(t *testing.T) (*API, func()) {
	t.Helper()

	s, err := store.New(store.Config{
		Backend:    store.BackendSQLite,
		SQLitePath: ":memory:",
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	am, err := auth.New(testPassword)
	if err != nil {
		t.Fatalf("Failed to create auth manager: %v", err)
	}

	hub := ws.NewHub(zap.NewNop())
	go hub.Run()

	api := New(s, am, hub, nil, zap.NewNop())

	cleanup := func() {
		s.Close()
	}
	return api, cleanup
}

func doJSON(t *testing.T, api *API, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf []byte
	if body != nil {
		var err error
		buf, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	api.Routes().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode body %q: %v", w.Body.String(), err)
	}
	return out
}

// getValidToken logs in and returns the session token from the cookie.
func getValidToken(t *testing.T, api *API) string {
	t.Helper()

	w := doJSON(t, api, "POST", "/auth/login", "", map[string]string{"password": testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to authenticate: %d - %s", w.Code, w.Body.String())
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c.Value
		}
	}
	t.Fatal("No session cookie set on login")
	return ""
}

func TestVerifyUnauthenticated(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()

	w := doJSON(t, api, "GET", "/auth/verify", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["authenticated"] != false {
		t.Errorf("Expected authenticated false, got %v", body)
	}
}

func TestLoginVerifyLogout(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()

	token := getValidToken(t, api)

	w := doJSON(t, api, "GET", "/auth/verify", token, nil)
	body := decodeBody(t, w)
	if body["authenticated"] != true {
		t.Errorf("Expected authenticated true, got %v", body)
	}

	w = doJSON(t, api, "POST", "/auth/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Logout failed: %d", w.Code)
	}

	w = doJSON(t, api, "GET", "/auth/verify", token, nil)
	body = decodeBody(t, w)
	if body["authenticated"] != false {
		t.Errorf("Expected authenticated false after logout, got %v", body)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()

	w := doJSON(t, api, "POST", "/auth/login", "", map[string]string{"password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Errorf("Expected success false, got %v", body)
	}
	if body["attemptsRemaining"] != float64(2) {
		t.Errorf("Expected 2 attempts remaining, got %v", body["attemptsRemaining"])
	}
}

func TestLoginLockout(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()

	for i, want := range []float64{2, 1, 0} {
		w := doJSON(t, api, "POST", "/auth/login", "", map[string]string{"password": "nope"})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("Attempt %d: expected 401, got %d", i+1, w.Code)
		}
		body := decodeBody(t, w)
		if body["attemptsRemaining"] != want {
			t.Errorf("Attempt %d: expected %v remaining, got %v", i+1, want, body["attemptsRemaining"])
		}
	}

	w := doJSON(t, api, "POST", "/auth/login", "", map[string]string{"password": "nope"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 on 4th failure, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["retryAfter"] != float64(30) {
		t.Errorf("Expected retryAfter 30, got %v", body["retryAfter"])
	}

	// Correct password is also rejected while locked.
	w = doJSON(t, api, "POST", "/auth/login", "", map[string]string{"password": testPassword})
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 for correct password during lockout, got %d", w.Code)
	}
}

func TestLockoutIsPerIP(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()

	for i := 0; i < 4; i++ {
		req := httptest.NewRequest("POST", "/auth/login",
			bytes.NewReader([]byte(`{"password":"nope"}`)))
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		w := httptest.NewRecorder()
		api.Routes().ServeHTTP(w, req)
	}

	// A different address still gets a fresh budget.
	req := httptest.NewRequest("POST", "/auth/login",
		bytes.NewReader([]byte(`{"password":"`+testPassword+`"}`)))
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	w := httptest.NewRecorder()
	api.Routes().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected other IP to log in, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()

	for _, path := range []string{"/admin/clients", "/admin/stats", "/automation/rules"} {
		w := doJSON(t, api, "GET", path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestClientCRUD(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()
	token := getValidToken(t, api)

	// Create
	w := doJSON(t, api, "POST", "/admin/clients", token, map[string]interface{}{
		"name":    "Joe Smith",
		"company": "Joe's Diner",
		"email":   "owner@joesdiner.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d - %s", w.Code, w.Body.String())
	}
	data := decodeBody(t, w)["data"].(map[string]interface{})
	id := data["id"].(string)
	if data["slug"] != "joes-diner" {
		t.Errorf("Expected slug joes-diner, got %v", data["slug"])
	}
	if data["storageFolder"] != "clients/joes-diner" {
		t.Errorf("Expected storage folder, got %v", data["storageFolder"])
	}

	// Validation
	w = doJSON(t, api, "POST", "/admin/clients", token, map[string]interface{}{
		"name": "No Email", "company": "X", "email": "not-an-email",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad email, got %d", w.Code)
	}

	// Update
	w = doJSON(t, api, "PUT", "/admin/clients/"+id, token, map[string]interface{}{
		"name": "Joe Smith", "company": "Joe's Diner", "email": "owner@joesdiner.com",
		"notes": "premium support",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d - %s", w.Code, w.Body.String())
	}
	data = decodeBody(t, w)["data"].(map[string]interface{})
	if data["notes"] != "premium support" {
		t.Errorf("Expected updated notes, got %v", data["notes"])
	}

	// Update of a missing client
	w = doJSON(t, api, "PUT", "/admin/clients/missing", token, map[string]interface{}{
		"email": "x@x.com",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	// List
	w = doJSON(t, api, "GET", "/admin/clients", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	list := decodeBody(t, w)["data"].([]interface{})
	if len(list) != 1 {
		t.Errorf("Expected 1 client, got %d", len(list))
	}
}

func TestRepValidation(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()
	token := getValidToken(t, api)

	w := doJSON(t, api, "POST", "/admin/reps", token, map[string]interface{}{
		"name": "Dana", "email": "dana@x.com", "status": "vacationing",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown status, got %d", w.Code)
	}

	w = doJSON(t, api, "POST", "/admin/reps", token, map[string]interface{}{
		"name": "Dana", "email": "dana@x.com", "territory": "Northeast",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d - %s", w.Code, w.Body.String())
	}
	data := decodeBody(t, w)["data"].(map[string]interface{})
	if data["status"] != "pending" {
		t.Errorf("Expected default status pending, got %v", data["status"])
	}
}

func TestContactValidation(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()

	cases := []map[string]string{
		{"name": "", "email": "j@x.com", "message": "help"},
		{"name": "J", "email": "", "message": "help"},
		{"name": "J", "email": "j@x.com", "message": "   "},
		{"name": "J", "email": "not-an-email", "message": "help"},
		{"name": "J", "email": "a@b", "message": "help"},
	}
	for i, c := range cases {
		w := doJSON(t, api, "POST", "/contact", "", c)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Case %d: expected 400, got %d", i, w.Code)
		}
	}
}

func TestContactSubmission(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()

	w := doJSON(t, api, "POST", "/contact", "", map[string]string{
		"name":    "J",
		"email":   "j@x.com",
		"message": "help",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d - %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != true || body["message"] == "" {
		t.Errorf("Expected success with message, got %v", body)
	}
}

func TestContactHoneypot(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()

	// A bot fills the hidden website field.
	w := doJSON(t, api, "POST", "/contact", "", map[string]string{
		"name":    "Bot",
		"email":   "bot@spam.com",
		"message": "buy now",
		"website": "http://spam.example",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for honeypot hit, got %d", w.Code)
	}
	botBody := decodeBody(t, w)

	w = doJSON(t, api, "POST", "/contact", "", map[string]string{
		"name": "J", "email": "j@x.com", "message": "help",
	})
	realBody := decodeBody(t, w)

	// Bots must not be able to tell from the response.
	if botBody["message"] != realBody["message"] || botBody["success"] != realBody["success"] {
		t.Errorf("Honeypot response differs: %v vs %v", botBody, realBody)
	}

	token := getValidToken(t, api)
	w = doJSON(t, api, "GET", "/admin/leads", token, nil)
	leads := decodeBody(t, w)["data"].([]interface{})
	if len(leads) != 1 {
		t.Fatalf("Expected bot excluded from default listing, got %d leads", len(leads))
	}

	w = doJSON(t, api, "GET", "/admin/leads?includeBots=true", token, nil)
	leads = decodeBody(t, w)["data"].([]interface{})
	if len(leads) != 2 {
		t.Fatalf("Expected 2 leads with bots included, got %d", len(leads))
	}
	flagged := 0
	for _, l := range leads {
		if l.(map[string]interface{})["suspectedBot"] == true {
			flagged++
		}
	}
	if flagged != 1 {
		t.Errorf("Expected exactly 1 flagged lead, got %d", flagged)
	}
}

func TestFeatureFlags(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()

	// Public read, empty by default.
	w := doJSON(t, api, "GET", "/admin/feature-flags", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	data := decodeBody(t, w)["data"].(map[string]interface{})
	flags := data["flags"].(map[string]interface{})
	if len(flags) != 0 {
		t.Errorf("Expected empty flags, got %v", flags)
	}

	// Write requires auth.
	w = doJSON(t, api, "PUT", "/admin/feature-flags", "", map[string]interface{}{
		"flags": map[string]bool{"blog": true},
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for unauthenticated write, got %d", w.Code)
	}

	token := getValidToken(t, api)
	w = doJSON(t, api, "PUT", "/admin/feature-flags", token, map[string]interface{}{
		"flags": map[string]bool{"blog": true, "pricing": false},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d - %s", w.Code, w.Body.String())
	}

	w = doJSON(t, api, "GET", "/admin/feature-flags", "", nil)
	data = decodeBody(t, w)["data"].(map[string]interface{})
	flags = data["flags"].(map[string]interface{})
	if flags["blog"] != true || flags["pricing"] != false {
		t.Errorf("Flags did not persist: %v", flags)
	}
}

func TestAvailability(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()

	// Default before anything is stored.
	w := doJSON(t, api, "GET", "/availability", "", nil)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	if data["status"] != "available" || data["town"] != "Fairfield" {
		t.Errorf("Expected default availability, got %v", data)
	}

	token := getValidToken(t, api)
	w = doJSON(t, api, "PUT", "/admin/availability", token, map[string]string{
		"status": "limited", "locationType": "hybrid", "town": "Fairfield",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w = doJSON(t, api, "GET", "/availability", "", nil)
	data = decodeBody(t, w)["data"].(map[string]interface{})
	if data["status"] != "limited" || data["locationType"] != "hybrid" {
		t.Errorf("Availability did not persist: %v", data)
	}
}

func TestTickets(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()
	token := getValidToken(t, api)

	// Unknown client is rejected.
	w := doJSON(t, api, "POST", "/admin/tickets", token, map[string]string{
		"clientId": "missing", "subject": "POS down",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown client, got %d", w.Code)
	}

	w = doJSON(t, api, "POST", "/admin/clients", token, map[string]string{
		"name": "Joe", "company": "Diner", "email": "j@x.com",
	})
	clientID := decodeBody(t, w)["data"].(map[string]interface{})["id"].(string)

	w = doJSON(t, api, "POST", "/admin/tickets", token, map[string]string{
		"clientId": clientID, "subject": "POS down",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d - %s", w.Code, w.Body.String())
	}
	ticket := decodeBody(t, w)["data"].(map[string]interface{})
	ticketID := ticket["id"].(string)
	if ticket["status"] != "open" {
		t.Errorf("Expected default status open, got %v", ticket["status"])
	}

	w = doJSON(t, api, "PUT", "/admin/tickets/"+ticketID, token, map[string]string{
		"subject": "POS down", "status": "closed", "priority": "high",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d - %s", w.Code, w.Body.String())
	}
	ticket = decodeBody(t, w)["data"].(map[string]interface{})
	if ticket["status"] != "closed" {
		t.Errorf("Expected closed, got %v", ticket["status"])
	}

	w = doJSON(t, api, "GET", "/admin/tickets?status=closed", token, nil)
	list := decodeBody(t, w)["data"].([]interface{})
	if len(list) != 1 {
		t.Errorf("Expected 1 closed ticket, got %d", len(list))
	}
}

func TestAutomationRules(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()
	token := getValidToken(t, api)

	rule := map[string]interface{}{
		"name":     "Daily sales digest",
		"category": "reporting",
		"trigger": map[string]interface{}{
			"type":     "schedule",
			"schedule": map[string]string{"frequency": "daily", "at": "06:00"},
		},
		"actions": []map[string]interface{}{
			{"type": "email", "config": map[string]string{"to": "ops@x.com"}},
		},
		"enabled": true,
	}

	w := doJSON(t, api, "POST", "/automation/rules", token, rule)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d - %s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)["data"].(map[string]interface{})
	id := created["id"].(string)

	// The trigger JSON carries only the selected variant.
	trigger := created["trigger"].(map[string]interface{})
	if trigger["type"] != "schedule" {
		t.Errorf("Expected schedule trigger, got %v", trigger["type"])
	}
	if _, present := trigger["event"]; present {
		t.Error("Expected non-selected variant to be omitted")
	}

	// Invalid category
	bad := map[string]interface{}{
		"name": "X", "category": "sales",
		"trigger": map[string]interface{}{
			"type":     "schedule",
			"schedule": map[string]string{"frequency": "daily"},
		},
		"actions": []map[string]interface{}{{"type": "email"}},
	}
	w = doJSON(t, api, "POST", "/automation/rules", token, bad)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad category, got %d", w.Code)
	}

	// Toggle
	w = doJSON(t, api, "PATCH", "/automation/rules/"+id, token, map[string]bool{"enabled": false})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on toggle, got %d - %s", w.Code, w.Body.String())
	}

	w = doJSON(t, api, "GET", "/automation/rules", token, nil)
	rules := decodeBody(t, w)["data"].([]interface{})
	if len(rules) != 1 {
		t.Fatalf("Expected 1 rule, got %d", len(rules))
	}
	if rules[0].(map[string]interface{})["enabled"] != false {
		t.Error("Expected rule to be disabled after toggle")
	}

	// Patch without enabled field
	w = doJSON(t, api, "PATCH", "/automation/rules/"+id, token, map[string]string{"name": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for patch without enabled, got %d", w.Code)
	}

	// Missing rule
	w = doJSON(t, api, "PATCH", "/automation/rules/missing", token, map[string]bool{"enabled": true})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	// Delete
	w = doJSON(t, api, "DELETE", "/automation/rules/"+id, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on delete, got %d", w.Code)
	}
	w = doJSON(t, api, "DELETE", "/automation/rules/"+id, token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on double delete, got %d", w.Code)
	}
}

func TestDashboardStatsEndpoint(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()
	token := getValidToken(t, api)

	doJSON(t, api, "POST", "/admin/clients", token, map[string]string{
		"name": "Joe", "company": "Diner", "email": "j@x.com",
	})

	w := doJSON(t, api, "GET", "/admin/stats", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	data := decodeBody(t, w)["data"].(map[string]interface{})
	if data["clientCount"] != float64(1) {
		t.Errorf("Expected 1 client, got %v", data["clientCount"])
	}
}

func TestUploadWithoutStorage(t *testing.T) {
	api, cleanup := testAPI(t)
	defer cleanup()
	token := getValidToken(t, api)

	w := doJSON(t, api, "POST", "/admin/clients/some-id/files", token, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without object storage, got %d", w.Code)
	}
}
