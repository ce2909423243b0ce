package api

import (
	"encoding/json"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"toasthub/internal/auth"
	"toasthub/internal/models"
	"toasthub/internal/storage"
	"toasthub/internal/store"
	"toasthub/internal/ws"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	CookieName      = "toasthub_auth"
	CookieMaxAge    = 30 * 24 * 60 * 60 // 30 days in seconds
	SessionDuration = 30 * 24 * time.Hour
)

// Config keys in the store's KV table.
const (
	configFeatureFlags = "feature_flags"
	configAvailability = "availability"
)

type API struct {
	store   *store.Store
	auth    *auth.Manager
	hub     *ws.Hub
	files   *storage.Storage // nil when object storage is not configured
	logger  *zap.Logger
	contact *rate.Limiter
}

func New(s *store.Store, am *auth.Manager, hub *ws.Hub, files *storage.Storage, logger *zap.Logger) *API {
	return &API{
		store:  s,
		auth:   am,
		hub:    hub,
		files:  files,
		logger: logger,
		// Generous burst; the limiter only has to stop runaway bots.
		contact: rate.NewLimiter(rate.Every(2*time.Second), 20),
	}
}

func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	// Public endpoints
	r.Get("/auth/verify", a.verifyAuth)
	r.Post("/auth/login", a.login)
	r.Post("/auth/logout", a.logout)
	r.Post("/contact", a.submitContact)
	r.Get("/availability", a.getAvailability)
	r.Get("/admin/feature-flags", a.getFeatureFlags)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(a.SessionMiddleware)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/clients", a.listClients)
			r.Post("/clients", a.createClient)
			r.Put("/clients/{id}", a.updateClient)
			r.Post("/clients/{id}/files", a.uploadClientFile)

			r.Get("/reps", a.listReps)
			r.Post("/reps", a.createRep)
			r.Put("/reps/{id}", a.updateRep)

			r.Get("/tickets", a.listTickets)
			r.Post("/tickets", a.createTicket)
			r.Put("/tickets/{id}", a.updateTicket)

			r.Get("/campaigns", a.listCampaigns)
			r.Post("/campaigns", a.createCampaign)

			r.Get("/leads", a.listLeads)
			r.Get("/stats", a.dashboardStats)

			r.Put("/feature-flags", a.setFeatureFlags)
			r.Put("/availability", a.setAvailability)
		})

		r.Route("/automation", func(r chi.Router) {
			r.Get("/rules", a.listRules)
			r.Post("/rules", a.createRule)
			r.Patch("/rules/{id}", a.patchRule)
			r.Delete("/rules/{id}", a.deleteRule)
			r.Get("/ws", a.hub.Serve)
		})
	})

	return r
}

// SessionMiddleware checks for a valid session token in the
// Authorization header or cookie.
func (a *API) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		sess, err := a.store.GetSession(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid session")
			return
		}
		if sess.ExpiresAt.Before(time.Now()) {
			a.store.DeleteSession(token)
			respondError(w, http.StatusUnauthorized, "Session expired")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func sessionToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// clientIP keys the login limiter. Trusts the first X-Forwarded-For
// entry when present (the binary sits behind a proxy in production).
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Auth handlers

func (a *API) verifyAuth(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		respondJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	sess, err := a.store.GetSession(token)
	if err != nil || sess.ExpiresAt.Before(time.Now()) {
		respondJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"authenticated": true})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	res := a.auth.Verify(clientIP(r), req.Password)

	if res.RetryAfter > 0 {
		respondJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"success":    false,
			"error":      "Too many attempts. Try again shortly.",
			"retryAfter": res.RetryAfter,
		})
		return
	}

	if !res.OK {
		a.logger.Info("failed login attempt", zap.String("ip", clientIP(r)))
		respondJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success":           false,
			"error":             "Invalid password",
			"attemptsRemaining": res.AttemptsRemaining,
		})
		return
	}

	sess, err := a.store.CreateSession(SessionDuration)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		a.store.DeleteSession(token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Contact handler

// Permissive local@domain.tld shape; intentionally not RFC 5322.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func (a *API) submitContact(w http.ResponseWriter, r *http.Request) {
	if !a.contact.Allow() {
		respondError(w, http.StatusTooManyRequests, "Too many submissions. Please try again in a moment.")
		return
	}

	var req struct {
		Name         string `json:"name"`
		BusinessName string `json:"businessName"`
		Email        string `json:"email"`
		Phone        string `json:"phone"`
		Service      string `json:"service"`
		Message      string `json:"message"`
		Website      string `json:"website"` // honeypot
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	message := strings.TrimSpace(req.Message)
	if name == "" || email == "" || message == "" {
		respondError(w, http.StatusBadRequest, "Name, email, and message are required")
		return
	}
	if !emailPattern.MatchString(email) {
		respondError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}

	lead := &models.Lead{
		Name:         name,
		BusinessName: strings.TrimSpace(req.BusinessName),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Service:      req.Service,
		Message:      message,
		SuspectedBot: req.Website != "",
	}
	if err := a.store.CreateLead(lead); err != nil {
		a.logger.Error("failed to store lead", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}

	if lead.SuspectedBot {
		a.logger.Info("honeypot hit", zap.String("leadId", lead.ID))
	}

	// Honeypot hits get the same answer so bots can't tell.
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Thanks! We'll be in touch within one business day.",
	})
}

// Availability + feature flags

func defaultAvailability() models.Availability {
	return models.Availability{Status: "available", LocationType: "remote", Town: "Fairfield"}
}

func (a *API) getAvailability(w http.ResponseWriter, r *http.Request) {
	var avail models.Availability
	if err := a.store.GetConfig(configAvailability, &avail); err != nil {
		avail = defaultAvailability()
	}
	respondData(w, http.StatusOK, avail)
}

func (a *API) setAvailability(w http.ResponseWriter, r *http.Request) {
	var avail models.Availability
	if err := json.NewDecoder(r.Body).Decode(&avail); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := a.store.SetConfig(configAvailability, avail); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save availability")
		return
	}
	respondData(w, http.StatusOK, avail)
}

func (a *API) getFeatureFlags(w http.ResponseWriter, r *http.Request) {
	flags := map[string]bool{}
	if err := a.store.GetConfig(configFeatureFlags, &flags); err != nil {
		flags = map[string]bool{}
	}
	respondData(w, http.StatusOK, map[string]interface{}{"flags": flags})
}

func (a *API) setFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Flags map[string]bool `json:"flags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := a.store.SetConfig(configFeatureFlags, req.Flags); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save feature flags")
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"flags": req.Flags})
}

// JSON helpers. Everything except /auth/verify uses the
// {success, data?, error?} envelope.

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, map[string]interface{}{"success": true, "data": data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"success": false, "error": message})
}
