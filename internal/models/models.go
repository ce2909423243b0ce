package models

import "time"

// Client is a restaurant customer record managed from the admin console.
type Client struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Company           string    `json:"company"`
	Slug              string    `json:"slug"` // unique, used for portal URLs
	PortalEnabled     bool      `json:"portalEnabled"`
	SupportPlanTier   string    `json:"supportPlanTier"`   // "basic", "priority", "premium" or empty
	SupportPlanStatus string    `json:"supportPlanStatus"` // "active", "paused", "cancelled" or empty
	StorageFolder     string    `json:"storageFolder"`     // object-storage prefix for client files
	AvatarURL         string    `json:"avatarUrl"`
	Notes             string    `json:"notes"`
	Timezone          string    `json:"timezone"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Rep status values.
const (
	RepActive   = "active"
	RepInactive = "inactive"
	RepPending  = "pending"
)

// Rep is a sales/field representative record.
type Rep struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Territory     string    `json:"territory"`
	Slug          string    `json:"slug"`
	PortalEnabled bool      `json:"portalEnabled"`
	Status        string    `json:"status"` // active, inactive, pending
	AvatarURL     string    `json:"avatarUrl"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ValidRepStatus reports whether s is one of the known rep statuses.
func ValidRepStatus(s string) bool {
	return s == RepActive || s == RepInactive || s == RepPending
}

// Ticket is a support ticket tied to a client.
type Ticket struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`   // open, in_progress, closed
	Priority  string    `json:"priority"` // low, normal, high
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Lead is a contact-form submission.
type Lead struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	BusinessName string    `json:"businessName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Service      string    `json:"service"`
	Message      string    `json:"message"`
	SuspectedBot bool      `json:"suspectedBot"` // honeypot field was filled
	CreatedAt    time.Time `json:"createdAt"`
}

// Campaign is an email campaign record.
type Campaign struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Subject    string     `json:"subject"`
	Status     string     `json:"status"` // draft, scheduled, sent
	Recipients int        `json:"recipients"`
	Opens      int        `json:"opens"`
	Clicks     int        `json:"clicks"`
	SentAt     *time.Time `json:"sentAt"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Availability is the public scheduling availability blurb.
type Availability struct {
	Status       string `json:"status"`       // "available", "limited", "booked"
	LocationType string `json:"locationType"` // "remote", "onsite", "hybrid"
	Town         string `json:"town"`
}

// Session is a server-side admin session.
type Session struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DashboardStats is the one-shot summary the admin overview loads.
type DashboardStats struct {
	ClientCount   int `json:"clientCount"`
	RepCount      int `json:"repCount"`
	OpenTickets   int `json:"openTickets"`
	LeadCount     int `json:"leadCount"`
	EnabledRules  int `json:"enabledRules"`
	SentCampaigns int `json:"sentCampaigns"`
}
