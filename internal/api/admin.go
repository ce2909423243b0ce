package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"toasthub/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Client handlers

func (a *API) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := a.store.ListClients()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load clients")
		return
	}
	if clients == nil {
		clients = []models.Client{}
	}
	respondData(w, http.StatusOK, clients)
}

func (a *API) createClient(w http.ResponseWriter, r *http.Request) {
	var c models.Client
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Company) == "" {
		respondError(w, http.StatusBadRequest, "Name and company are required")
		return
	}
	if !emailPattern.MatchString(c.Email) {
		respondError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}

	c.ID = "" // ids are store-assigned
	if err := a.store.CreateClient(&c); err != nil {
		a.logger.Error("failed to create client", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to save client")
		return
	}
	respondData(w, http.StatusCreated, c)
}

func (a *API) updateClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var c models.Client
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !emailPattern.MatchString(c.Email) {
		respondError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}

	c.ID = id
	if err := a.store.UpdateClient(&c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Client not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to save client")
		return
	}

	updated, err := a.store.GetClient(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load client")
		return
	}
	respondData(w, http.StatusOK, updated)
}

// uploadClientFile puts a multipart file into the client's storage
// folder. 503 when object storage is not configured.
func (a *API) uploadClientFile(w http.ResponseWriter, r *http.Request) {
	if a.files == nil {
		respondError(w, http.StatusServiceUnavailable, "File storage is not configured")
		return
	}

	client, err := a.store.GetClient(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Client not found")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	url, err := a.files.Upload(r.Context(), client.StorageFolder, header.Filename, contentType, io.Reader(file))
	if err != nil {
		a.logger.Error("file upload failed", zap.String("clientId", client.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	respondData(w, http.StatusCreated, map[string]string{"url": url})
}

// Rep handlers

func (a *API) listReps(w http.ResponseWriter, r *http.Request) {
	reps, err := a.store.ListReps()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load reps")
		return
	}
	if reps == nil {
		reps = []models.Rep{}
	}
	respondData(w, http.StatusOK, reps)
}

func (a *API) createRep(w http.ResponseWriter, r *http.Request) {
	var rep models.Rep
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if strings.TrimSpace(rep.Name) == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if !emailPattern.MatchString(rep.Email) {
		respondError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}
	if rep.Status != "" && !models.ValidRepStatus(rep.Status) {
		respondError(w, http.StatusBadRequest, "Status must be active, inactive, or pending")
		return
	}

	rep.ID = ""
	if err := a.store.CreateRep(&rep); err != nil {
		a.logger.Error("failed to create rep", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to save rep")
		return
	}
	respondData(w, http.StatusCreated, rep)
}

func (a *API) updateRep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var rep models.Rep
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !models.ValidRepStatus(rep.Status) {
		respondError(w, http.StatusBadRequest, "Status must be active, inactive, or pending")
		return
	}

	rep.ID = id
	if err := a.store.UpdateRep(&rep); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Rep not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to save rep")
		return
	}

	updated, err := a.store.GetRep(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load rep")
		return
	}
	respondData(w, http.StatusOK, updated)
}

// Ticket handlers

func (a *API) listTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := a.store.ListTickets(r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load tickets")
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	respondData(w, http.StatusOK, tickets)
}

func (a *API) createTicket(w http.ResponseWriter, r *http.Request) {
	var t models.Ticket
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if strings.TrimSpace(t.Subject) == "" {
		respondError(w, http.StatusBadRequest, "Subject is required")
		return
	}
	if _, err := a.store.GetClient(t.ClientID); err != nil {
		respondError(w, http.StatusBadRequest, "Unknown client")
		return
	}

	t.ID = ""
	if err := a.store.CreateTicket(&t); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save ticket")
		return
	}
	respondData(w, http.StatusCreated, t)
}

func (a *API) updateTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var t models.Ticket
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	t.ID = id
	if err := a.store.UpdateTicket(&t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Ticket not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to save ticket")
		return
	}

	updated, err := a.store.GetTicket(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load ticket")
		return
	}
	respondData(w, http.StatusOK, updated)
}

// Campaign handlers

func (a *API) listCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := a.store.ListCampaigns()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load campaigns")
		return
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}
	respondData(w, http.StatusOK, campaigns)
}

func (a *API) createCampaign(w http.ResponseWriter, r *http.Request) {
	var c models.Campaign
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(c.Name) == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	c.ID = ""
	if err := a.store.CreateCampaign(&c); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save campaign")
		return
	}
	respondData(w, http.StatusCreated, c)
}

// Lead + stats handlers

func (a *API) listLeads(w http.ResponseWriter, r *http.Request) {
	includeBots := r.URL.Query().Get("includeBots") == "true"
	leads, err := a.store.ListLeads(includeBots)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load leads")
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	respondData(w, http.StatusOK, leads)
}

func (a *API) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.store.DashboardStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	respondData(w, http.StatusOK, stats)
}
