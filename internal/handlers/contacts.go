package handlers

import (
	"net/http"

	"github.com/benvon/moodhome/internal/database"
	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ContactHandler handles contact requests
type ContactHandler struct {
	contacts database.ContactRepositoryInterface
	logger   *zap.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contacts database.ContactRepositoryInterface, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: logger}
}

// RegisterRoutes registers contact routes
// The router should already have the /contacts prefix
func (h *ContactHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListContacts).Methods("GET")
	r.HandleFunc("", h.CreateContact).Methods("POST")
	r.HandleFunc("/{id}", h.GetContact).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateContact).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteContact).Methods("DELETE")
	r.HandleFunc("/{id}/contacted", h.MarkContacted).Methods("POST")
}

// CreateContactRequest represents a create contact request
type CreateContactRequest struct {
	Name         string              `json:"name" validate:"required,max=200"`
	PhoneNumber  string              `json:"phone_number" validate:"required,max=32"`
	Relationship models.Relationship `json:"relationship" validate:"required,relationship"`
	IsFrequent   bool                `json:"is_frequent"`
}

// UpdateContactRequest represents an update contact request
type UpdateContactRequest struct {
	Name         *string              `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	PhoneNumber  *string              `json:"phone_number,omitempty" validate:"omitempty,min=1,max=32"`
	Relationship *models.Relationship `json:"relationship,omitempty" validate:"omitempty,relationship"`
	IsFrequent   *bool                `json:"is_frequent,omitempty"`
}

// ListContacts lists the user's contacts, frequent ones first
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.contacts.ListByUser(r.Context(), user.ID)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// CreateContact creates a contact
func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c := &models.Contact{
		ID:           uuid.New(),
		UserID:       user.ID,
		Name:         validation.SanitizeText(req.Name),
		PhoneNumber:  validation.SanitizeText(req.PhoneNumber),
		Relationship: req.Relationship,
		IsFrequent:   req.IsFrequent,
	}
	if c.Name == "" || c.PhoneNumber == "" {
		respondAppError(w, r, h.logger, apperrors.NewInvalidInput("name and phone_number cannot be empty", nil))
		return
	}

	if err := h.contacts.Create(r.Context(), c); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	h.logger.Info("contact_created",
		zap.String("user_id", user.ID.String()),
		zap.String("contact_id", c.ID.String()),
	)
	respondJSON(w, http.StatusCreated, c)
}

// GetContact retrieves a contact by ID
func (h *ContactHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedContact(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// UpdateContact edits a contact
func (h *ContactHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedContact(w, r)
	if !ok {
		return
	}

	var req UpdateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := applyContactUpdate(c, &req); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	if err := h.contacts.Update(r.Context(), c); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DeleteContact deletes a contact
func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "contact")
	if !ok {
		return
	}
	if err := h.contacts.Delete(r.Context(), user.ID, id); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkContacted records that the user reached out to a contact now
func (h *ContactHandler) MarkContacted(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "contact")
	if !ok {
		return
	}
	c, err := h.contacts.MarkContacted(r.Context(), user.ID, id)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *ContactHandler) ownedContact(w http.ResponseWriter, r *http.Request) (*models.Contact, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r, "contact")
	if !ok {
		return nil, false
	}

	c, err := h.contacts.GetByID(r.Context(), id)
	if err == nil && c.UserID != user.ID {
		err = apperrors.NewNotFound("contact", id.String())
	}
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return nil, false
	}
	return c, true
}

func applyContactUpdate(c *models.Contact, req *UpdateContactRequest) error {
	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		if name == "" {
			return apperrors.NewInvalidInput("name cannot be empty", nil)
		}
		c.Name = name
	}
	if req.PhoneNumber != nil {
		phone := validation.SanitizeText(*req.PhoneNumber)
		if phone == "" {
			return apperrors.NewInvalidInput("phone_number cannot be empty", nil)
		}
		c.PhoneNumber = phone
	}
	if req.Relationship != nil {
		c.Relationship = *req.Relationship
	}
	if req.IsFrequent != nil {
		c.IsFrequent = *req.IsFrequent
	}
	return nil
}
