package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/moodhome/internal/models"
)

// CheckInRepositoryInterface defines the check-in operations used by handlers and workers.
// This interface enables better testability by allowing mock implementations
type CheckInRepositoryInterface interface {
	Create(ctx context.Context, c *models.CheckIn) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CheckIn, error)
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.CheckIn, error)
	Update(ctx context.Context, c *models.CheckIn) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// CheckInBacklogRepositoryInterface finds check-ins whose generation never completed.
type CheckInBacklogRepositoryInterface interface {
	ListWithoutSuggestions(ctx context.Context, since time.Time, limit int) ([]*models.CheckIn, error)
}

// SuggestionRepositoryInterface defines the suggestion operations used by handlers and workers.
type SuggestionRepositoryInterface interface {
	CreateForCheckIn(ctx context.Context, checkIn *models.CheckIn, batch []*models.AutomationSuggestion, replaceInactive bool) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.AutomationSuggestion, error)
	ListActive(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AutomationSuggestion, error)
	ListByCheckIn(ctx context.Context, checkInID uuid.UUID) ([]*models.AutomationSuggestion, error)
	Dismiss(ctx context.Context, userID, id uuid.UUID) (*models.AutomationSuggestion, bool, error)
	DismissActiveForCheckIn(ctx context.Context, userID, checkInID uuid.UUID) (int, error)
	Execute(ctx context.Context, userID, id uuid.UUID, exec *models.AutomationExecution) (*models.AutomationSuggestion, bool, error)
}

// ContactRepositoryInterface defines contact operations
type ContactRepositoryInterface interface {
	Create(ctx context.Context, c *models.Contact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Contact, error)
	Update(ctx context.Context, c *models.Contact) error
	MarkContacted(ctx context.Context, userID, id uuid.UUID) (*models.Contact, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// ExecutionRepositoryInterface defines read access to the execution audit log
type ExecutionRepositoryInterface interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AutomationExecution, error)
	GetBySuggestion(ctx context.Context, suggestionID uuid.UUID) (*models.AutomationExecution, error)
}

// UserRepositoryInterface defines user lookups used by authentication
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// Ensure concrete types implement the interfaces
var (
	_ CheckInRepositoryInterface        = (*CheckInRepository)(nil)
	_ CheckInBacklogRepositoryInterface = (*CheckInRepository)(nil)
	_ SuggestionRepositoryInterface     = (*SuggestionRepository)(nil)
	_ ContactRepositoryInterface        = (*ContactRepository)(nil)
	_ ExecutionRepositoryInterface      = (*ExecutionRepository)(nil)
	_ UserRepositoryInterface           = (*UserRepository)(nil)
)
