package models

import (
	"time"

	"github.com/google/uuid"
)

// Relationship categorises a contact
type Relationship string

const (
	RelationshipFamily    Relationship = "family"
	RelationshipFriend    Relationship = "friend"
	RelationshipPartner   Relationship = "partner"
	RelationshipTherapist Relationship = "therapist"
	RelationshipColleague Relationship = "colleague"
	RelationshipOther     Relationship = "other"
)

// Valid reports whether r is a known relationship.
func (r Relationship) Valid() bool {
	switch r {
	case RelationshipFamily, RelationshipFriend, RelationshipPartner,
		RelationshipTherapist, RelationshipColleague, RelationshipOther:
		return true
	}
	return false
}

// Contact is a person an automation can reach out to
type Contact struct {
	ID              uuid.UUID    `json:"id"`
	UserID          uuid.UUID    `json:"user_id"`
	Name            string       `json:"name"`
	PhoneNumber     string       `json:"phone_number"`
	Relationship    Relationship `json:"relationship"`
	IsFrequent      bool         `json:"is_frequent"`
	LastContactedAt *time.Time   `json:"last_contacted_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
