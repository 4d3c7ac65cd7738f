package db_models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ServiceRequestStatus string

const (
	RequestStatusDraft     ServiceRequestStatus = "draft"
	RequestStatusOpen      ServiceRequestStatus = "open"
	RequestStatusAccepted  ServiceRequestStatus = "accepted"
	RequestStatusCompleted ServiceRequestStatus = "completed"
	RequestStatusCancelled ServiceRequestStatus = "cancelled"
)

// ServiceRequest is one finalized draft: a single eligible journey action
// expanded into an independently dispatchable marketplace request.
type ServiceRequest struct {
	BaseModel
	RequesterID     uuid.UUID `gorm:"index"`
	SourceJourneyID uuid.UUID `gorm:"index"`
	SourceStopID    uuid.UUID
	SourceActionID  uuid.UUID

	Classification string
	Summary        string
	Entities       datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	Tags           pq.StringArray `gorm:"type:text[]"`

	OriginLat      float64
	OriginLng      float64
	DestinationLat *float64
	DestinationLng *float64

	PriceEstimate *float64
	Refined       bool
	Status        ServiceRequestStatus `gorm:"type:varchar(16);default:draft"`

	// Summary embedding used for provider matching; zero-valued when the
	// embedding call was skipped or failed.
	Embedding pgvector.Vector `gorm:"type:vector(1536)"`
}
