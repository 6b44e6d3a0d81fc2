package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressLog records a client's progress measurement under a plan. These
// are ancillary records: when a plan cancellation removes the underlying
// service relationship they are cleaned up best-effort by the cascade.
type ProgressLog struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID primitive.ObjectID `bson:"clienteId" json:"clienteId"`
	PlanID   primitive.ObjectID `bson:"planId" json:"planId"`
	Date     time.Time          `bson:"fecha" json:"fecha"`
	WeightKg float64            `bson:"pesoKg,omitempty" json:"pesoKg,omitempty"`
	Notes    string             `bson:"notas,omitempty" json:"notas,omitempty"`
	PhotoKey string             `bson:"fotoKey,omitempty" json:"fotoKey,omitempty"` // S3 object key
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
}

// NewProgressLog validates and normalizes a progress log entry.
func NewProgressLog(clientID, planID primitive.ObjectID, date time.Time, weightKg float64, notes, photoKey string) (*ProgressLog, error) {
	if clientID.IsZero() {
		return nil, NewValidationError("clienteId", "is required")
	}
	if planID.IsZero() {
		return nil, NewValidationError("planId", "is required")
	}
	if date.IsZero() {
		return nil, NewValidationError("fecha", "is required")
	}
	if weightKg < 0 || weightKg > 500 {
		return nil, NewValidationError("pesoKg", "must be between 0 and 500")
	}

	return &ProgressLog{
		ClientID: clientID,
		PlanID:   planID,
		Date:     date,
		WeightKg: weightKg,
		Notes:    strings.TrimSpace(notes),
		PhotoKey: photoKey,
	}, nil
}
