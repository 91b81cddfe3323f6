package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

const EventAppointmentBooked = "appointment.booked"

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	AggregateID  int64           `db:"aggregate_id" json:"aggregate_id"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// NewAppointmentBookedEvent builds the outbox record for a committed booking.
// AggregateID is filled in once the appointment has an id.
func NewAppointmentBookedEvent() *OutboxEvent {
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: EventAppointmentBooked,
		Status:    OutboxStatusPending,
	}
}

// AppointmentBookedPayload is the body published for EventAppointmentBooked.
type AppointmentBookedPayload struct {
	AppointmentID int64     `json:"appointment_id"`
	DoctorID      int64     `json:"doctor_id"`
	PatientID     int64     `json:"patient_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}
