package model

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// MaxNotesLength bounds Appointment.Notes in characters.
const MaxNotesLength = 500

type Appointment struct {
	ID        int64             `db:"id" json:"id"`
	DoctorID  int64             `db:"doctor_id" json:"doctor_id"`
	PatientID int64             `db:"patient_id" json:"patient_id"`
	StartTime time.Time         `db:"start_time" json:"start_time"`
	EndTime   time.Time         `db:"end_time" json:"end_time"`
	Status    AppointmentStatus `db:"status" json:"status"`
	Notes     *string           `db:"notes" json:"notes"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// Blocking reports whether the appointment still occupies its interval.
func (a *Appointment) Blocking() bool {
	return a.Status != AppointmentStatusCancelled
}

type BookAppointmentRequest struct {
	DoctorID  int64     `json:"doctor_id" validate:"required,gt=0"`
	PatientID int64     `json:"patient_id" validate:"required,gt=0"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Notes     *string   `json:"notes" validate:"omitempty,max=500"`
}

// AvailabilityQuery selects the free slots of one doctor on one calendar day.
type AvailabilityQuery struct {
	DoctorID int64  `json:"doctor_id" validate:"required,gt=0"`
	Date     string `json:"date" form:"date" validate:"required,datetime=2006-01-02"`
	Duration int    `json:"duration" form:"duration,default=30" validate:"min=15,max=240"`
}

// Slot is a bookable interval. It is never persisted.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps applies the half-open rule: [a0,a1) and [b0,b1) overlap iff a0 < b1 and a1 > b0.
func Overlaps(a0, a1, b0, b1 time.Time) bool {
	return a0.Before(b1) && a1.After(b0)
}
