package model

import "time"

const StatusScheduled = "scheduled"

// Appointment is the booking record. The laboratory fields are a snapshot
// taken at booking time, not a live reference, so later directory edits do
// not rewrite history.
type Appointment struct {
	ID             string
	ClientID       string
	ClientEmail    string
	ExamType       string
	ExamTitle      string
	PriceCentavos  int64
	LaboratoryID   string
	LaboratoryName string
	Address        string
	Neighborhood   string
	City           string
	State          string
	ScheduledAt    time.Time
	Status         string
	CreatedAt      time.Time
}

// ExamResult rows are written by the laboratory upload workflow; this
// service only reads them back for the owner.
type ExamResult struct {
	ID             string
	ClientID       string
	ExamType       string
	Date           time.Time
	Status         string // pending | completed
	Outcome        string // negative | positive, empty while pending
	LaboratoryName string
	DocumentURL    string
}
