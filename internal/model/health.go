package model

import "time"

// Medication is a course of treatment with a remaining-day counter.
type Medication struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name"`
	Dosage        string    `json:"dosage"`
	Schedule      string    `json:"schedule"`
	TotalDays     int       `json:"total_days"`
	RemainingDays int       `json:"remaining_days"`
	CreatedAt     time.Time `json:"created_at"`
}

// Appointment is a scheduled doctor visit. Date is YYYY-MM-DD, Time is HH:MM.
type Appointment struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Doctor     string    `json:"doctor"`
	Speciality string    `json:"speciality"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Location   string    `json:"location"`
	CreatedAt  time.Time `json:"created_at"`
}
