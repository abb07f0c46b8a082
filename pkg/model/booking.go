package model

import (
	"bytes"
	"encoding/json"
)

// Date is a calendar date in YYYY-MM-DD form. The zero value means "no date"
// and is encoded as JSON null.
type Date string

func (d Date) IsZero() bool {
	return d == ""
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = Date(s)
	return nil
}

// Booking is the normalized reservation produced from a CRM lead.
type Booking struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Time        string `json:"time"`
	BookingDate Date   `json:"bookingDate"`
	Guests      int    `json:"guests"`
	Phone       string `json:"phone"`
	Comment     string `json:"comment"`
	Branch      string `json:"branch"`
	Zone        string `json:"zone"`
	TableID     int    `json:"tableId"`
	HasVR       bool   `json:"hasVR"`
	HasShisha   bool   `json:"hasShisha"`
	LeadID      int64  `json:"leadId"`
	Status      int64  `json:"status"`
}

// KanbanBooking is the body accepted by the kanban backend's POST /api/bookings.
type KanbanBooking struct {
	Name        string `json:"name" validate:"required,max=200"`
	Time        string `json:"time" validate:"required,booking_time"`
	BookingDate Date   `json:"bookingDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Guests      int    `json:"guests" validate:"min=1,max=500"`
	Phone       string `json:"phone" validate:"max=32"`
	Source      string `json:"source" validate:"required"`
	TableID     int    `json:"tableId" validate:"min=1"`
	Branch      string `json:"branch" validate:"required"`
	IsActive    bool   `json:"isActive"`
	Comment     string `json:"comment" validate:"max=2000"`
	HasVR       bool   `json:"hasVR"`
	HasShisha   bool   `json:"hasShisha"`
	AmoLeadID   int64  `json:"amoLeadId" validate:"required"`
}
