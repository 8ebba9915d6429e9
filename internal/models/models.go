package models

import "time"

// Message is a single conversation message.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Device is a registered device returned by the device registry.
type Device struct {
	Model          string `json:"model"`
	WarrantyStatus string `json:"warranty_status"`
	SerialNumber   string `json:"serial_number"`
}

// CustomerInfo holds the contact data collected before a booking.
type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// Booking is a service visit persisted in the calendar store.
type Booking struct {
	Time          time.Time `json:"date_time"`
	DeviceModel   string    `json:"device_model"`
	SerialNumber  string    `json:"serial_number"`
	Description   string    `json:"description"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerEmail string    `json:"customer_email"`
	CustomerAddr  string    `json:"customer_address"`
}

// BookingRef is the normalized result of creating a booking. Every store
// backend returns this one shape; callers never branch on backend specifics.
type BookingRef struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

// ServiceRequest is a reported issue awaiting service.
type ServiceRequest struct {
	SerialNumber string     `json:"serial_number"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
}

// Service request status values.
const (
	RequestStatusNew       = "New"
	RequestStatusScheduled = "Scheduled"
)

// SolutionKind tags which knowledge source a candidate came from.
type SolutionKind string

// Solution source kinds, in search priority order.
const (
	KindTroubleshooting SolutionKind = "troubleshooting"
	KindDocument        SolutionKind = "document"
	KindUsageGuide      SolutionKind = "usage_guide"
)

// SolutionCandidate is a ranked knowledge-base match for a problem query.
// Relevance is a heuristic score in [0,1]. Candidates are transient; they are
// never persisted.
type SolutionCandidate struct {
	Content   string       `json:"content"`
	Relevance float64      `json:"relevance"`
	Kind      SolutionKind `json:"kind"`
}

// RecordMetadata is shared metadata attached to knowledge records.
type RecordMetadata struct {
	DeviceModel string   `json:"device_model,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Symptoms    []string `json:"symptoms,omitempty"`
}

// TroubleshootingEntry is a known problem with a known fix.
type TroubleshootingEntry struct {
	Problem  string         `json:"problem"`
	Solution string         `json:"solution"`
	Metadata RecordMetadata `json:"metadata"`
}

// Document is a free-form technical documentation fragment.
type Document struct {
	Content  string         `json:"content"`
	Metadata RecordMetadata `json:"metadata"`
}

// UsageGuide is a titled usage instruction.
type UsageGuide struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata RecordMetadata `json:"metadata"`
}
