package model

import "time"

type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
)

// HistoryEntry is one delivery attempt. Message is truncated for display, FullMessage keeps
// the rendered text for the CSV export.
type HistoryEntry struct {
	Timestamp   time.Time      `json:"timestamp"`
	Name        string         `json:"name"`
	Phone       string         `json:"phone"`
	Message     string         `json:"message"`
	FullMessage string         `json:"fullMessage,omitempty"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
}
