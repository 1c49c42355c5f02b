package model

import "time"

type Stats struct {
	TotalSent   int        `json:"total_sent"`
	TotalFailed int        `json:"total_failed"`
	Sessions    int        `json:"sessions"`
	LastUsed    *time.Time `json:"last_used"`
}
