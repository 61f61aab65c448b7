package common

import "time"

// UploadEvent is published once per item upload
type UploadEvent struct {
	ItemID     string    `json:"item_id"`
	Collection string    `json:"collection"`
	Status     Status    `json:"status"`
	Succeeded  []string  `json:"succeeded"`
	Failed     []string  `json:"failed"`
	Registered bool      `json:"registered"`
	Message    string    `json:"message,omitempty"`
	Date       time.Time `json:"date"`
}
