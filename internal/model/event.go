package model

import "time"

// ExportEvent is published when an export has been uploaded.
type ExportEvent struct {
	ID        string    `json:"id"`
	Listing   string    `json:"listing"`
	Format    string    `json:"format"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}
