package dto

import "time"

// ExportRequest asks for a complaint report.
type ExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx CSV PDF XLSX"`
	Status string `json:"status"`
}

// ExportResult points at a rendered report.
type ExportResult struct {
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
