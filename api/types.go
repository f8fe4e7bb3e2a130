package api

import "github.com/nrtkbb/fsrecon/models"

// PaginatedResponse represents a paginated response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	Total      int         `json:"total"`
	TotalPages int         `json:"total_pages"`
	HasNext    bool        `json:"has_next"`
}

// RunDetail is a run with the paths it could not read.
type RunDetail struct {
	models.RunSummary
	FailedPaths []models.ReadFailure `json:"failed_paths"`
}

// Stats totals outcomes across every stored run.
type Stats struct {
	Runs     int                    `json:"runs"`
	Outcomes map[models.Outcome]int `json:"outcomes"`
}
