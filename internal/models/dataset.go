package models

import "time"

// DatasetDescription is the free-text description written into every dataset
const DatasetDescription = "Агрегированные данные о компаниях МСП России"

// DatasetMetadata describes one generated dataset
type DatasetMetadata struct {
	GeneratedAt    string `json:"generated_at"`
	TotalCompanies int64  `json:"total_companies"`
	TotalGroups    int    `json:"total_groups"`
	Description    string `json:"description"`
	RunID          string `json:"run_id,omitempty"`
	Seed           int64  `json:"seed"`
}

// Dataset is the output document consumed by the visualization
type Dataset struct {
	Metadata          DatasetMetadata   `json:"metadata"`
	RevenueCategories []RevenueCategory `json:"revenue_categories"`
	Companies         []CompanyGroup    `json:"companies"`
	Statistics        *Statistics       `json:"statistics"`

	// Reference is the lookup data the groups were drawn from. It is kept
	// in memory for serving and is not part of the document.
	Reference *ReferenceData `json:"-"`
}

// RunStatus is the lifecycle state of a generation run
type RunStatus string

const (
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// GenerationRun is the persisted record of one pipeline execution
type GenerationRun struct {
	ID             string     `json:"id" db:"id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Status         RunStatus  `json:"status" db:"status"`
	TargetGroups   int        `json:"target_groups" db:"target_groups"`
	TotalCompanies int64      `json:"total_companies" db:"total_companies"`
	Seed           int64      `json:"seed" db:"seed"`
}
