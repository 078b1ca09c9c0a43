package models

import "time"

// DateRange bounds a reconciliation task's business dates, inclusive
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TaskType distinguishes fresh runs from re-runs over stored history
type TaskType string

const (
	TaskReconcile   TaskType = "reconcile"
	TaskDoubleCheck TaskType = "double_check"
)

// ReconciliationTask records one completed run for the task history list
type ReconciliationTask struct {
	TaskID      string    `json:"taskId"`
	TaskName    string    `json:"taskName"`
	ConfigID    string    `json:"configId"`
	ConfigName  string    `json:"configName"`
	SourceAName string    `json:"sourceAName"`
	SourceBName string    `json:"sourceBName"`
	Type        TaskType  `json:"taskType"`
	DateRange   DateRange `json:"dateRange"`
	CreatedAt   time.Time `json:"createdAt"`

	SourceAFile string `json:"sourceAFile,omitempty"`
	SourceBFile string `json:"sourceBFile,omitempty"`
	ResultFile  string `json:"resultFile,omitempty"`

	Stats ReconciliationStats `json:"stats"`

	UsedHistoricalSourceA bool `json:"usedHistoricalSourceA,omitempty"`
	UsedHistoricalSourceB bool `json:"usedHistoricalSourceB,omitempty"`
}

// UploadedBatch is the metadata row kept alongside stored records so a
// re-upload for the same config, source and date replaces the earlier batch.
type UploadedBatch struct {
	BatchID    string    `json:"batchId"`
	ConfigID   string    `json:"configId"`
	Source     string    `json:"source"`
	OrderDate  string    `json:"orderDate"`
	FileName   string    `json:"fileName"`
	RecordRows int       `json:"recordRows"`
	UploadedAt time.Time `json:"uploadedAt"`
}
