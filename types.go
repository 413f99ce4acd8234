package main

import "time"

// run statuses
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// run detail kinds
const (
	DetailInserted = "inserted"
	DetailDropped  = "dropped"
	DetailFailed   = "failed"
)

// Run is one merge of a call source into a workbook.
type Run struct {
	ID          string
	Source      string
	Fingerprint string
	Workbook    string
	Status      string
	Calls       int
	Inserted    int
	Dropped     int
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Details     []RunDetail
}

// RunDetail is a per-sheet or per-employee line of a run.
type RunDetail struct {
	Name    string
	Kind    string
	Count   int
	Message string
}
