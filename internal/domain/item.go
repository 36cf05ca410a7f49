package domain

import (
	"fmt"
	"strconv"
)

// SubmittedItem is one spreadsheet row handed to the pipeline. It is created
// by the caller and never mutated afterwards.
type SubmittedItem struct {
	BrandValue       string `json:"brandValue"`
	SearchValue      string `json:"searchValue" validate:"required"`
	AbsoluteRowIndex int    `json:"absoluteRowIndex" validate:"gte=0"`
	UniqueID         string `json:"uniqueId" validate:"required"`
}

// DatasetSplit returns the ordered tuple sent to the remote creation endpoint.
func (i SubmittedItem) DatasetSplit() []string {
	return []string{
		i.BrandValue,
		i.SearchValue,
		strconv.Itoa(i.AbsoluteRowIndex),
		i.UniqueID,
	}
}

// Validate checks the fields the pipeline cannot work without.
func (i SubmittedItem) Validate() error {
	if i.SearchValue == "" {
		return fmt.Errorf("%w: search value cannot be empty", ErrValidation)
	}
	if i.AbsoluteRowIndex < 0 {
		return fmt.Errorf("%w: absolute row index cannot be negative", ErrValidation)
	}
	if i.UniqueID == "" {
		return fmt.Errorf("%w: unique id cannot be empty", ErrValidation)
	}
	return nil
}

// RemoteTask identifies work scheduled on the remote task service.
type RemoteTask struct {
	TaskID string `json:"task_id"`
}

// HasID reports whether the remote service returned a task id.
func (t *RemoteTask) HasID() bool {
	return t != nil && t.TaskID != ""
}
