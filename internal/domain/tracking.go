package domain

import "time"

// TrackingRow is the rendezvous row between this service and the external
// writer that completes the remote task. The pipeline inserts it once and
// only reads it afterwards.
type TrackingRow struct {
	ResultID     int64      `json:"result_id"`
	EntryID      int        `json:"entry_id"`
	FileID       string     `json:"file_id"`
	SearchValue  string     `json:"search_value"`
	CompleteTime *time.Time `json:"complete_time,omitempty"`
	ImageURL     *string    `json:"image_url,omitempty"`
	ImageDesc    *string    `json:"image_desc,omitempty"`
}

// IsComplete reports whether the external writer has marked the row done.
func (r *TrackingRow) IsComplete() bool {
	return r != nil && r.CompleteTime != nil
}

// Completion returns the fields observed by a completion wait.
func (r *TrackingRow) Completion() Completion {
	entryID := r.EntryID
	return Completion{
		EntryID:   &entryID,
		ImageURL:  r.ImageURL,
		ImageDesc: r.ImageDesc,
	}
}

// Completion is the outcome of waiting for a tracking row. A wait that hit
// its deadline yields the zero value, with every field nil.
type Completion struct {
	EntryID   *int
	ImageURL  *string
	ImageDesc *string
}

// Abandoned reports whether the wait gave up before the row completed.
func (c Completion) Abandoned() bool {
	return c.EntryID == nil && c.ImageURL == nil && c.ImageDesc == nil
}

// Usable reports whether every field the caller needs is present.
func (c Completion) Usable() bool {
	return c.EntryID != nil && c.ImageURL != nil && c.ImageDesc != nil
}
