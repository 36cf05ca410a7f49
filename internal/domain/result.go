package domain

// ImageResult is the payload of a successful row.
type ImageResult struct {
	URL string `json:"url"`
}

// RowResult is the per-item outcome of the pipeline. Exactly one of Result
// and Error is set; the row index and search value are always echoed.
type RowResult struct {
	Result           *ImageResult `json:"result,omitempty"`
	Error            string       `json:"error,omitempty"`
	AbsoluteRowIndex int          `json:"absoluteRowIndex"`
	SearchValue      string       `json:"searchValue"`
}

// NewRowSuccess builds the result for a completed row.
func NewRowSuccess(item SubmittedItem, url string) RowResult {
	return RowResult{
		Result:           &ImageResult{URL: url},
		AbsoluteRowIndex: item.AbsoluteRowIndex,
		SearchValue:      item.SearchValue,
	}
}

// NewRowError builds the result for a failed row.
func NewRowError(item SubmittedItem, message string) RowResult {
	return RowResult{
		Error:            message,
		AbsoluteRowIndex: item.AbsoluteRowIndex,
		SearchValue:      item.SearchValue,
	}
}

// Succeeded reports whether the row produced an image.
func (r RowResult) Succeeded() bool {
	return r.Result != nil && r.Error == ""
}
