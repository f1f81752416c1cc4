package models

// PatchStatus is the per-patch outcome.
type PatchStatus string

const (
	PatchApplied PatchStatus = "applied"
	PatchSkipped PatchStatus = "skipped"
	PatchFailed  PatchStatus = "failed"
)

// PatchResult records the outcome of one patch file.
type PatchResult struct {
	Name    string      `json:"name"`
	Status  PatchStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// PatchSummary aggregates patch application over a source tree. The aggregate
// is never fatal on its own; callers that require strict application check
// Failed themselves.
type PatchSummary struct {
	Results []PatchResult `json:"results"`
}

// Counts returns applied, skipped and failed totals.
func (s PatchSummary) Counts() (applied, skipped, failed int) {
	for _, r := range s.Results {
		switch r.Status {
		case PatchApplied:
			applied++
		case PatchSkipped:
			skipped++
		case PatchFailed:
			failed++
		}
	}
	return
}

// Failed reports whether any patch failed to apply.
func (s PatchSummary) Failed() bool {
	_, _, failed := s.Counts()
	return failed > 0
}
