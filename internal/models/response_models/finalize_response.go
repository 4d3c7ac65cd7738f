package response_models

// FinalizeResult reports what finalize produced. The refined/fallback split
// is informational only; it never changes the set of drafts.
type FinalizeResult struct {
	PlanID        string         `json:"plan_id"`
	DraftCount    int            `json:"draft_count"`
	RefinedCount  int            `json:"refined_count"`
	FallbackCount int            `json:"fallback_count"`
	Message       string         `json:"message"`
	Drafts        []FinalizeItem `json:"drafts"`
}

type FinalizeItem struct {
	RequestID      string `json:"request_id"`
	StopName       string `json:"stop_name"`
	ActionID       string `json:"action_id"`
	ActionType     string `json:"action_type"`
	Classification string `json:"classification"`
	Summary        string `json:"summary"`
	Refined        bool   `json:"refined"`
}
