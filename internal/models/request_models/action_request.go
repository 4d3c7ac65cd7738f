package request_models

import "encoding/json"

// SaveActionRequest configures or edits an action on a stop; both are the
// same upsert. Details is decoded against the action type server-side.
type SaveActionRequest struct {
	PlanID   string          `json:"plan_id" binding:"required,uuid4"`
	StopID   string          `json:"stop_id" binding:"required,uuid4"`
	ActionID string          `json:"action_id" binding:"omitempty,uuid4"`
	Type     string          `json:"type" binding:"required"`
	Details  json.RawMessage `json:"details" binding:"required"`
}

type DeleteActionRequest struct {
	PlanID   string `json:"plan_id" binding:"required,uuid4"`
	StopID   string `json:"stop_id" binding:"required,uuid4"`
	ActionID string `json:"action_id" binding:"required,uuid4"`
}
