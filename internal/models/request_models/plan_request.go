package request_models

type CreatePlanRequest struct {
	Title              string `json:"title" binding:"required,min=1,max=120"`
	OriginAddress      string `json:"origin_address"`
	DestinationAddress string `json:"destination_address"`
}

type RemoveStopRequest struct {
	PlanID string `json:"plan_id" binding:"required,uuid4"`
	StopID string `json:"stop_id" binding:"required,uuid4"`
}

// SetStopLocationRequest carries either a free-text address or a raw map
// click coordinate; exactly one of the two forms is expected.
type SetStopLocationRequest struct {
	PlanID  string   `json:"plan_id" binding:"required,uuid4"`
	StopID  string   `json:"stop_id" binding:"required,uuid4"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}
