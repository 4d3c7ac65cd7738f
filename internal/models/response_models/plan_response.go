package response_models

type PlanSummaryResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	StopCount int    `json:"stop_count"`
}

type PlanDetailResponse struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Status string         `json:"status"`
	Stops  []StopResponse `json:"stops"`
}

type StopResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	AddressInput string           `json:"address_input"`
	Lat          *float64         `json:"lat,omitempty"`
	Lng          *float64         `json:"lng,omitempty"`
	Located      bool             `json:"located"`
	Sequence     int              `json:"sequence"`
	Actions      []ActionResponse `json:"actions"`
}

type ActionResponse struct {
	ID              string      `json:"id"`
	Type            string      `json:"type"`
	Status          string      `json:"status"`
	Details         interface{} `json:"details"`
	LinkedRequestID string      `json:"linked_request_id,omitempty"`
}
