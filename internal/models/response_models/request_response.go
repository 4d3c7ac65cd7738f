package response_models

type ServiceRequestResponse struct {
	ID             string            `json:"id"`
	Classification string            `json:"classification"`
	Summary        string            `json:"summary"`
	Entities       map[string]string `json:"entities"`
	Tags           []string          `json:"tags"`
	OriginLat      float64           `json:"origin_lat"`
	OriginLng      float64           `json:"origin_lng"`
	DestinationLat *float64          `json:"destination_lat,omitempty"`
	DestinationLng *float64          `json:"destination_lng,omitempty"`
	PriceEstimate  *float64          `json:"price_estimate,omitempty"`
	Status         string            `json:"status"`
}
