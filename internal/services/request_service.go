package services

import (
	"context"
	"encoding/json"

	"wayfare/internal/models/db_models"
	"wayfare/internal/models/response_models"
	"wayfare/internal/repositories"
	"wayfare/pkg/utils"
)

type RequestServiceInterface interface {
	ListRequestsByRequester(ctx context.Context, requesterID string, page, pageSize int) ([]response_models.ServiceRequestResponse, error)
	ListOpenRequests(ctx context.Context, page, pageSize int) ([]response_models.ServiceRequestResponse, error)
}

type RequestService struct {
	requestRepo repositories.ServiceRequestRepository
}

func NewRequestService(requestRepo repositories.ServiceRequestRepository) RequestServiceInterface {
	return &RequestService{
		requestRepo: requestRepo,
	}
}

func (s *RequestService) ListRequestsByRequester(ctx context.Context, requesterID string, page, pageSize int) ([]response_models.ServiceRequestResponse, error) {
	requests, err := s.requestRepo.ListByRequester(ctx, requesterID, page, pageSize)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return buildRequestResponses(requests), nil
}

func (s *RequestService) ListOpenRequests(ctx context.Context, page, pageSize int) ([]response_models.ServiceRequestResponse, error) {
	requests, err := s.requestRepo.ListOpen(ctx, page, pageSize)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return buildRequestResponses(requests), nil
}

func buildRequestResponses(requests []db_models.ServiceRequest) []response_models.ServiceRequestResponse {
	out := make([]response_models.ServiceRequestResponse, 0, len(requests))
	for i := range requests {
		r := &requests[i]

		entities := map[string]string{}
		if len(r.Entities) > 0 {
			_ = json.Unmarshal(r.Entities, &entities)
		}

		out = append(out, response_models.ServiceRequestResponse{
			ID:             r.ID.String(),
			Classification: r.Classification,
			Summary:        r.Summary,
			Entities:       entities,
			Tags:           r.Tags,
			OriginLat:      r.OriginLat,
			OriginLng:      r.OriginLng,
			DestinationLat: r.DestinationLat,
			DestinationLng: r.DestinationLng,
			PriceEstimate:  r.PriceEstimate,
			Status:         string(r.Status),
		})
	}
	return out
}
