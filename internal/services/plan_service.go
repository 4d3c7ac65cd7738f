package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"wayfare/internal/models/db_models"
	"wayfare/internal/models/request_models"
	"wayfare/internal/models/response_models"
	"wayfare/internal/repositories"
	mem "wayfare/pkg/memcache"
	"wayfare/pkg/utils"
)

type PlanServiceInterface interface {
	CreatePlan(ctx context.Context, requesterID string, req request_models.CreatePlanRequest) (*response_models.PlanDetailResponse, error)
	GetPlan(ctx context.Context, requesterID string, planID string) (*response_models.PlanDetailResponse, error)
	ListPlans(ctx context.Context, requesterID string, page, pageSize int) ([]response_models.PlanSummaryResponse, error)

	AddStop(ctx context.Context, requesterID string, planID string) (*response_models.StopResponse, error)
	RemoveStop(ctx context.Context, requesterID string, planID string, stopID string) error
	SetStopLocation(ctx context.Context, requesterID string, req request_models.SetStopLocationRequest) (*response_models.StopResponse, error)

	SaveAction(ctx context.Context, requesterID string, req request_models.SaveActionRequest) (uuid.UUID, error)
	DeleteAction(ctx context.Context, requesterID string, req request_models.DeleteActionRequest) error
}

type PlanService struct {
	planRepo repositories.PlanRepository
	geocoder GeocodingServiceInterface
	locks    mem.FinalizeLockStore
}

func NewPlanService(
	planRepo repositories.PlanRepository,
	geocoder GeocodingServiceInterface,
	locks mem.FinalizeLockStore,
) PlanServiceInterface {
	return &PlanService{
		planRepo: planRepo,
		geocoder: geocoder,
		locks:    locks,
	}
}

func (s *PlanService) CreatePlan(ctx context.Context, requesterID string, req request_models.CreatePlanRequest) (*response_models.PlanDetailResponse, error) {
	requesterUUID, err := uuid.Parse(requesterID)
	if err != nil {
		return nil, utils.ErrInvalidInput
	}

	plan := db_models.NewJourneyPlan(requesterUUID, req.Title)

	// Addresses are optional at creation; geocode failures leave the stop
	// unlocated, which only blocks finalize, not planning.
	if req.OriginAddress != "" {
		s.applyAddress(ctx, &plan.Stops[0], req.OriginAddress)
	}
	if req.DestinationAddress != "" {
		s.applyAddress(ctx, &plan.Stops[len(plan.Stops)-1], req.DestinationAddress)
	}

	if err := s.planRepo.InsertPlan(ctx, plan); err != nil {
		return nil, utils.ErrDatabaseError
	}

	return buildPlanDetailResponse(plan), nil
}

func (s *PlanService) applyAddress(ctx context.Context, stop *db_models.JourneyStop, address string) {
	stop.AddressInput = address
	coord, placeName, err := s.geocoder.Resolve(ctx, address)
	if err != nil {
		log.Printf("geocode failed for %q: %v", address, err)
		return
	}
	stop.Lat = &coord.Lat
	stop.Lng = &coord.Lng
	if placeName != "" {
		stop.AddressInput = placeName
	}
}

func (s *PlanService) GetPlan(ctx context.Context, requesterID string, planID string) (*response_models.PlanDetailResponse, error) {
	plan, err := s.loadOwnedPlan(ctx, requesterID, planID)
	if err != nil {
		return nil, err
	}
	return buildPlanDetailResponse(plan), nil
}

func (s *PlanService) ListPlans(ctx context.Context, requesterID string, page, pageSize int) ([]response_models.PlanSummaryResponse, error) {
	plans, err := s.planRepo.ListPlansByRequester(ctx, requesterID, page, pageSize)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	out := make([]response_models.PlanSummaryResponse, 0, len(plans))
	for i := range plans {
		out = append(out, response_models.PlanSummaryResponse{
			ID:        plans[i].ID.String(),
			Title:     plans[i].Title,
			Status:    string(plans[i].Status),
			StopCount: len(plans[i].Stops),
		})
	}
	return out, nil
}

func (s *PlanService) AddStop(ctx context.Context, requesterID string, planID string) (*response_models.StopResponse, error) {
	plan, err := s.loadMutableDraft(ctx, requesterID, planID)
	if err != nil {
		return nil, err
	}

	stop := plan.AddStop()

	if err := s.planRepo.InsertStop(ctx, stop); err != nil {
		return nil, utils.ErrDatabaseError
	}
	if err := s.planRepo.SaveStopOrder(ctx, plan.Stops); err != nil {
		return nil, utils.ErrDatabaseError
	}

	resp := buildStopResponse(stop)
	return &resp, nil
}

func (s *PlanService) RemoveStop(ctx context.Context, requesterID string, planID string, stopID string) error {
	plan, err := s.loadMutableDraft(ctx, requesterID, planID)
	if err != nil {
		return err
	}

	stopUUID, err := uuid.Parse(stopID)
	if err != nil {
		return utils.ErrInvalidInput
	}
	if plan.FindStop(stopUUID) == nil {
		return utils.ErrStopNotFound
	}

	if !plan.RemoveStop(stopUUID) {
		log.Printf("remove stop rejected on plan %s: already at the two-stop floor", planID)
		return utils.ErrStopFloor
	}

	if err := s.planRepo.DeleteStop(ctx, stopUUID); err != nil {
		return utils.ErrDatabaseError
	}
	if err := s.planRepo.SaveStopOrder(ctx, plan.Stops); err != nil {
		return utils.ErrDatabaseError
	}
	return nil
}

func (s *PlanService) SetStopLocation(ctx context.Context, requesterID string, req request_models.SetStopLocationRequest) (*response_models.StopResponse, error) {
	plan, err := s.loadMutableDraft(ctx, requesterID, req.PlanID)
	if err != nil {
		return nil, err
	}

	stopUUID, err := uuid.Parse(req.StopID)
	if err != nil {
		return nil, utils.ErrInvalidInput
	}
	stop := plan.FindStop(stopUUID)
	if stop == nil {
		return nil, utils.ErrStopNotFound
	}

	switch {
	case req.Lat != nil && req.Lng != nil:
		// Map click: the coordinate is authoritative, the address is a
		// best-effort label.
		coord := db_models.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
		stop.Lat = &coord.Lat
		stop.Lng = &coord.Lng
		placeName, err := s.geocoder.ReverseResolve(ctx, coord)
		if err != nil {
			log.Printf("reverse geocode failed for %f,%f: %v", coord.Lat, coord.Lng, err)
			stop.AddressInput = fmt.Sprintf("%f,%f", coord.Lat, coord.Lng)
		} else {
			stop.AddressInput = placeName
		}
	case req.Address != "":
		stop.Lat = nil
		stop.Lng = nil
		s.applyAddress(ctx, stop, req.Address)
	default:
		return nil, utils.ErrInvalidInput
	}

	if err := s.planRepo.UpdateStopLocation(ctx, stop.ID, stop.AddressInput, stop.Lat, stop.Lng); err != nil {
		return nil, utils.ErrDatabaseError
	}

	resp := buildStopResponse(stop)
	return &resp, nil
}

func (s *PlanService) SaveAction(ctx context.Context, requesterID string, req request_models.SaveActionRequest) (uuid.UUID, error) {
	plan, err := s.loadMutableDraft(ctx, requesterID, req.PlanID)
	if err != nil {
		return uuid.Nil, err
	}

	stopUUID, err := uuid.Parse(req.StopID)
	if err != nil {
		return uuid.Nil, utils.ErrInvalidInput
	}
	stop := plan.FindStop(stopUUID)
	if stop == nil {
		return uuid.Nil, utils.ErrStopNotFound
	}

	actionType := db_models.JourneyActionType(req.Type)
	details, err := db_models.DecodeActionDetails(actionType, datatypes.JSON(req.Details))
	if err != nil {
		return uuid.Nil, utils.ErrUnknownActionType
	}
	encoded, err := db_models.EncodeActionDetails(details)
	if err != nil {
		return uuid.Nil, utils.ErrInvalidInput
	}

	action := db_models.JourneyAction{
		StopID:  stop.ID,
		Type:    actionType,
		Details: encoded,
		Status:  db_models.ActionStatusConfigured,
	}

	if req.ActionID != "" {
		actionUUID, err := uuid.Parse(req.ActionID)
		if err != nil {
			return uuid.Nil, utils.ErrInvalidInput
		}
		action.ID = actionUUID
		// Editing keeps the row's creation time so append order survives.
		for i := range stop.Actions {
			if stop.Actions[i].ID == actionUUID {
				action.BaseModel = stop.Actions[i].BaseModel
				break
			}
		}
	} else {
		action.ID = uuid.New()
	}

	stop.UpsertAction(action)

	if err := s.planRepo.SaveAction(ctx, &action); err != nil {
		return uuid.Nil, utils.ErrDatabaseError
	}
	return action.ID, nil
}

func (s *PlanService) DeleteAction(ctx context.Context, requesterID string, req request_models.DeleteActionRequest) error {
	plan, err := s.loadMutableDraft(ctx, requesterID, req.PlanID)
	if err != nil {
		return err
	}

	stopUUID, err := uuid.Parse(req.StopID)
	if err != nil {
		return utils.ErrInvalidInput
	}
	actionUUID, err := uuid.Parse(req.ActionID)
	if err != nil {
		return utils.ErrInvalidInput
	}
	stop := plan.FindStop(stopUUID)
	if stop == nil {
		return utils.ErrStopNotFound
	}

	// Delete is idempotent; a missing action is not an error.
	stop.RemoveAction(actionUUID)

	if err := s.planRepo.DeleteAction(ctx, stopUUID, actionUUID); err != nil {
		return utils.ErrDatabaseError
	}
	return nil
}

func (s *PlanService) loadOwnedPlan(ctx context.Context, requesterID string, planID string) (*db_models.JourneyPlan, error) {
	plan, err := s.planRepo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if plan == nil {
		return nil, utils.ErrPlanNotFound
	}
	if plan.RequesterID.String() != requesterID {
		return nil, utils.ErrForbiddenPlanAccess
	}
	return plan, nil
}

// loadMutableDraft is the shared gate for every mutation: ownership, draft
// status, and no finalize in flight.
func (s *PlanService) loadMutableDraft(ctx context.Context, requesterID string, planID string) (*db_models.JourneyPlan, error) {
	if s.locks.Held(planID) {
		return nil, utils.ErrPlanFinalizing
	}

	plan, err := s.loadOwnedPlan(ctx, requesterID, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != db_models.PlanStatusDraft {
		return nil, utils.ErrPlanNotDraft
	}
	return plan, nil
}

func buildPlanDetailResponse(plan *db_models.JourneyPlan) *response_models.PlanDetailResponse {
	stops := make([]response_models.StopResponse, 0, len(plan.Stops))
	for i := range plan.Stops {
		stops = append(stops, buildStopResponse(&plan.Stops[i]))
	}
	return &response_models.PlanDetailResponse{
		ID:     plan.ID.String(),
		Title:  plan.Title,
		Status: string(plan.Status),
		Stops:  stops,
	}
}

func buildStopResponse(stop *db_models.JourneyStop) response_models.StopResponse {
	actions := make([]response_models.ActionResponse, 0, len(stop.Actions))
	for i := range stop.Actions {
		a := &stop.Actions[i]
		resp := response_models.ActionResponse{
			ID:     a.ID.String(),
			Type:   string(a.Type),
			Status: string(a.Status),
		}
		if details, err := a.DecodedDetails(); err == nil {
			resp.Details = details
		}
		if a.LinkedRequestID != nil {
			resp.LinkedRequestID = a.LinkedRequestID.String()
		}
		actions = append(actions, resp)
	}

	return response_models.StopResponse{
		ID:           stop.ID.String(),
		Name:         stop.Name,
		AddressInput: stop.AddressInput,
		Lat:          stop.Lat,
		Lng:          stop.Lng,
		Located:      stop.Location() != nil,
		Sequence:     stop.Sequence,
		Actions:      actions,
	}
}
