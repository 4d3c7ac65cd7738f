package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wayfare/internal/models/db_models"
	"wayfare/internal/repositories"
	mem "wayfare/pkg/memcache"
	"wayfare/pkg/utils"
)

// fakePlanRepo serves one plan from memory and records every write.
type fakePlanRepo struct {
	mu   sync.Mutex
	plan *db_models.JourneyPlan

	insertedPlans   []*db_models.JourneyPlan
	insertedStops   []uuid.UUID
	deletedStops    []uuid.UUID
	savedActions    []*db_models.JourneyAction
	deletedActions  []uuid.UUID
	linked          map[uuid.UUID]uuid.UUID
	statusUpdates   []db_models.JourneyPlanStatus
	stopOrderSaves  int
	locationUpdates int
}

var _ repositories.PlanRepository = (*fakePlanRepo)(nil)

func newFakePlanRepo(plan *db_models.JourneyPlan) *fakePlanRepo {
	return &fakePlanRepo{plan: plan, linked: make(map[uuid.UUID]uuid.UUID)}
}

func (r *fakePlanRepo) InsertPlan(_ context.Context, plan *db_models.JourneyPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	r.plan = plan
	r.insertedPlans = append(r.insertedPlans, plan)
	return nil
}

func (r *fakePlanRepo) GetPlanByID(_ context.Context, planID string) (*db_models.JourneyPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.plan == nil || r.plan.ID.String() != planID {
		return nil, nil
	}
	return r.plan, nil
}

func (r *fakePlanRepo) ListPlansByRequester(_ context.Context, requesterID string, _, _ int) ([]db_models.JourneyPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.plan == nil || r.plan.RequesterID.String() != requesterID {
		return nil, nil
	}
	return []db_models.JourneyPlan{*r.plan}, nil
}

func (r *fakePlanRepo) InsertStop(_ context.Context, stop *db_models.JourneyStop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertedStops = append(r.insertedStops, stop.ID)
	return nil
}

func (r *fakePlanRepo) SaveStopOrder(_ context.Context, _ []db_models.JourneyStop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopOrderSaves++
	return nil
}

func (r *fakePlanRepo) DeleteStop(_ context.Context, stopID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedStops = append(r.deletedStops, stopID)
	return nil
}

func (r *fakePlanRepo) UpdateStopLocation(_ context.Context, _ uuid.UUID, _ string, _, _ *float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locationUpdates++
	return nil
}

func (r *fakePlanRepo) SaveAction(_ context.Context, action *db_models.JourneyAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.savedActions = append(r.savedActions, action)
	return nil
}

func (r *fakePlanRepo) DeleteAction(_ context.Context, _, actionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedActions = append(r.deletedActions, actionID)
	return nil
}

func (r *fakePlanRepo) LinkActionRequest(_ context.Context, actionID, requestID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linked[actionID] = requestID
	return nil
}

func (r *fakePlanRepo) UpdatePlanStatus(_ context.Context, _ uuid.UUID, status db_models.JourneyPlanStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusUpdates = append(r.statusUpdates, status)
	return nil
}

// fakeRequestRepo assigns ids on insert the way the database would.
type fakeRequestRepo struct {
	mu      sync.Mutex
	drafts  []*db_models.ServiceRequest
	inserts int
}

var _ repositories.ServiceRequestRepository = (*fakeRequestRepo)(nil)

func (r *fakeRequestRepo) InsertDrafts(_ context.Context, drafts []*db_models.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range drafts {
		d.ID = uuid.New()
	}
	r.drafts = append(r.drafts, drafts...)
	r.inserts++
	return nil
}

func (r *fakeRequestRepo) ListByRequester(_ context.Context, _ string, _, _ int) ([]db_models.ServiceRequest, error) {
	return nil, nil
}

func (r *fakeRequestRepo) ListOpen(_ context.Context, _, _ int) ([]db_models.ServiceRequest, error) {
	return nil, nil
}

// fakeAnalysis runs a per-test function and records every input it saw.
type fakeAnalysis struct {
	mu     sync.Mutex
	inputs []utils.AnalysisInput
	fn     func(ctx context.Context, input utils.AnalysisInput) (*utils.AnalysisResult, error)
}

func (f *fakeAnalysis) Analyze(ctx context.Context, input utils.AnalysisInput) (*utils.AnalysisResult, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()
	if f.fn == nil {
		return &utils.AnalysisResult{Classification: utils.ClassificationOther, Summary: "refined: " + input.Text}, nil
	}
	return f.fn(ctx, input)
}

type fakeEmbedder struct{ vec pgvector.Vector }

func (f *fakeEmbedder) GetEmbedding(_ context.Context, _ string) (pgvector.Vector, error) {
	return f.vec, nil
}

// locatedPlan builds a draft plan where stop i sits at (10+i/10, 106+i/10),
// so destination assertions can name stops by coordinate.
func locatedPlan(requester uuid.UUID, intermediates int) *db_models.JourneyPlan {
	plan := db_models.NewJourneyPlan(requester, "Errand run")
	plan.ID = uuid.New()
	for i := 0; i < intermediates; i++ {
		plan.AddStop()
	}
	for i := range plan.Stops {
		lat := 10.0 + float64(i)/10
		lng := 106.0 + float64(i)/10
		plan.Stops[i].Lat = &lat
		plan.Stops[i].Lng = &lng
		plan.Stops[i].AddressInput = fmt.Sprintf("%d Nguyen Hue", i+1)
	}
	return plan
}

func attachAction(t *testing.T, stop *db_models.JourneyStop, details db_models.ActionDetails) uuid.UUID {
	t.Helper()
	encoded, err := db_models.EncodeActionDetails(details)
	require.NoError(t, err)
	stop.UpsertAction(db_models.JourneyAction{
		BaseModel: db_models.BaseModel{ID: uuid.New()},
		StopID:    stop.ID,
		Type:      details.ActionType(),
		Details:   encoded,
		Status:    db_models.ActionStatusConfigured,
	})
	return stop.Actions[len(stop.Actions)-1].ID
}

type finalizeFixture struct {
	svc      *FinalizeService
	planRepo *fakePlanRepo
	reqRepo  *fakeRequestRepo
	analysis *fakeAnalysis
	locks    *mem.FinalizeLocks
}

func newFinalizeFixture(plan *db_models.JourneyPlan) *finalizeFixture {
	f := &finalizeFixture{
		planRepo: newFakePlanRepo(plan),
		reqRepo:  &fakeRequestRepo{},
		analysis: &fakeAnalysis{},
		locks:    mem.NewFinalizeLocks(),
	}
	f.svc = &FinalizeService{
		planRepo:        f.planRepo,
		requestRepo:     f.reqRepo,
		analysis:        f.analysis,
		embedder:        &fakeEmbedder{vec: pgvector.NewVector([]float32{0.25, 0.5})},
		locks:           f.locks,
		analysisTimeout: time.Second,
	}
	return f
}

func TestFinalizeRejectsUnlocatedAndEmptyStops(t *testing.T) {
	requester := uuid.New()
	plan := locatedPlan(requester, 2)
	plan.Stops[1].Lat = nil
	plan.Stops[1].Lng = nil
	attachAction(t, &plan.Stops[2], db_models.AssignTaskDetails{TaskDescription: "clean car"})
	f := newFinalizeFixture(plan)

	_, err := f.svc.FinalizePlan(context.Background(), requester.String(), plan.ID.String())

	var vErr *utils.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Problems, "Stop 1 has no resolved location")
	assert.Contains(t, vErr.Problems, "Stop 1 has no actions")
	assert.Zero(t, f.reqRepo.inserts, "no drafts on a failed gate")
	assert.False(t, f.locks.Held(plan.ID.String()), "lock released after rejection")
}

func TestFinalizeRejectsForeignAndNonDraftPlans(t *testing.T) {
	requester := uuid.New()
	plan := locatedPlan(requester, 1)
	attachAction(t, &plan.Stops[1], db_models.AssignTaskDetails{TaskDescription: "clean car"})
	f := newFinalizeFixture(plan)

	_, err := f.svc.FinalizePlan(context.Background(), uuid.New().String(), plan.ID.String())
	assert.ErrorIs(t, err, utils.ErrForbiddenPlanAccess)

	plan.Status = db_models.PlanStatusPlanned
	_, err = f.svc.FinalizePlan(context.Background(), requester.String(), plan.ID.String())
	assert.ErrorIs(t, err, utils.ErrPlanNotDraft)

	_, err = f.svc.FinalizePlan(context.Background(), requester.String(), uuid.New().String())
	assert.ErrorIs(t, err, utils.ErrPlanNotFound)
}

func TestFinalizeRejectsConcurrentRun(t *testing.T) {
	requester := uuid.New()
	plan := locatedPlan(requester, 1)
	attachAction(t, &plan.Stops[1], db_models.AssignTaskDetails{TaskDescription: "clean car"})
	f := newFinalizeFixture(plan)

	require.True(t, f.locks.Acquire(plan.ID.String(), time.Minute))

	_, err := f.svc.FinalizePlan(context.Background(), requester.String(), plan.ID.String())
	assert.ErrorIs(t, err, utils.ErrPlanFinalizing)
	assert.Zero(t, f.reqRepo.inserts)
}

func TestFinalizeResolvesDestinationsPerActionType(t *testing.T) {
	requester := uuid.New()
	plan := locatedPlan(requester, 2)
	// Origin: pickup_person, resolves to the next stop.
	attachAction(t, &plan.Stops[0], db_models.PickupPersonDetails{PassengerCount: 1})
	// Stop 1: pickup_item, resolves to the nearest later dropoff_item,
	// which lives on Stop 2 and not on the final stop.
	attachAction(t, &plan.Stops[1], db_models.PickupItemDetails{ItemDescription: "groceries", Quantity: 2, Unit: "bags"})
	// Stop 2: the drop-off itself plus a task done at the stop.
	attachAction(t, &plan.Stops[2], db_models.DropoffItemDetails{ItemDescription: "groceries"})
	attachAction(t, &plan.Stops[2], db_models.AssignTaskDetails{TaskDescription: "clean car"})
	f := newFinalizeFixture(plan)
	f.analysis.fn = func(_ context.Context, _ utils.AnalysisInput) (*utils.AnalysisResult, error) {
		return nil, errors.New("gateway down")
	}

	result, err := f.svc.FinalizePlan(context.Background(), requester.String(), plan.ID.String())
	require.NoError(t, err)
	require.Equal(t, 3, result.DraftCount, "dropoff_item never expands into a draft")

	drafts := f.reqRepo.drafts
	require.Len(t, drafts, 3)

	// pickup_person at Origin goes to Stop 1.
	assert.Equal(t, *plan.Stops[1].Lat, *drafts[0].DestinationLat)
	assert.Equal(t, *plan.Stops[1].Lng, *drafts[0].DestinationLng)
	// pickup_item at Stop 1 goes to Stop 2's drop-off.
	assert.Equal(t, *plan.Stops[2].Lat, *drafts[1].DestinationLat)
	assert.Equal(t, *plan.Stops[2].Lng, *drafts[1].DestinationLng)
	// assign_task stays at its own stop.
	assert.Equal(t, *plan.Stops[2].Lat, *drafts[2].DestinationLat)
	assert.Equal(t, *plan.Stops[2].Lat, drafts[2].OriginLat)
}

func TestFinalizePickupItemFallsBackToFinalStop(t *testing.T) {
	requester := uuid.New()
	plan := locatedPlan(requester, 1)
	attachAction(t, &plan.Stops[1], db_models.PickupItemDetails{ItemDescription: "parcel", Quantity: 1})
	f := newFinalizeFixture(plan)

	result, err := f.svc.FinalizePlan(context.Background(), requester.String(), plan.ID.String())
	require.NoError(t, err)
	require.Equal(t, 1, result.DraftCount)

	last := len(plan.Stops) - 1
	assert.Equal(t, *plan.Stops[last].Lat, *f.reqRepo.drafts[0].DestinationLat)
	assert.Equal(t, *plan.Stops[last].Lng, *f.reqRepo.drafts[0].DestinationLng)
}

func TestFinalizeGatewayFailureDegradesToFallback(t *testing.T) {
	requester := uuid.New()
	plan := locatedPlan(requester, 3)
	personID := attachAction(t, &plan.Stops[1], db_models.PickupPersonDetails{PassengerCount: 2})
	itemID := attachAction(t, &plan.Stops[2], db_models.PickupItemDetails{ItemDescription: "flowers", Quantity: 1})
	taskID := attachAction(t, &plan.Stops[3], db_models.AssignTaskDetails{TaskDescription: "mow the lawn"})
	f := newFinalizeFixture(plan)
	f.analysis.fn = func(_ context.Context, _ utils.AnalysisInput) (*utils.AnalysisResult, error) {
		return nil, errors.New("gateway down")
	}

	result, err := f.svc.FinalizePlan(context.Background(), requester.String(), plan.ID.String())
	require.NoError(t, err)

	assert.Equal(t, 3, result.DraftCount)
	assert.Equal(t, 0, result.RefinedCount)
	assert.Equal(t, 3, result.FallbackCount)
	assert.Contains(t, result.Message, "using local analysis")

	drafts := f.reqRepo.drafts
	require.Len(t, drafts, 3)
	assert.Equal(t, utils.ClassificationRide, drafts[0].Classification)
	assert.Equal(t, utils.ClassificationDelivery, drafts[1].Classification)
	assert.Equal(t, utils.ClassificationProfessional, drafts[2].Classification)
	for _, d := range drafts {
		assert.False(t, d.Refined)
		assert.NotEmpty(t, d.Summary)
		assert.Contains(t, d.Summary, `Journey "Errand run"`)
	}

	// Write-back still happens on the fallback path.
	assert.Equal(t, drafts[0].ID, f.planRepo.linked[personID])
	assert.Equal(t, drafts[1].ID, f.planRepo.linked[itemID])
	assert.Equal(t, drafts[2].ID, f.planRepo.linked[taskID])
	assert.Equal(t, []db_models.JourneyPlanStatus{db_models.PlanStatusPlanned}, f.planRepo.statusUpdates)
}

func TestFinalizeTimeoutTakesFallbackPath(t *testing.T) {
	requester := uuid.New()
	plan := locatedPlan(requester, 1)
	attachAction(t, &plan.Stops[1], db_models.PickupPersonDetails{PassengerCount: 1})
	f := newFinalizeFixture(plan)
	f.svc.analysisTimeout = 5 * time.Millisecond
	f.analysis.fn = func(ctx context.Context, _ utils.AnalysisInput) (*utils.AnalysisResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	result, err := f.svc.FinalizePlan(context.Background(), requester.String(), plan.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, result.FallbackCount)
	assert.Equal(t, utils.ClassificationRide, f.reqRepo.drafts[0].Classification)
}

func TestFinalizeDraftOrderIgnoresSettleOrder(t *testing.T) {
	requester := uuid.New()
	plan := locatedPlan(requester, 2)
	firstID := attachAction(t, &plan.Stops[1], db_models.PickupPersonDetails{PassengerCount: 1})
	secondID := attachAction(t, &plan.Stops[2], db_models.AssignTaskDetails{TaskDescription: "walk the dog"})
	f := newFinalizeFixture(plan)
	f.analysis.fn = func(_ context.Context, input utils.AnalysisInput) (*utils.AnalysisResult, error) {
		// Let the first job finish last.
		if strings.Contains(input.Text, "passenger") {
			time.Sleep(50 * time.Millisecond)
			return &utils.AnalysisResult{Classification: utils.ClassificationRide, Summary: "slow"}, nil
		}
		return &utils.AnalysisResult{Classification: utils.ClassificationProfessional, Summary: "fast"}, nil
	}

	result, err := f.svc.FinalizePlan(context.Background(), requester.String(), plan.ID.String())
	require.NoError(t, err)
	require.Equal(t, 2, result.DraftCount)

	assert.Equal(t, firstID, f.reqRepo.drafts[0].SourceActionID)
	assert.Equal(t, secondID, f.reqRepo.drafts[1].SourceActionID)
	assert.Equal(t, "slow", f.reqRepo.drafts[0].Summary)
	assert.Equal(t, "fast", f.reqRepo.drafts[1].Summary)
}

func TestFinalizeMergesGatewayEntitiesOverLocalOnes(t *testing.T) {
	requester := uuid.New()
	plan := locatedPlan(requester, 1)
	attachAction(t, &plan.Stops[1], db_models.PickupItemDetails{
		ItemDescription: "groceries",
		Quantity:        3,
		Unit:            "bags",
		Fragile:         true,
		FromSomeoneElse: true,
		Recipient:       &db_models.RecipientContext{Name: "An", Contact: "+84 90 000 0000"},
	})
	price := 120000.0
	f := newFinalizeFixture(plan)
	f.analysis.fn = func(_ context.Context, input utils.AnalysisInput) (*utils.AnalysisResult, error) {
		assert.Equal(t, "An", input.RecipientName)
		return &utils.AnalysisResult{
			Classification: utils.ClassificationDelivery,
			Summary:        "Deliver three bags of groceries for An",
			Entities:       map[string]string{"item": "grocery bags", "recipient": "An"},
			PriceEstimate:  &price,
		}, nil
	}

	result, err := f.svc.FinalizePlan(context.Background(), requester.String(), plan.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, result.RefinedCount)

	draft := f.reqRepo.drafts[0]
	assert.True(t, draft.Refined)
	require.NotNil(t, draft.PriceEstimate)
	assert.Equal(t, price, *draft.PriceEstimate)

	var entities map[string]string
	require.NoError(t, json.Unmarshal(draft.Entities, &entities))
	assert.Equal(t, "grocery bags", entities["item"], "gateway value wins")
	assert.Equal(t, "3", entities["quantity"], "local value survives a sparse response")
	assert.Equal(t, "An", entities["recipient"])

	assert.Contains(t, []string(draft.Tags), "item")
	assert.Contains(t, []string(draft.Tags), "recipient")
	assert.True(t, sortedStrings(draft.Tags), "tags are deterministic")

	assert.Equal(t, pgvector.NewVector([]float32{0.25, 0.5}), draft.Embedding)
}

func sortedStrings(values []string) bool {
	for i := 1; i < len(values); i++ {
		if values[i-1] > values[i] {
			return false
		}
	}
	return true
}

func TestFinalizeErrandRunEndToEnd(t *testing.T) {
	requester := uuid.New()
	plan := locatedPlan(requester, 2)
	plan.Title = "Saturday errand run"
	taskID := attachAction(t, &plan.Stops[1], db_models.AssignTaskDetails{TaskDescription: "clean car", EstimatedMinutes: 45})
	personID := attachAction(t, &plan.Stops[2], db_models.PickupPersonDetails{PassengerCount: 2, LuggageCount: 1})
	attachAction(t, &plan.Stops[2], db_models.WaitDetails{WaitMinutes: 10})
	f := newFinalizeFixture(plan)
	f.analysis.fn = func(_ context.Context, input utils.AnalysisInput) (*utils.AnalysisResult, error) {
		if input.DestinationLat != nil && *input.DestinationLat == *plan.Stops[1].Lat {
			return &utils.AnalysisResult{Classification: utils.ClassificationProfessional, Summary: "Car cleaning at Stop 1"}, nil
		}
		return &utils.AnalysisResult{Classification: utils.ClassificationRide, Summary: "Ride for two to the final destination"}, nil
	}

	result, err := f.svc.FinalizePlan(context.Background(), requester.String(), plan.ID.String())
	require.NoError(t, err)

	// The wait action is never dispatchable, so exactly two drafts come out.
	require.Equal(t, 2, result.DraftCount)
	assert.Equal(t, 2, result.RefinedCount)
	assert.Equal(t, "finalized 2 request(s)", result.Message)

	require.Len(t, result.Drafts, 2)
	assert.Equal(t, "Stop 1", result.Drafts[0].StopName)
	assert.Equal(t, taskID.String(), result.Drafts[0].ActionID)
	assert.Equal(t, utils.ClassificationProfessional, result.Drafts[0].Classification)
	assert.Equal(t, "Stop 2", result.Drafts[1].StopName)
	assert.Equal(t, personID.String(), result.Drafts[1].ActionID)
	assert.Equal(t, utils.ClassificationRide, result.Drafts[1].Classification)

	// The pickup at Stop 2 resolves forward to the final stop.
	last := len(plan.Stops) - 1
	assert.Equal(t, *plan.Stops[last].Lat, *f.reqRepo.drafts[1].DestinationLat)

	assert.Equal(t, f.reqRepo.drafts[0].ID, f.planRepo.linked[taskID])
	assert.Equal(t, f.reqRepo.drafts[1].ID, f.planRepo.linked[personID])
	assert.Equal(t, []db_models.JourneyPlanStatus{db_models.PlanStatusPlanned}, f.planRepo.statusUpdates)
	assert.False(t, f.locks.Held(plan.ID.String()))

	for _, d := range f.reqRepo.drafts {
		assert.Equal(t, requester, d.RequesterID)
		assert.Equal(t, plan.ID, d.SourceJourneyID)
		assert.Equal(t, db_models.RequestStatusDraft, d.Status)
	}
}
