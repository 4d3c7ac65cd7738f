package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"wayfare/internal/models/db_models"
	"wayfare/internal/models/response_models"
	"wayfare/internal/repositories"
	mem "wayfare/pkg/memcache"
	"wayfare/pkg/utils"
)

// How long a single analysis call may run before it is treated exactly like
// a gateway failure and the draft takes the fallback path.
const defaultAnalysisTimeout = 12 * time.Second

// Upper bound on how long a plan stays locked if Release is never reached.
const finalizeLockTTL = 5 * time.Minute

type FinalizeServiceInterface interface {
	FinalizePlan(ctx context.Context, requesterID string, planID string) (*response_models.FinalizeResult, error)
}

type FinalizeService struct {
	planRepo        repositories.PlanRepository
	requestRepo     repositories.ServiceRequestRepository
	analysis        utils.AnalysisClientInterface
	embedder        utils.EmbeddingClientInterface
	locks           mem.FinalizeLockStore
	analysisTimeout time.Duration
}

func NewFinalizeService(
	planRepo repositories.PlanRepository,
	requestRepo repositories.ServiceRequestRepository,
	analysis utils.AnalysisClientInterface,
	embedder utils.EmbeddingClientInterface,
	locks mem.FinalizeLockStore,
) FinalizeServiceInterface {
	return &FinalizeService{
		planRepo:        planRepo,
		requestRepo:     requestRepo,
		analysis:        analysis,
		embedder:        embedder,
		locks:           locks,
		analysisTimeout: defaultAnalysisTimeout,
	}
}

// draftJob is one eligible action with everything resolved from the plan
// snapshot before any gateway call starts.
type draftJob struct {
	stop        *db_models.JourneyStop
	action      *db_models.JourneyAction
	details     db_models.ActionDetails
	origin      db_models.Coordinate
	destination db_models.Coordinate
	contextText string
	baseBag     map[string]string
}

// draftOutcome is the settled result for one job, refined or fallback.
type draftOutcome struct {
	classification string
	summary        string
	entities       map[string]string
	priceEstimate  *float64
	refined        bool
}

func (s *FinalizeService) FinalizePlan(ctx context.Context, requesterID string, planID string) (*response_models.FinalizeResult, error) {
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
	if plan.Status != db_models.PlanStatusDraft {
		return nil, utils.ErrPlanNotDraft
	}

	if !s.locks.Acquire(planID, finalizeLockTTL) {
		return nil, utils.ErrPlanFinalizing
	}
	defer s.locks.Release(planID)

	if err := validatePlan(plan); err != nil {
		return nil, err
	}

	jobs, err := s.collectJobs(plan)
	if err != nil {
		return nil, err
	}

	outcomes := s.refineConcurrently(ctx, plan, jobs)

	drafts := make([]*db_models.ServiceRequest, len(jobs))
	for i, job := range jobs {
		out := outcomes[i]
		drafts[i] = s.buildDraft(ctx, plan, job, out)
	}

	if err := s.requestRepo.InsertDrafts(ctx, drafts); err != nil {
		return nil, utils.ErrDatabaseError
	}

	// Write-back: link each action to the request it produced and advance
	// the plan. Failures here are logged, not surfaced; the drafts exist.
	for i, job := range jobs {
		if err := s.planRepo.LinkActionRequest(ctx, job.action.ID, drafts[i].ID); err != nil {
			log.Printf("link action %s to request %s failed: %v", job.action.ID, drafts[i].ID, err)
		}
	}
	if len(drafts) > 0 {
		if err := s.planRepo.UpdatePlanStatus(ctx, plan.ID, db_models.PlanStatusPlanned); err != nil {
			log.Printf("update plan %s status failed: %v", planID, err)
		}
	}

	return buildFinalizeResult(plan, jobs, drafts, outcomes), nil
}

// validatePlan is the sole precondition gate: minimum stops, every stop
// located, every intermediate stop holding at least one action. All
// violations are reported together before any work starts.
func validatePlan(plan *db_models.JourneyPlan) error {
	var problems []string

	if !plan.HasMinimumStops() {
		problems = append(problems, "a journey needs at least two stops")
	}
	for _, name := range plan.UnlocatedStops() {
		problems = append(problems, fmt.Sprintf("%s has no resolved location", name))
	}
	for _, name := range plan.EmptyIntermediateStops() {
		problems = append(problems, fmt.Sprintf("%s has no actions", name))
	}

	if len(problems) > 0 {
		return &utils.ValidationError{Problems: problems}
	}
	return nil
}

// eligibleForDraft filters to the action types that expand into drafts.
// Drop-offs, waits and "other" are consequences of a prior pickup or
// assignment, not independently dispatchable requests.
func eligibleForDraft(t db_models.JourneyActionType) bool {
	switch t {
	case db_models.ActionPickupPerson, db_models.ActionPickupItem, db_models.ActionAssignTask:
		return true
	}
	return false
}

// collectJobs walks stops in sequence order and actions in append order so
// the output order is fixed before any concurrency begins.
func (s *FinalizeService) collectJobs(plan *db_models.JourneyPlan) ([]draftJob, error) {
	var jobs []draftJob

	for si := range plan.Stops {
		stop := &plan.Stops[si]
		for ai := range stop.Actions {
			action := &stop.Actions[ai]
			if !eligibleForDraft(action.Type) {
				continue
			}

			details, err := action.DecodedDetails()
			if err != nil {
				return nil, utils.ErrUnknownActionType
			}

			jobs = append(jobs, draftJob{
				stop:        stop,
				action:      action,
				details:     details,
				origin:      *stop.Location(),
				destination: resolveDestination(plan, si, action.Type),
				contextText: buildContextText(plan, stop, details),
				baseBag:     details.EntityBag(),
			})
		}
	}

	return jobs, nil
}

// resolveDestination applies the per-type lookahead rule against the plan
// snapshot. All stops are located by the time this runs, so the fallbacks
// always produce a real coordinate.
func resolveDestination(plan *db_models.JourneyPlan, stopIdx int, t db_models.JourneyActionType) db_models.Coordinate {
	last := len(plan.Stops) - 1

	switch t {
	case db_models.ActionPickupPerson:
		// Next stop in sequence; the last stop when none follows.
		if stopIdx+1 <= last {
			return *plan.Stops[stopIdx+1].Location()
		}
		return *plan.Stops[last].Location()

	case db_models.ActionPickupItem:
		// Nearest subsequent stop holding a dropoff_item action; the last
		// stop when no drop-off is planned.
		for i := stopIdx + 1; i <= last; i++ {
			for ai := range plan.Stops[i].Actions {
				if plan.Stops[i].Actions[ai].Type == db_models.ActionDropoffItem {
					return *plan.Stops[i].Location()
				}
			}
		}
		return *plan.Stops[last].Location()

	default:
		// assign_task: performed at the stop itself, no lookahead.
		return *plan.Stops[stopIdx].Location()
	}
}

func buildContextText(plan *db_models.JourneyPlan, stop *db_models.JourneyStop, details db_models.ActionDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Journey %q, %s (%s). ", plan.Title, stop.Name, stop.AddressInput)
	b.WriteString(details.Describe())
	return b.String()
}

// fallbackClassification derives a default classification from the action
// type when the gateway cannot refine the draft.
func fallbackClassification(t db_models.JourneyActionType) string {
	switch t {
	case db_models.ActionPickupPerson:
		return utils.ClassificationRide
	case db_models.ActionPickupItem:
		return utils.ClassificationDelivery
	case db_models.ActionAssignTask:
		return utils.ClassificationProfessional
	default:
		return utils.ClassificationOther
	}
}

// refineConcurrently fans out one analysis call per job and collects results
// by original index, so output order matches plan iteration order no matter
// which call settles first. Every call is wrapped in its own failure
// boundary: errors and timeouts degrade to the fallback outcome, never
// abort the fan-in.
func (s *FinalizeService) refineConcurrently(ctx context.Context, plan *db_models.JourneyPlan, jobs []draftJob) []draftOutcome {
	outcomes := make([]draftOutcome, len(jobs))

	var g errgroup.Group
	for i := range jobs {
		i := i
		job := jobs[i]
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.analysisTimeout)
			defer cancel()

			input := utils.AnalysisInput{
				Text:           job.contextText,
				OriginLat:      job.origin.Lat,
				OriginLng:      job.origin.Lng,
				DestinationLat: &job.destination.Lat,
				DestinationLng: &job.destination.Lng,
			}
			if recipient := job.details.RecipientInfo(); recipient != nil {
				input.RecipientName = recipient.Name
				input.RecipientContact = recipient.Contact
				input.RecipientNotes = recipient.Notes
			}

			result, err := s.analysis.Analyze(callCtx, input)
			if err != nil {
				log.Printf("analysis failed for action %s, using local fallback: %v", job.action.ID, err)
				outcomes[i] = draftOutcome{
					classification: fallbackClassification(job.action.Type),
					summary:        job.contextText,
					entities:       job.baseBag,
					refined:        false,
				}
				return nil
			}

			// Gateway entities are merged over the base bag so locally known
			// fields survive a sparse response.
			merged := make(map[string]string, len(job.baseBag)+len(result.Entities))
			for k, v := range job.baseBag {
				merged[k] = v
			}
			for k, v := range result.Entities {
				merged[k] = v
			}

			summary := result.Summary
			if summary == "" {
				summary = job.contextText
			}

			outcomes[i] = draftOutcome{
				classification: result.Classification,
				summary:        summary,
				entities:       merged,
				priceEstimate:  result.PriceEstimate,
				refined:        true,
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; fallback handles them

	return outcomes
}

func (s *FinalizeService) buildDraft(ctx context.Context, plan *db_models.JourneyPlan, job draftJob, out draftOutcome) *db_models.ServiceRequest {
	draft := &db_models.ServiceRequest{
		RequesterID:     plan.RequesterID,
		SourceJourneyID: plan.ID,
		SourceStopID:    job.stop.ID,
		SourceActionID:  job.action.ID,
		Classification:  out.classification,
		Summary:         out.summary,
		OriginLat:       job.origin.Lat,
		OriginLng:       job.origin.Lng,
		DestinationLat:  &job.destination.Lat,
		DestinationLng:  &job.destination.Lng,
		PriceEstimate:   out.priceEstimate,
		Refined:         out.refined,
		Status:          db_models.RequestStatusDraft,
	}

	if encoded, err := encodeEntities(out.entities); err == nil {
		draft.Entities = encoded
	}
	keys := make([]string, 0, len(out.entities))
	for key := range out.entities {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	draft.Tags = keys

	// Embedding is best-effort; a missing vector only weakens provider
	// matching later.
	if s.embedder != nil {
		if vec, err := s.embedder.GetEmbedding(ctx, draft.Summary); err == nil {
			draft.Embedding = vec
		} else {
			log.Printf("embedding failed for action %s: %v", job.action.ID, err)
		}
	}

	return draft
}

func encodeEntities(entities map[string]string) (datatypes.JSON, error) {
	if entities == nil {
		entities = map[string]string{}
	}
	data, err := json.Marshal(entities)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func buildFinalizeResult(plan *db_models.JourneyPlan, jobs []draftJob, drafts []*db_models.ServiceRequest, outcomes []draftOutcome) *response_models.FinalizeResult {
	result := &response_models.FinalizeResult{
		PlanID:     plan.ID.String(),
		DraftCount: len(drafts),
		Drafts:     make([]response_models.FinalizeItem, 0, len(drafts)),
	}

	for i := range drafts {
		if outcomes[i].refined {
			result.RefinedCount++
		} else {
			result.FallbackCount++
		}
		result.Drafts = append(result.Drafts, response_models.FinalizeItem{
			RequestID:      drafts[i].ID.String(),
			StopName:       jobs[i].stop.Name,
			ActionID:       jobs[i].action.ID.String(),
			ActionType:     string(jobs[i].action.Type),
			Classification: drafts[i].Classification,
			Summary:        drafts[i].Summary,
			Refined:        outcomes[i].refined,
		})
	}

	switch {
	case result.FallbackCount == 0:
		result.Message = fmt.Sprintf("finalized %d request(s)", result.DraftCount)
	default:
		result.Message = fmt.Sprintf("finalized %d request(s), %d using local analysis", result.DraftCount, result.FallbackCount)
	}

	return result
}
