package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"wayfare/internal/models/request_models"
	"wayfare/internal/services"
	"wayfare/pkg/utils"
)

type PlanController struct {
	planService     services.PlanServiceInterface
	finalizeService services.FinalizeServiceInterface
}

func NewPlanController(
	planService services.PlanServiceInterface,
	finalizeService services.FinalizeServiceInterface,
) *PlanController {
	return &PlanController{
		planService:     planService,
		finalizeService: finalizeService,
	}
}

// CreatePlan godoc
// @Summary Create a journey plan
// @Description Create a new plan seeded with its Origin and Final Destination stops
// @Tags Plans
// @Accept json
// @Produce json
// @Param request body request_models.CreatePlanRequest true "Plan title and optional endpoint addresses"
// @Success 200 {object} response_models.PlanDetailResponse
// @Security BearerAuth
// @Router /plans/create [post]
func (p *PlanController) CreatePlan(c *gin.Context) {
	var req request_models.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	plan, err := p.planService.CreatePlan(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, plan, "Plan created successfully")
}

// GetPlanById godoc
// @Summary Get plan details by ID
// @Description Fetch a plan with its stops and actions in sequence order
// @Tags Plans
// @Accept json
// @Produce json
// @Param planId path string true "Plan ID"
// @Success 200 {object} response_models.PlanDetailResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/{planId} [get]
func (p *PlanController) GetPlanById(c *gin.Context) {
	planId := c.Param("planId")
	if planId == "" {
		utils.RespondError(c, http.StatusBadRequest, "Plan ID is required")
		return
	}

	plan, err := p.planService.GetPlan(c.Request.Context(), c.GetString("user_id"), planId)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, plan, "Plan fetched successfully")
}

// GetPlansByUserId godoc
// @Summary List plans for the authenticated requester
// @Tags Plans
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(5) minimum(1) maximum(100)
// @Success 200 {array} response_models.PlanSummaryResponse
// @Security BearerAuth
// @Router /plans [get]
func (p *PlanController) GetPlansByUserId(c *gin.Context) {
	page, pageSize, ok := parsePaging(c)
	if !ok {
		return
	}

	plans, err := p.planService.ListPlans(c.Request.Context(), c.GetString("user_id"), page, pageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, plans, "Plans fetched successfully")
}

// AddStop godoc
// @Summary Add a stop to a plan
// @Description Insert a new stop immediately before the Final Destination and renumber every stop
// @Tags Plans
// @Accept json
// @Produce json
// @Param planId path string true "Plan ID"
// @Success 200 {object} response_models.StopResponse
// @Security BearerAuth
// @Router /plans/{planId}/stops [post]
func (p *PlanController) AddStop(c *gin.Context) {
	planId := c.Param("planId")
	if planId == "" {
		utils.RespondError(c, http.StatusBadRequest, "Plan ID is required")
		return
	}

	stop, err := p.planService.AddStop(c.Request.Context(), c.GetString("user_id"), planId)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, stop, "Stop added successfully")
}

// RemoveStop godoc
// @Summary Remove a stop from a plan
// @Description Remove a stop and renumber the remainder; plans never go below two stops
// @Tags Plans
// @Accept json
// @Produce json
// @Param request body request_models.RemoveStopRequest true "Plan ID and Stop ID"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/remove-stop [post]
func (p *PlanController) RemoveStop(c *gin.Context) {
	var req request_models.RemoveStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "PlanID and StopID are required")
		return
	}

	err := p.planService.RemoveStop(c.Request.Context(), c.GetString("user_id"), req.PlanID, req.StopID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Stop removed successfully")
}

// SetStopLocation godoc
// @Summary Set a stop's location
// @Description Resolve a text address, or reverse-resolve a map click coordinate, onto a stop
// @Tags Plans
// @Accept json
// @Produce json
// @Param request body request_models.SetStopLocationRequest true "Address or coordinate"
// @Success 200 {object} response_models.StopResponse
// @Security BearerAuth
// @Router /plans/set-stop-location [post]
func (p *PlanController) SetStopLocation(c *gin.Context) {
	var req request_models.SetStopLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	stop, err := p.planService.SetStopLocation(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, stop, "Stop location updated")
}

// SaveAction godoc
// @Summary Save an action on a stop
// @Description Configure a new action or edit an existing one; both are the same upsert
// @Tags Plans
// @Accept json
// @Produce json
// @Param request body request_models.SaveActionRequest true "Action payload"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/save-action [post]
func (p *PlanController) SaveAction(c *gin.Context) {
	var req request_models.SaveActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	actionID, err := p.planService.SaveAction(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, gin.H{"action_id": actionID.String()}, "Action saved successfully")
}

// DeleteAction godoc
// @Summary Delete an action from a stop
// @Tags Plans
// @Accept json
// @Produce json
// @Param request body request_models.DeleteActionRequest true "Plan ID, Stop ID and Action ID"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/delete-action [post]
func (p *PlanController) DeleteAction(c *gin.Context) {
	var req request_models.DeleteActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := p.planService.DeleteAction(c.Request.Context(), c.GetString("user_id"), req); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Action deleted successfully")
}

// FinalizePlan godoc
// @Summary Finalize a journey plan
// @Description Expand every eligible action into an independent service-request draft
// @Tags Plans
// @Accept json
// @Produce json
// @Param planId path string true "Plan ID"
// @Success 200 {object} response_models.FinalizeResult
// @Failure 422 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/{planId}/finalize [post]
func (p *PlanController) FinalizePlan(c *gin.Context) {
	planId := c.Param("planId")
	if planId == "" {
		utils.RespondError(c, http.StatusBadRequest, "Plan ID is required")
		return
	}

	result, err := p.finalizeService.FinalizePlan(c.Request.Context(), c.GetString("user_id"), planId)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, result, result.Message)
}

func parsePaging(c *gin.Context) (int, int, bool) {
	pageStr := c.DefaultQuery("page", "1")
	pageSizeStr := c.DefaultQuery("pageSize", "5")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		utils.RespondError(c, http.StatusBadRequest, "Invalid page number")
		return 0, 0, false
	}

	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize < 1 || pageSize > 100 {
		utils.RespondError(c, http.StatusBadRequest, "Invalid page size (must be 1-100)")
		return 0, 0, false
	}

	return page, pageSize, true
}
