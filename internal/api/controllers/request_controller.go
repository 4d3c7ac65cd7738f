package controllers

import (
	"github.com/gin-gonic/gin"
	"wayfare/internal/services"
	"wayfare/pkg/utils"
)

type RequestController struct {
	requestService services.RequestServiceInterface
}

func NewRequestController(requestService services.RequestServiceInterface) *RequestController {
	return &RequestController{
		requestService: requestService,
	}
}

// GetRequestsByUserId godoc
// @Summary List the authenticated requester's service requests
// @Tags Requests
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(5) minimum(1) maximum(100)
// @Success 200 {array} response_models.ServiceRequestResponse
// @Security BearerAuth
// @Router /requests [get]
func (r *RequestController) GetRequestsByUserId(c *gin.Context) {
	page, pageSize, ok := parsePaging(c)
	if !ok {
		return
	}

	requests, err := r.requestService.ListRequestsByRequester(c.Request.Context(), c.GetString("user_id"), page, pageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, requests, "Requests fetched successfully")
}

// GetOpenRequests godoc
// @Summary List open service requests for providers
// @Tags Requests
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(5) minimum(1) maximum(100)
// @Success 200 {array} response_models.ServiceRequestResponse
// @Security BearerAuth
// @Router /requests/open [get]
func (r *RequestController) GetOpenRequests(c *gin.Context) {
	page, pageSize, ok := parsePaging(c)
	if !ok {
		return
	}

	requests, err := r.requestService.ListOpenRequests(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, requests, "Requests fetched successfully")
}
