package handler

import (
	"net/http"
	"time"

	"erpcore/internal/middleware"
	"erpcore/internal/repository"
	"erpcore/internal/service"
	"erpcore/internal/workflow"
	"erpcore/pkg/pagination"
	"erpcore/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestHandler exposes the generic workflow surface shared by every
// request kind: listing, detail, and the status transitions.
type RequestHandler struct {
	workflowService service.WorkflowService
}

func NewRequestHandler(workflowService service.WorkflowService) *RequestHandler {
	return &RequestHandler{workflowService: workflowService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	{
		requests.GET("", middleware.RequirePermission("requests.read"), h.ListRequests)
		requests.GET("/:id", middleware.RequirePermission("requests.read"), h.GetRequest)
		requests.PUT("/:id/submit", middleware.RequirePermission("requests.write"), h.SubmitRequest)
		requests.PUT("/:id/approve", middleware.RequirePermission("requests.approve"), h.ApproveRequest)
		requests.PUT("/:id/reject", middleware.RequirePermission("requests.approve"), h.RejectRequest)
		requests.PUT("/:id/cancel", middleware.RequirePermission("requests.write"), h.CancelRequest)
		requests.PUT("/:id/receive", middleware.RequirePermission("warehouse.write"), h.ReceiveStock)
	}
}

// ListRequests returns requests visible to the caller
// @Summary      List requests
// @Description  Lists requests filtered by scope (mine/team/all), kind, status, and date range
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        scope   query     string  false  "mine, team, or all (default mine)"
// @Param        kind    query     string  false  "Request kind filter"
// @Param        status  query     string  false  "Status filter"
// @Param        from    query     string  false  "Created-at lower bound (YYYY-MM-DD)"
// @Param        to      query     string  false  "Created-at upper bound (YYYY-MM-DD)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      400     {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)

	filter := repository.RequestFilter{
		Kind:   workflow.Kind(c.Query("kind")),
		Status: workflow.Status(c.Query("status")),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid 'from' date, expected YYYY-MM-DD"))
			return
		}
		filter.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid 'to' date, expected YYYY-MM-DD"))
			return
		}
		filter.To = &t
	}

	callerID, err := uuid.Parse(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	scope := c.DefaultQuery("scope", "mine")
	role := c.GetString("userRole")
	switch scope {
	case "mine":
		filter.RequesterID = &callerID
	case "team":
		filter.ManagerID = &callerID
	case "all":
		if role != "admin" && role != "manager" {
			c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Scope 'all' requires an approving role"))
			return
		}
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid scope, expected mine, team, or all"))
		return
	}

	requests, total, err := h.workflowService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetRequest returns one request with its relations
// @Summary      Get request
// @Description  Retrieves a request by ID with requester, decision, vendor, and line details
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	result, err := h.workflowService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// transition builds a handler for one workflow action. The payload is
// optional for submit/approve/cancel, carries the reason for reject, and
// the line quantities for receive.
func (h *RequestHandler) transition(action workflow.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload service.TransitionPayload
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&payload); err != nil {
				c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
				return
			}
		}

		result, err := h.workflowService.Transition(c.Request.Context(), c.Param("id"), action, c.GetString("userID"), payload)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
	}
}

// SubmitRequest moves a draft purchase order into the approval queue
// @Summary      Submit request
// @Description  Moves a DRAFT purchase order to PENDING
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/submit [put]
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	h.transition(workflow.ActionSubmit)(c)
}

// ApproveRequest approves a pending request
// @Summary      Approve request
// @Description  Moves a pending request to APPROVED and applies its side effects atomically
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true   "Request ID"
// @Param        payload  body      service.TransitionPayload  false  "Optional decision notes"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/requests/{id}/approve [put]
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	h.transition(workflow.ActionApprove)(c)
}

// RejectRequest rejects a pending request with a mandatory reason
// @Summary      Reject request
// @Description  Moves a pending request to REJECTED; the payload must carry a non-empty reason
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Request ID"
// @Param        payload  body      service.TransitionPayload  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/requests/{id}/reject [put]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	h.transition(workflow.ActionReject)(c)
}

// CancelRequest cancels a request, releasing any reserved balance
// @Summary      Cancel request
// @Description  Cancels a request; approved leave releases its reserved days when cancelled before the start date
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/cancel [put]
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	h.transition(workflow.ActionCancel)(c)
}

// ReceiveStock applies a partial or full receipt against an approved purchase order
// @Summary      Receive purchase order stock
// @Description  Accumulates received quantities per line, stocks products in, and advances the order status
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Request ID"
// @Param        payload  body      service.TransitionPayload  true  "Line receipts"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/requests/{id}/receive [put]
func (h *RequestHandler) ReceiveStock(c *gin.Context) {
	h.transition(workflow.ActionReceive)(c)
}
