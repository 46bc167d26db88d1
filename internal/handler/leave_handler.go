package handler

import (
	"net/http"
	"strconv"

	"erpcore/internal/middleware"
	"erpcore/internal/service"
	"erpcore/pkg/response"

	"github.com/gin-gonic/gin"
)

type LeaveHandler struct {
	leaveService service.LeaveService
}

func NewLeaveHandler(leaveService service.LeaveService) *LeaveHandler {
	return &LeaveHandler{leaveService: leaveService}
}

func (h *LeaveHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.POST("/leaves", middleware.RequirePermission("requests.write"), h.SubmitLeave)
		api.PUT("/leaves/:id", middleware.RequirePermission("requests.write"), h.AmendLeave)
		api.GET("/balances", middleware.RequirePermission("requests.read"), h.GetMyBalances)
		api.GET("/balances/:employee_id", middleware.RequirePermission("balances.manage"), h.GetEmployeeBalances)
		api.POST("/balances/seed", middleware.RequirePermission("balances.manage"), h.SeedEntitlement)
	}
}

// SubmitLeave creates a pending leave request
// @Summary      Submit leave request
// @Description  Creates a leave request after date, notice, and overlap checks; balance is reserved at approval
// @Tags         leaves
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SubmitLeaveRequest  true  "Leave Request Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/leaves [post]
func (h *LeaveHandler) SubmitLeave(c *gin.Context) {
	var req service.SubmitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.leaveService.Submit(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// AmendLeave updates a pending leave request
// @Summary      Amend leave request
// @Description  Updates dates and description while the request is still pending; rules are re-run in full
// @Tags         leaves
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Request ID"
// @Param        payload  body      service.AmendLeaveRequest  true  "Amendment Payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/leaves/{id} [put]
func (h *LeaveHandler) AmendLeave(c *gin.Context) {
	var req service.AmendLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.leaveService.Amend(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetMyBalances returns the caller's leave balances
// @Summary      Get my balances
// @Description  Returns the caller's balance ledger rows, optionally filtered by year; with resource_type set, returns that single balance (zero when no row exists)
// @Tags         leaves
// @Security     BearerAuth
// @Produce      json
// @Param        period         query     int     false  "Year filter (default all; default current year with resource_type)"
// @Param        resource_type  query     string  false  "Single resource type (e.g. ANNUAL_LEAVE)"
// @Success      200            {object}  response.Response{data=[]service.BalanceResponse}
// @Router       /api/balances [get]
func (h *LeaveHandler) GetMyBalances(c *gin.Context) {
	period, _ := strconv.Atoi(c.Query("period"))

	if resourceType := c.Query("resource_type"); resourceType != "" {
		balance, err := h.leaveService.Balance(c.Request.Context(), c.GetString("userID"), resourceType, period)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
		return
	}

	balances, err := h.leaveService.Balances(c.Request.Context(), c.GetString("userID"), period)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, balances))
}

// GetEmployeeBalances returns another employee's balances
// @Summary      Get employee balances
// @Description  Returns the balance ledger rows of the given employee
// @Tags         leaves
// @Security     BearerAuth
// @Produce      json
// @Param        employee_id    path      string  true   "Employee ID"
// @Param        period         query     int     false  "Year filter (default all; default current year with resource_type)"
// @Param        resource_type  query     string  false  "Single resource type (e.g. ANNUAL_LEAVE)"
// @Success      200            {object}  response.Response{data=[]service.BalanceResponse}
// @Router       /api/balances/{employee_id} [get]
func (h *LeaveHandler) GetEmployeeBalances(c *gin.Context) {
	period, _ := strconv.Atoi(c.Query("period"))

	if resourceType := c.Query("resource_type"); resourceType != "" {
		balance, err := h.leaveService.Balance(c.Request.Context(), c.Param("employee_id"), resourceType, period)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
		return
	}

	balances, err := h.leaveService.Balances(c.Request.Context(), c.Param("employee_id"), period)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, balances))
}

// SeedEntitlement grants yearly leave allowance to an employee
// @Summary      Seed entitlement
// @Description  Creates or tops up an employee's yearly balance ledger row
// @Tags         leaves
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SeedEntitlementRequest  true  "Entitlement Payload"
// @Success      200      {object}  response.Response{data=service.BalanceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/balances/seed [post]
func (h *LeaveHandler) SeedEntitlement(c *gin.Context) {
	var req service.SeedEntitlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.leaveService.SeedEntitlement(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
