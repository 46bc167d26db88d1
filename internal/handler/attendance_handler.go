package handler

import (
	"net/http"
	"strconv"

	"erpcore/internal/middleware"
	"erpcore/internal/service"
	"erpcore/pkg/response"

	"github.com/gin-gonic/gin"
)

type AttendanceHandler struct {
	attendanceService service.AttendanceService
}

func NewAttendanceHandler(attendanceService service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceService: attendanceService}
}

func (h *AttendanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.POST("/attendance", middleware.RequirePermission("requests.write"), h.RecordAttendance)
		api.GET("/attendance", middleware.RequirePermission("requests.read"), h.ListAttendance)
		api.POST("/comp-offs", middleware.RequirePermission("requests.write"), h.SubmitCompOff)
		api.POST("/regularizations", middleware.RequirePermission("requests.write"), h.SubmitRegularization)
		api.GET("/holidays", middleware.RequirePermission("requests.read"), h.ListHolidays)
		api.POST("/holidays", middleware.RequirePermission("holidays.manage"), h.CreateHoliday)
	}
}

// RecordAttendance upserts the caller's attendance entry for a day
// @Summary      Record attendance
// @Description  Records or overwrites the caller's clock times for a work date
// @Tags         attendance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordAttendanceRequest  true  "Attendance Payload"
// @Success      200      {object}  response.Response{data=service.AttendanceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/attendance [post]
func (h *AttendanceHandler) RecordAttendance(c *gin.Context) {
	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.attendanceService.Record(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListAttendance returns the caller's attendance entries
// @Summary      List attendance
// @Description  Lists the caller's attendance entries in a date range (defaults to the last month)
// @Tags         attendance
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  false  "Range start (YYYY-MM-DD)"
// @Param        to    query     string  false  "Range end (YYYY-MM-DD)"
// @Success      200   {object}  response.Response{data=[]service.AttendanceResponse}
// @Router       /api/attendance [get]
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	result, err := h.attendanceService.ListMine(c.Request.Context(), c.GetString("userID"), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// SubmitCompOff claims a compensatory day off
// @Summary      Submit comp-off claim
// @Description  Claims a compensatory day for attested work on a weekend or holiday; the day is credited at approval
// @Tags         attendance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SubmitCompOffRequest  true  "Comp-off Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/comp-offs [post]
func (h *AttendanceHandler) SubmitCompOff(c *gin.Context) {
	var req service.SubmitCompOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.attendanceService.SubmitCompOff(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// SubmitRegularization asks to correct the clock times of a past day
// @Summary      Submit regularization request
// @Description  Requests an attendance correction; the new clock times are applied when a manager approves
// @Tags         attendance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SubmitRegularizationRequest  true  "Regularization Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/regularizations [post]
func (h *AttendanceHandler) SubmitRegularization(c *gin.Context) {
	var req service.SubmitRegularizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.attendanceService.SubmitRegularization(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListHolidays returns the holiday calendar
// @Summary      List holidays
// @Description  Lists company holidays, optionally for a single year
// @Tags         attendance
// @Security     BearerAuth
// @Produce      json
// @Param        year  query     int  false  "Year filter"
// @Success      200   {object}  response.Response{data=[]service.HolidayResponse}
// @Router       /api/holidays [get]
func (h *AttendanceHandler) ListHolidays(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))

	result, err := h.attendanceService.ListHolidays(c.Request.Context(), year)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// CreateHoliday adds a holiday to the calendar
// @Summary      Create holiday
// @Description  Adds a date to the company holiday calendar
// @Tags         attendance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateHolidayRequest  true  "Holiday Payload"
// @Success      201      {object}  response.Response{data=service.HolidayResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/holidays [post]
func (h *AttendanceHandler) CreateHoliday(c *gin.Context) {
	var req service.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.attendanceService.CreateHoliday(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}
