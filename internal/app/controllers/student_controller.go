package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yigit/schoolsphere/internal/app/models/dto"
	"github.com/yigit/schoolsphere/internal/app/services"
	"github.com/yigit/schoolsphere/internal/middleware"
)

// StudentController handles student record reads and the tuition override
type StudentController struct {
	resolutionService *services.ResolutionService
	paymentService    *services.PaymentService
}

// NewStudentController creates a new StudentController
func NewStudentController(resolutionService *services.ResolutionService, paymentService *services.PaymentService) *StudentController {
	return &StudentController{
		resolutionService: resolutionService,
		paymentService:    paymentService,
	}
}

// GetStudent retrieves a student record
// @Summary Get student details
// @Description Retrieves a student record by its id
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student retrieved"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students/{id} [get]
func (c *StudentController) GetStudent(ctx *gin.Context) {
	student, err := c.resolutionService.GetStudent(ctx, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      student,
		Timestamp: time.Now(),
	})
}

// GetTuitionSummary reports the student's ledger state
// @Summary Get tuition summary
// @Description Reports the student's tuition amount, the amount paid and the outstanding balance
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.TuitionSummary} "Summary retrieved"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students/{id}/tuition [get]
func (c *StudentController) GetTuitionSummary(ctx *gin.Context) {
	summary, err := c.paymentService.GetTuitionSummary(ctx, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      summary,
		Timestamp: time.Now(),
	})
}

// ListPayments retrieves the student's payment history
// @Summary List payments
// @Description Retrieves the student's payment records, newest first
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Payment} "Payments retrieved"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students/{id}/payments [get]
func (c *StudentController) ListPayments(ctx *gin.Context) {
	payments, err := c.paymentService.ListPayments(ctx, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      payments,
		Timestamp: time.Now(),
	})
}

// OverrideTuition raises the student's tuition amount
// @Summary Override tuition
// @Description Raises the student's tuition amount; the outstanding balance is recomputed and the paid amount stays untouched
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param request body dto.TuitionOverrideRequest true "New tuition amount"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Tuition updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 422 {object} dto.ErrorResponse "Amount below what has already been paid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students/{id}/tuition [put]
func (c *StudentController) OverrideTuition(ctx *gin.Context) {
	var req dto.TuitionOverrideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid tuition data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	student, err := c.paymentService.IncreaseTuition(ctx, ctx.Param("id"), req.TuitionAmount)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      student,
		Timestamp: time.Now(),
	})
}
