package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yigit/schoolsphere/internal/app/models/dto"
	"github.com/yigit/schoolsphere/internal/app/services"
	"github.com/yigit/schoolsphere/internal/middleware"
)

// PaymentController handles payment intents and confirmation
type PaymentController struct {
	paymentService *services.PaymentService
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(paymentService *services.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
	}
}

// CreateIntent opens a payment toward a student's balance
// @Summary Create a payment intent
// @Description Opens a gateway payment intent for the given amount. Idempotent on (studentId, amount, nonce): a resubmission returns the original intent.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateIntentRequest true "Intent information"
// @Success 201 {object} dto.APIResponse{data=dto.CreateIntentResponse} "Intent created or replayed"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 402 {object} dto.ErrorResponse "Gateway rejected the intent"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 422 {object} dto.ErrorResponse "Amount exceeds the outstanding balance"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments/intents [post]
func (c *PaymentController) CreateIntent(ctx *gin.Context) {
	var req dto.CreateIntentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid intent data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	resp, err := c.paymentService.CreatePaymentIntent(ctx, req.StudentID, req.Amount, req.Nonce)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data:      resp,
		Timestamp: time.Now(),
	})
}

// ConfirmPayment settles a payment after checkout
// @Summary Confirm a payment
// @Description Verifies the outcome with the gateway and credits the tuition ledger. Safe to deliver more than once; a replay returns the recorded outcome.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ConfirmPaymentRequest true "Gateway reference"
// @Success 200 {object} dto.APIResponse{data=dto.ConfirmPaymentResponse} "Payment confirmed"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 402 {object} dto.ErrorResponse "Gateway rejected the payment"
// @Failure 404 {object} dto.ErrorResponse "Payment not found"
// @Failure 502 {object} dto.ErrorResponse "Ledger update pending manual reconciliation"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments/confirm [post]
func (c *PaymentController) ConfirmPayment(ctx *gin.Context) {
	var req dto.ConfirmPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid confirmation data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	resp, err := c.paymentService.ConfirmPayment(ctx, req.GatewayRef)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      resp,
		Timestamp: time.Now(),
	})
}
