package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/schoolsphere/internal/app/models/dto"
	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
)

// HandleAPIError maps service errors onto the API error envelope. Controllers
// delegate every non-binding error here so status codes and error codes stay
// consistent across the surface.
func HandleAPIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrApplicationNotFound):
		respond(c, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Application not found", err)
	case errors.Is(err, apperrors.ErrStudentNotFound):
		respond(c, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Student not found", err)
	case errors.Is(err, apperrors.ErrPaymentNotFound):
		respond(c, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Payment not found", err)
	case errors.Is(err, apperrors.ErrCodeNotFound):
		respond(c, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Access code not found", err)
	case errors.Is(err, apperrors.ErrUserNotFound), errors.Is(err, apperrors.ErrResourceNotFound):
		respond(c, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found", err)

	case errors.Is(err, apperrors.ErrAlreadyDecided):
		respond(c, http.StatusConflict, dto.ErrorCodeAlreadyDecided, "Application has already been decided", err)
	case errors.Is(err, apperrors.ErrNotApprovedYet):
		respond(c, http.StatusConflict, dto.ErrorCodeNotApprovedYet, "Application is not approved yet", err)
	case errors.Is(err, apperrors.ErrAlreadyLinked):
		respond(c, http.StatusConflict, dto.ErrorCodeAlreadyLinked, "Student record is already linked to another account", err)
	case errors.Is(err, apperrors.ErrEmailAlreadyExists):
		respond(c, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists", err)
	case errors.Is(err, apperrors.ErrConflict):
		respond(c, http.StatusConflict, dto.ErrorCodeConflict, "Conflict", err)

	case errors.Is(err, apperrors.ErrExceedsBalance):
		respond(c, http.StatusUnprocessableEntity, dto.ErrorCodeExceedsBalance, "Amount exceeds the outstanding balance", err)
	case errors.Is(err, apperrors.ErrTuitionBelowPaid):
		respond(c, http.StatusUnprocessableEntity, dto.ErrorCodeValidationFailed, "Tuition amount cannot be set below the amount already paid", err)
	case errors.Is(err, apperrors.ErrGatewayRejected):
		respond(c, http.StatusPaymentRequired, dto.ErrorCodeGatewayRejected, "Payment gateway rejected the request", err)
	case errors.Is(err, apperrors.ErrSyncFailed):
		respond(c, http.StatusBadGateway, dto.ErrorCodeSyncFailed, "Payment is confirmed but the ledger update is pending manual reconciliation", err)

	case errors.Is(err, apperrors.ErrInvalidCredentials):
		respond(c, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials", err)
	case errors.Is(err, apperrors.ErrAccountDisabled):
		respond(c, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Account is disabled", err)
	case errors.Is(err, apperrors.ErrTokenExpired):
		respond(c, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired", err)
	case errors.Is(err, apperrors.ErrTokenInvalid), errors.Is(err, apperrors.ErrInvalidFormat):
		respond(c, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token", err)
	case errors.Is(err, apperrors.ErrPermissionDenied):
		respond(c, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied", err)

	case errors.Is(err, apperrors.ErrInvalidAccessCode),
		errors.Is(err, apperrors.ErrInvalidAmount),
		errors.Is(err, apperrors.ErrValidationFailed),
		errors.Is(err, apperrors.ErrBadRequest):
		respond(c, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid request", err)

	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")))
	}
}

// respond writes the error envelope, surfacing the wrapped message as detail
// when the service attached one.
func respond(c *gin.Context, status int, code dto.ErrorCode, message string, err error) {
	errorDetail := dto.NewErrorDetail(code, message)

	var custom *apperrors.CustomError
	if errors.As(err, &custom) && custom.Message != "" {
		errorDetail = errorDetail.WithDetails(custom.Message)
	}

	c.JSON(status, dto.NewErrorResponse(errorDetail))
}
