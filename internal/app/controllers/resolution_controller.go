package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/app/models/dto"
	"github.com/yigit/schoolsphere/internal/app/services"
	"github.com/yigit/schoolsphere/internal/middleware"
)

// ResolutionController handles account-to-student linking
type ResolutionController struct {
	resolutionService *services.ResolutionService
}

// NewResolutionController creates a new ResolutionController
func NewResolutionController(resolutionService *services.ResolutionService) *ResolutionController {
	return &ResolutionController{
		resolutionService: resolutionService,
	}
}

func sessionFromContext(ctx *gin.Context) services.Session {
	return services.Session{
		AccountID: ctx.GetString("accountID"),
		Email:     ctx.GetString("email"),
		Role:      models.RoleType(ctx.GetString("roleType")),
	}
}

// ResolveByEmail links student records by guardian email
// @Summary Resolve by guardian email
// @Description Links every unlinked student record whose guardian email matches the caller's account email
// @Tags resolution
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Student} "Linked student records"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /resolution/email [post]
func (c *ResolutionController) ResolveByEmail(ctx *gin.Context) {
	linked, err := c.resolutionService.ResolveByEmail(ctx, sessionFromContext(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      linked,
		Timestamp: time.Now(),
	})
}

// ResolveByCode redeems an access code
// @Summary Resolve by access code
// @Description Redeems an approval access code for the student id and a student-scoped token. Works with or without an authenticated account; with one, the record is also linked.
// @Tags resolution
// @Accept json
// @Produce json
// @Param request body dto.ResolveByCodeRequest true "Access code"
// @Success 200 {object} dto.APIResponse{data=dto.ResolveByCodeResponse} "Code resolved"
// @Failure 400 {object} dto.ErrorResponse "Malformed access code"
// @Failure 404 {object} dto.ErrorResponse "Access code not found"
// @Failure 409 {object} dto.ErrorResponse "Application not approved yet or record already linked"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /resolution/code [post]
func (c *ResolutionController) ResolveByCode(ctx *gin.Context) {
	var req dto.ResolveByCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid code data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	// Code redemption is reachable anonymously; a session is attached only
	// when the caller presented a valid account token.
	var session *services.Session
	if accountID := ctx.GetString("accountID"); accountID != "" {
		s := sessionFromContext(ctx)
		session = &s
	}

	resolved, err := c.resolutionService.ResolveByCode(ctx, req.Code, session)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      resolved,
		Timestamp: time.Now(),
	})
}

// SearchByBiographic searches unlinked candidate records
// @Summary Search candidates by biographic data
// @Description Returns unlinked student records matching the given name and optional date of birth. Never links; confirm a candidate via the link endpoint.
// @Tags resolution
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BiographicSearchRequest true "Search parameters"
// @Success 200 {object} dto.APIResponse{data=[]models.Student} "Candidate records"
// @Failure 400 {object} dto.ErrorResponse "Invalid search data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /resolution/candidates [post]
func (c *ResolutionController) SearchByBiographic(ctx *gin.Context) {
	var req dto.BiographicSearchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid search data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	candidates, err := c.resolutionService.SearchByBiographic(ctx, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      candidates,
		Timestamp: time.Now(),
	})
}

// LinkCandidate links the calling account to a chosen candidate
// @Summary Link a candidate record
// @Description Links the calling account to a student record chosen from a biographic search
// @Tags resolution
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.LinkCandidateRequest true "Chosen candidate"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Record linked"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 409 {object} dto.ErrorResponse "Record already linked to another account"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /resolution/link [post]
func (c *ResolutionController) LinkCandidate(ctx *gin.Context) {
	var req dto.LinkCandidateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid link data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	if err := c.resolutionService.LinkCandidate(ctx, sessionFromContext(ctx), req.StudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.SuccessResponse{Message: "Student record linked"},
		Timestamp: time.Now(),
	})
}
