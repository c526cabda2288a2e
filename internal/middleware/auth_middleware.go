package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/app/models/dto"
	"github.com/yigit/schoolsphere/internal/pkg/auth"
)

// StudentGetter is the minimal student read surface the middleware needs to
// decide whether an account may access a student record.
type StudentGetter interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
}

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
	students   StudentGetter
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService, students StudentGetter) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		students:   students,
	}
}

// JWTAuth validates the bearer token and stores the caller identity on the
// request context. Student-scoped tokens carry a studentId claim instead of
// (or in addition to) an account identity.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			errorDetail = errorDetail.WithDetails("Authorization header missing or malformed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}

		c.Set("accountID", claims.AccountID)
		c.Set("email", claims.Email)
		c.Set("roleType", claims.RoleType)
		c.Set("scopedStudentID", claims.StudentID)

		c.Next()
	}
}

// OptionalJWTAuth stores the caller identity when a valid bearer token is
// present and lets anonymous requests through. An invalid token is still
// rejected so a caller never silently loses their identity.
func (m *AuthMiddleware) OptionalJWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}

		c.Set("accountID", claims.AccountID)
		c.Set("email", claims.Email)
		c.Set("roleType", claims.RoleType)
		c.Set("scopedStudentID", claims.StudentID)

		c.Next()
	}
}

// RoleRequired restricts a route to the given roles
func (m *AuthMiddleware) RoleRequired(roles ...models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.RoleType(c.GetString("roleType"))
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Permission denied")
		errorDetail = errorDetail.WithDetails("This operation requires a different role")
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
	}
}

// StudentAccess authorizes access to the student record named by the id
// route parameter. Admins pass; a student-scoped token passes for exactly its
// own student; an account passes when the record is linked to it.
func (m *AuthMiddleware) StudentAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		studentID := c.Param("id")

		if models.RoleType(c.GetString("roleType")) == models.RoleAdmin {
			c.Next()
			return
		}
		if scoped := c.GetString("scopedStudentID"); scoped != "" && scoped == studentID {
			c.Next()
			return
		}

		accountID := c.GetString("accountID")
		if accountID != "" {
			student, err := m.students.GetByID(c.Request.Context(), studentID)
			if err == nil && student.UserID != nil && *student.UserID == accountID {
				c.Next()
				return
			}
		}

		errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Permission denied")
		errorDetail = errorDetail.WithDetails("This student record is not accessible with your credentials")
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
	}
}
