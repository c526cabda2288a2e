package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/yigit/schoolsphere/internal/app/controllers"
	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	applicationController *controllers.ApplicationController,
	resolutionController *controllers.ResolutionController,
	studentController *controllers.StudentController,
	paymentController *controllers.PaymentController,
	authMiddleware *middleware.AuthMiddleware,
) {
	v1 := router.Group("/api/v1")

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
	}

	// Application intake is public: parents apply before holding an account.
	v1.POST("/applications", applicationController.SubmitApplication)

	// Code redemption works anonymously and links when a token is presented.
	v1.POST("/resolution/code", authMiddleware.OptionalJWTAuth(), resolutionController.ResolveByCode)

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		applications := authenticated.Group("/applications")
		{
			applications.GET("/:id", applicationController.GetApplication)

			applicationsAdmin := applications.Group("")
			applicationsAdmin.Use(authMiddleware.RoleRequired(models.RoleAdmin))
			{
				applicationsAdmin.GET("", applicationController.ListApplications)
				applicationsAdmin.POST("/:id/approve", applicationController.ApproveApplication)
				applicationsAdmin.POST("/:id/reject", applicationController.RejectApplication)
			}
		}

		resolution := authenticated.Group("/resolution")
		{
			resolution.POST("/email", authMiddleware.RoleRequired(models.RoleParent), resolutionController.ResolveByEmail)
			resolution.POST("/candidates", resolutionController.SearchByBiographic)
			resolution.POST("/link", resolutionController.LinkCandidate)
		}

		students := authenticated.Group("/students/:id")
		students.Use(authMiddleware.StudentAccess())
		{
			students.GET("", studentController.GetStudent)
			students.GET("/tuition", studentController.GetTuitionSummary)
			students.GET("/payments", studentController.ListPayments)
			students.PUT("/tuition", authMiddleware.RoleRequired(models.RoleAdmin), studentController.OverrideTuition)
		}

		payments := authenticated.Group("/payments")
		{
			payments.POST("/intents", paymentController.CreateIntent)
			payments.POST("/confirm", paymentController.ConfirmPayment)
		}
	}
}
