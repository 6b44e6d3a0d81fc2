package api

import (
	"net/http"

	"gymvida/gym-manager/internal/domain"
	"gymvida/gym-manager/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	clientService service.ClientService,
	planService service.PlanService,
	contractService service.ContractService,
	paymentService service.PaymentService,
	progressService service.ProgressService,
) {
	authHandler := NewAuthHandler(authService)
	clientHandler := NewClientHandler(clientService, progressService)
	planHandler := NewPlanHandler(planService)
	contractHandler := NewContractHandler(contractService)
	paymentHandler := NewPaymentHandler(paymentService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := c.Get(ContextUserRoleKey)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		adminOnly := RoleMiddleware(domain.RoleAdmin)

		// --- Client (gym member) Routes ---
		clientGroup := protected.Group("/clients")
		{
			clientGroup.POST("", clientHandler.RegisterClient)
			clientGroup.GET("/:clientId", clientHandler.GetClient)
			clientGroup.PUT("/:clientId", clientHandler.UpdateClient)
			clientGroup.DELETE("/:clientId", adminOnly, clientHandler.DeleteClient)

			// Progress tracking
			clientGroup.POST("/:clientId/progress", clientHandler.LogProgress)
			clientGroup.GET("/:clientId/progress", clientHandler.ListProgress)
			clientGroup.POST("/:clientId/progress/photo-upload", clientHandler.RequestPhotoUpload)

			// Contract views per client
			clientGroup.GET("/:clientId/contracts", contractHandler.ListContractsByClient)
			clientGroup.GET("/:clientId/contracts/active", contractHandler.ListActiveContractsByClient)
		}

		protected.GET("/progress/photo-download", clientHandler.GetPhotoDownloadURL)

		// --- Plan Routes ---
		planGroup := protected.Group("/plans")
		{
			planGroup.POST("", adminOnly, planHandler.CreatePlan)
			planGroup.GET("/active", planHandler.ListActivePlans)
			planGroup.GET("/level/:level", planHandler.ListPlansByLevel)
			planGroup.GET("/duration", planHandler.ListPlansByDuration)
			planGroup.GET("/popular", planHandler.ListMostPopularPlans)
			planGroup.GET("/stats", planHandler.GetPlanStats)
			planGroup.GET("/:planId", planHandler.GetPlan)
			planGroup.PUT("/:planId", adminOnly, planHandler.UpdatePlan)
			planGroup.DELETE("/:planId", adminOnly, planHandler.DeletePlan)

			// Lifecycle: leaving the active state cascades over contracts.
			planGroup.PATCH("/:planId/state", adminOnly, planHandler.ChangePlanState)

			planGroup.POST("/:planId/clients/:clientId", planHandler.AssociateClient)
			planGroup.DELETE("/:planId/clients/:clientId", planHandler.DisassociateClient)
		}

		// --- Contract Routes ---
		contractGroup := protected.Group("/contracts")
		{
			contractGroup.POST("", contractHandler.CreateContract)
			contractGroup.GET("/range", contractHandler.ListContractsByDateRange)
			contractGroup.GET("/expiring", contractHandler.ListContractsNearExpiration)
			contractGroup.GET("/expired", contractHandler.ListExpiredContracts)
			contractGroup.GET("/stats", contractHandler.GetContractStats)
			contractGroup.GET("/:contractId", contractHandler.GetContract)
			contractGroup.POST("/:contractId/cancel", contractHandler.CancelContract)
			contractGroup.POST("/:contractId/extend", contractHandler.ExtendContract)
			contractGroup.POST("/:contractId/finalize", contractHandler.FinalizeContract)
			contractGroup.DELETE("/:contractId", adminOnly, contractHandler.DeleteContract)
		}

		// --- Payment Routes ---
		paymentGroup := protected.Group("/payments")
		{
			paymentGroup.POST("", paymentHandler.CreatePayment)
			paymentGroup.GET("/balance", paymentHandler.GetBalanceByRange)
			paymentGroup.GET("/balance/monthly", paymentHandler.GetMonthlyBalance)
			paymentGroup.GET("/balance/total", paymentHandler.GetTotalBalance)
			paymentGroup.GET("/largest", paymentHandler.ListLargestPayments)
			paymentGroup.GET("/stats", paymentHandler.GetPaymentStats)
			paymentGroup.GET("/:paymentId", paymentHandler.GetPayment)
			paymentGroup.PUT("/:paymentId", paymentHandler.UpdatePayment)
			paymentGroup.DELETE("/:paymentId", adminOnly, paymentHandler.DeletePayment)
			paymentGroup.POST("/:paymentId/pay", paymentHandler.MarkPaymentPaid)
			paymentGroup.POST("/:paymentId/late", paymentHandler.MarkPaymentLate)
			paymentGroup.POST("/:paymentId/cancel", paymentHandler.MarkPaymentCancelled)
		}
	}
}
