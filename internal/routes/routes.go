package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/handlers"
	"github.com/homekrypto/hkt-api/internal/middleware"
)

// RegisterRoutes registers all application routes under /api.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	agentHandler *handlers.AgentHandler,
	adminHandler *handlers.AdminHandler,
	propertyHandler *handlers.PropertyHandler,
	tokenHandler *handlers.TokenHandler,
	contactHandler *handlers.ContactHandler,
	authenticator *auth.Authenticator,
	loginRatePerMinute int,
) {
	authRateLimit := middleware.RateLimitConfig{RequestsPerMinute: loginRatePerMinute}

	router.Route("/api", func(r chi.Router) {
		// Public auth endpoints; credential-bearing ones are IP throttled.
		r.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/register", authHandler.Register)
		r.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/login", authHandler.Login)
		r.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/reset-password", authHandler.ResetPassword)
		r.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/resend-verification", authHandler.ResendVerification)
		r.Get("/auth/verify-email", authHandler.VerifyEmail)
		r.Post("/auth/logout", authHandler.Logout)

		// Public agent directory
		r.Get("/agents", agentHandler.List)
		r.Get("/agents/countries", agentHandler.Countries)
		r.Get("/agents/search", agentHandler.Search)
		r.Get("/agents/{id}/qr", agentHandler.ReferralQR)
		r.Post("/agents/apply", agentHandler.Apply)
		r.Get("/agent-page/{country}/{slug}", agentHandler.Page)

		// Public property catalog
		r.Get("/properties", propertyHandler.List)
		r.Get("/properties/{id}", propertyHandler.Get)

		// Public HKT market data
		r.Get("/hkt/price", tokenHandler.Price)
		r.Post("/hkt/quote", tokenHandler.Quote)

		// Newsletter and contact form; throttled since they send email.
		r.With(middleware.RateLimitByIP(authRateLimit)).Post("/subscribe", contactHandler.Subscribe)
		r.With(middleware.RateLimitByIP(authRateLimit)).Post("/contact", contactHandler.Contact)

		// Session required
		r.Group(func(r chi.Router) {
			r.Use(authenticator.Middleware)

			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/profile", authHandler.UpdateProfile)
			r.Post("/auth/change-password", authHandler.ChangePassword)
			r.Post("/auth/logout-all", authHandler.LogoutAll)

			r.Post("/hkt/purchase", tokenHandler.Purchase)
			r.Get("/hkt/balance", tokenHandler.Balance)
			r.Get("/hkt/transactions", tokenHandler.Transactions)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(authenticator.RequireAdmin)

				r.Get("/admin/agents", adminHandler.ListAgents)
				r.Get("/admin/agents/stats", adminHandler.AgentStats)
				r.Patch("/admin/agents/{id}/approve", adminHandler.ApproveAgent)
				r.Patch("/admin/agents/{id}/deny", adminHandler.DenyAgent)
				r.Patch("/admin/agents/{id}/deactivate", adminHandler.DeactivateAgent)
				r.Delete("/admin/agents/{id}", adminHandler.DeleteAgent)

				r.Get("/admin/users", adminHandler.ListUsers)
				r.Delete("/admin/users/{id}", adminHandler.DeleteUser)

				r.Get("/admin/properties", propertyHandler.AdminList)
				r.Post("/admin/properties", propertyHandler.Create)
				r.Put("/admin/properties/{id}", propertyHandler.Update)
				r.Delete("/admin/properties/{id}", propertyHandler.Delete)
			})
		})
	})
}
