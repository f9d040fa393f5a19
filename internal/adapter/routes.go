package adapter

import (
	"github.com/go-chi/chi/v5"
)

// SetupUserRoutes wires all auth and user CRUD routes.
func SetupUserRoutes(r *chi.Mux, userHandler *UserHandler) {
	// Auth routes
	r.Post("/signup", userHandler.Signup)
	r.Post("/login", userHandler.Login)
	r.Post("/logout", userHandler.Logout)
	r.Post("/delete", userHandler.DeleteAccount)
	r.Post("/forgot-password", userHandler.ForgotPassword)
	r.Post("/reset-password", userHandler.ResetPassword)

	// User CRUD routes
	r.Get("/users", userHandler.ListUsers)
	r.Get("/users/{userId}", userHandler.GetUser)
	r.Put("/users/{userId}", userHandler.UpdateUser)
	r.Delete("/users/{userId}", userHandler.DeleteUser)
}
