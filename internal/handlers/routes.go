package handlers

import (
	"net/http"

	"github.com/Ritika1223/jensieBackend/internal/auth"
	"github.com/Ritika1223/jensieBackend/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the API on r. authenticate resolves the caller's principal;
// bookingLimiter throttles appointment creation when non-nil.
func (s *Server) Routes(r chi.Router, authenticate func(http.Handler) http.Handler, bookingLimiter *middleware.RateLimiter) {
	r.Get("/health/live", s.Live)
	r.Get("/health/ready", s.Ready)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(authenticate)

		api.Get("/doctors/{doctorId}/slots", s.GetDoctorSlots)
		api.Get("/doctors/{doctorId}/slot-labels", s.GetSlotLabels)
		api.Get("/doctors/{doctorId}/templates", s.GetDoctorTemplates)

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireAuth)

			book := protected.With()
			if bookingLimiter != nil {
				book = protected.With(bookingLimiter.Middleware)
			}
			book.Post("/appointments", s.BookAppointment)
			protected.Get("/appointments", s.ListMyAppointments)
			protected.Get("/appointments/{id}", s.GetAppointment)
			protected.Patch("/appointments/{id}/cancel", s.CancelAppointment)

			protected.Get("/doctors/{doctorId}/appointments", s.ListDoctorAppointments)
			protected.Post("/doctors/{doctorId}/slots/generate", s.GenerateDoctorSlots)
			protected.Post("/doctors/{doctorId}/unavailability", s.MarkDoctorUnavailable)
			protected.Get("/doctors/{doctorId}/unavailability", s.GetDoctorUnavailability)
			protected.Put("/doctors/{doctorId}/templates/{dayOfWeek}", s.SaveDoctorTemplate)

			protected.Group(func(doctor chi.Router) {
				doctor.Use(middleware.RequireRole(auth.RoleDoctor))
				doctor.Post("/doctor/schedule", s.SaveDoctorSchedule)
				doctor.Get("/doctor/schedule", s.GetDoctorSchedule)
			})
		})
	})
}
