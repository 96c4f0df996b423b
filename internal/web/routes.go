package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kozaktomas/rollcall/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	studentsHandler := handlers.NewStudentsHandler(s.service, s.logger)
	attendanceHandler := handlers.NewAttendanceHandler(s.service, s.logger)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Roster
		r.Post("/students", studentsHandler.Enroll)
		r.Get("/students", studentsHandler.List)

		// Ledger
		r.Post("/attendance", attendanceHandler.Mark)
		r.Get("/attendance", attendanceHandler.History)
		r.Delete("/attendance", attendanceHandler.Clear)
	})

	if s.gatherer != nil {
		s.router.Method("GET", "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
			ErrorLog:      zap.NewStdLog(s.logger.Named("metrics")),
			ErrorHandling: promhttp.HTTPErrorOnError,
		}))
	}
}
