package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"presencia-backend/internal/handlers"
	"presencia-backend/internal/middleware"
	"presencia-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	sessionHandler *handlers.SessionHandler,
	attendanceHandler *handlers.AttendanceHandler,
	courseHandler *handlers.CourseHandler,
	directoryHandler *handlers.DirectoryHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/login", authHandler.Login)
			r.Post("/register/student", authHandler.RegisterStudent)
			r.Post("/register/teacher", authHandler.RegisterTeacher)
			r.Get("/check-matricule", authHandler.CheckMatricule)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Course Routes ────
		r.Route("/courses", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", courseHandler.List)
			r.Get("/teacher", courseHandler.ListByTeacher)
		})

		// ──── Attendance Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			// Scan entry points are public: the session token is the capability
			r.Get("/validate", sessionHandler.Validate)
			r.Get("/{sessionID}/qr", sessionHandler.QR)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/", sessionHandler.Create)
				r.Get("/", sessionHandler.List)
			})
		})

		// ──── Attendance Routes ────
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/record", attendanceHandler.Record) // Public (scan flow)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/session", attendanceHandler.BySession)
				r.Get("/student", attendanceHandler.ByStudent)
				r.Get("/teacher/date", attendanceHandler.ByTeacherDate)
				r.Get("/teacher/course", attendanceHandler.ByTeacherCourse)
			})
		})

		// ──── Registry Proxy Routes ────
		r.Route("/directory", func(r chi.Router) {
			r.Get("/student", directoryHandler.Student)
			r.Get("/structure", directoryHandler.Structure)
		})

		// ──── WebSocket (live scan feed) ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
