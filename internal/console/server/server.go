package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/console/handler"
	"github.com/xela07ax/kpi-dashboard/internal/engine"
	"github.com/xela07ax/kpi-dashboard/internal/infra/auth"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Проверка токенов (RS256). nil - запись открыта без аутентификации
	authValidator auth.TokenValidator

	// Обработчики
	dashHandler   *handler.DashboardHandler // /api/v1/dashboard, /api/v1/sectors
	recordHandler *handler.RecordHandler    // /api/v1/records, /api/v1/form
	auditHandler  *handler.AuditHandler     // /api/v1/submissions
}

// NewConsoleServer инициализирует HTTP API дашборда со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	validator auth.TokenValidator,
	dashH *handler.DashboardHandler,
	recordH *handler.RecordHandler,
	auditH *handler.AuditHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("console-api"),
		authValidator: validator,
		dashHandler:   dashH,
		recordHandler: recordH,
		auditHandler:  auditH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(engine.TracingMiddleware)
	r.Use(engine.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (чтение) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", s.dashHandler.GetState)
			r.Get("/view", s.dashHandler.GetView)
			r.Post("/reload", s.dashHandler.Reload)
		})
		r.Get("/sectors/{sectorID}/indicators/{indicatorID}", s.dashHandler.GetIndicator)
		r.Get("/form/sectors", s.recordHandler.FormSectors)

		r.Route("/submissions", func(r chi.Router) {
			r.Get("/", s.auditHandler.GetLogs)
			r.Get("/stats", s.auditHandler.GetStats)
		})

		// --- 3. ЗАПИСЬ (RS256 токен, если ключ настроен) ---
		r.Group(func(r chi.Router) {
			if s.authValidator != nil {
				r.Use(auth.NewMiddleware(s.authValidator, auth.ScopeRecordsWrite, s.logger))
			}
			r.Post("/records", s.recordHandler.Submit)
		})
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
