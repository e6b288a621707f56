package routes

import (
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/fuelpoint/fuelpoint-server/internal/app"
	mymw "github.com/fuelpoint/fuelpoint-server/internal/middleware"
)

func SetupRoutes(app *app.Application) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(mymw.AddSecurityHeaders)
	r.Use(mymw.Logging(app.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{app.Config.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global Rate Limiter: 100 requests per minute per IP
	r.Use(httprate.Limit(
		100,
		1*time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(app.Auth.Authenticate)

		r.Route("/shifts", func(r chi.Router) {
			r.Post("/", app.ShiftHandler.HandleStartShift)
			r.Get("/active", app.ShiftHandler.HandleListActiveShifts)
			r.Get("/completed", app.ShiftHandler.HandleListCompletedShifts)
			r.Get("/{id}", app.ShiftHandler.HandleGetShift)
			r.Post("/{id}/consumables", app.ShiftHandler.HandleAllocateConsumables)
			r.Get("/{id}/end", app.EndShiftHandler.HandleGetEndShiftSummary)
			r.Post("/{id}/end", app.EndShiftHandler.HandleSubmitEndShift)
			r.Get("/{id}/reconciliation", app.EndShiftHandler.HandleReconciliationPreview)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Get("/", app.ShiftHandler.HandleListStaff)
			r.Get("/selectable", app.ShiftHandler.HandleSelectableStaff)
		})

		r.Get("/fuel_settings", app.FuelSettingHandler.HandleListFuelSettings)

		// Admin Only API
		r.Group(func(r chi.Router) {
			r.Use(app.Auth.RequireAdmin)

			r.Delete("/shifts/{id}", app.ShiftHandler.HandleDeleteShift)
			r.Put("/fuel_settings/{fuel_type}/price", app.FuelSettingHandler.HandleUpdateFuelPrice)
		})
	})

	r.Get("/health", app.HealthCheck)

	return r
}
