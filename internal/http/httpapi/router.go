package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"enhancer/internal/http/handlers"
	"enhancer/internal/infra"
	"enhancer/internal/middleware"
)

// NewRouter assembles the HTTP surface: public auth routes, authenticated
// API routes, the websocket endpoint, and static file serving for stored
// images.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(splitOrigins(cfg.CORSOrigins)),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
	)

	r.Get("/healthz", app.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", app.Register)
		r.Post("/login", app.Login)
		r.With(middleware.AuthJWT(cfg.JWTSecret)).Get("/me", app.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))

		r.Route("/images", func(r chi.Router) {
			r.Post("/", app.ImagesUpload)
			r.Get("/", app.ImagesList)
			r.Get("/{image_id}", app.ImagesGet)
		})

		// The {id} parameter is the image id for create/list and the edit
		// id for the detail route.
		r.Route("/edits", func(r chi.Router) {
			r.Post("/{id}", app.EditsCreate)
			r.Get("/{id}", app.EditsGet)
			r.Get("/{id}/list", app.EditsList)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/status", app.SubscriptionsStatus)
			r.Post("/checkout/{plan}", app.SubscriptionsCheckout)
			r.Get("/usage", app.UsageSummary)
		})

		r.Get("/ws", app.Notifications)
	})

	// Billing collaborator callback; carries its own payload-level
	// identification rather than a user token.
	r.Post("/subscriptions/activate", app.SubscriptionsActivate)

	// Stored uploads and results.
	fileServer := http.FileServer(http.Dir(app.Files.BasePath()))
	r.Handle("/files/*", http.StripPrefix("/files/", fileServer))

	return r
}

func splitOrigins(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
