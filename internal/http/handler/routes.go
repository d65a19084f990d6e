package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"claimflow/docs"
	"claimflow/internal/service"
)

// Services groups what the routes depend on. A nil Metrics disables /metrics.
type Services struct {
	DB        Pinger
	Documents service.DocumentService
	Claims    service.ClaimService
	Metrics   prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, s Services) {
	app.Get("/health", HealthCheck(s.DB))
	app.Get("/healthz", LivenessProbe())

	if s.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.Metrics, promhttp.HandlerOpts{})))
	}

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	app.Get("/documents", ListDocuments(s.Documents))
	app.Post("/documents", UploadDocument(s.Documents))
	app.Get("/documents/:id", GetDocument(s.Documents))
	app.Delete("/documents/:id", DeleteDocument(s.Documents))
	app.Get("/documents/:id/status", GetDocumentStatus(s.Documents))
	app.Get("/documents/:id/download", DownloadDocument(s.Documents))
	app.Post("/documents/:id/approve", ApproveDocument(s.Documents))
	app.Post("/documents/:id/reject", RejectDocument(s.Documents))
	app.Get("/documents/:id/notifications", ListNotifications(s.Documents))
	app.Get("/documents/:id/analyses", ListAnalyses(s.Claims))

	app.Post("/analysis", AnalyzeClaim(s.Claims))

	app.Get("/rules", ListRules(s.Claims))
	app.Post("/rules", CreateRule(s.Claims))
}
