package api

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// ServerConfig holds the HTTP-level settings of NewApp.
type ServerConfig struct {
	BodyLimitMB int
	// StaticDir, when set, is served as a single-page frontend.
	StaticDir string
}

// NewApp builds the fiber application with middleware and routes.
func NewApp(cfg ServerConfig, h *Handler, logger *zap.Logger) *fiber.App {
	bodyLimit := cfg.BodyLimitMB << 20
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:               "statement-recon " + Version,
		BodyLimit:             bodyLimit,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(RequestID())
	app.Use(RequestLogger(logger))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Content-Type," + HeaderRequestID,
		ExposeHeaders: HeaderRequestID,
	}))

	h.RegisterRoutes(app)

	if cfg.StaticDir != "" {
		serveSPA(app, cfg.StaticDir)
	}
	return app
}

// serveSPA serves files from dir and falls back to index.html for
// client-side routes.
func serveSPA(app *fiber.App, dir string) {
	app.Static("/", dir)
	app.Get("/*", func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return fiber.ErrNotFound
		}
		path := filepath.Join(dir, filepath.Clean("/"+c.Params("*")))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return c.SendFile(path)
		}
		return c.SendFile(filepath.Join(dir, "index.html"))
	})
}
