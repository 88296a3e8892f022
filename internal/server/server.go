// Package server builds the fiber application shared by the binary and the
// end-to-end tests.
package server

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/handler"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/middleware"
	ws "github.com/amirhamza8927/aiseo-ai-backend/internal/websocket"
	"github.com/amirhamza8927/aiseo-ai-backend/pkg/response"
)

// Services is reported by /health
type Services struct {
	LLM     string `json:"llm"`
	Serp    string `json:"serp"`
	Store   string `json:"store"`
	Queue   bool   `json:"queue"`
	Storage bool   `json:"storage"`
	Auth    bool   `json:"auth"`
}

// Options holds everything the routes need
type Options struct {
	Jobs        *handler.JobHandler
	Auth        *handler.AuthHandler
	APIAuth     fiber.Handler
	RateLimiter *middleware.RateLimiter
	JobsPerHour int
	Hub         *ws.Hub
	Services    Services
	LogLevel    string
	// AccessLog enables the request logger
	AccessLog bool
}

// New creates the fiber app with every route registered.
func New(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	if opts.AccessLog {
		logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
		if strings.EqualFold(opts.LogLevel, "debug") {
			logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
			log.Println("Debug logging enabled")
		}
		app.Use(logger.New(logger.Config{Format: logFormat}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"services": opts.Services,
		})
	})

	// ForwardAuth verification endpoint (internal, called by Traefik)
	app.Get("/auth/verify", opts.Auth.Verify)

	api := app.Group("/api", opts.APIAuth)

	jobs := api.Group("/jobs")
	jobs.Post("/", opts.RateLimiter.JobsLimit(opts.JobsPerHour), opts.Jobs.Create)
	jobs.Post("/:jobId/run", opts.RateLimiter.JobsLimit(opts.JobsPerHour), opts.Jobs.Run)
	jobs.Get("/:jobId", opts.Jobs.Get)
	jobs.Get("/:jobId/result", opts.Jobs.Result)
	jobs.Get("/:jobId/checkpoint", opts.Jobs.Checkpoint)
	jobs.Delete("/:jobId", opts.Jobs.Delete)

	if opts.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})

		app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
			opts.Hub.HandleConnection(c, c.Params("jobId"))
		}))
	}

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	errCode := response.CodeServiceError
	if code == fiber.StatusNotFound {
		errCode = response.CodeNotFound
	}
	return response.Error(c, code, errCode, message, nil)
}
