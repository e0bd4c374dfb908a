package server

import (
	"log/slog"
	"time"

	"backend-journeylog/internal/auth"
	"backend-journeylog/internal/config"
	"backend-journeylog/internal/db"
	"backend-journeylog/internal/httpclient"
	"backend-journeylog/internal/journey"
	"backend-journeylog/internal/meteo"
	"backend-journeylog/internal/storage"
	"backend-journeylog/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     db.Querier
	Redis  *redis.Client
	Stream *stream.Hub
	Log    *slog.Logger
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New(fiber.Config{BodyLimit: 25 * 1024 * 1024})
	app.Use(recover.New())
	app.Use(logger.New())
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/health"
			},
		}))
	}

	s := &Server{
		App:    app,
		Cfg:    cfg,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient, log),
		Log:    log,
	}
	// A nil pool must stay a nil interface.
	if pool != nil {
		s.DB = pool
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	var cache *meteo.Cache
	if s.Redis != nil {
		cache = meteo.NewCache(s.Redis, s.Cfg.MeteoCacheTTL)
	}
	forecasts := meteo.NewService(
		meteo.NewClient(s.Cfg.MeteoURL, httpclient.New(httpclient.DefaultConfig())),
		cache,
		s.Log.With("component", "meteo"),
	)
	files := storage.NewService(s.DB, s.Cfg.UploadDir, s.Cfg.PublicURL)
	journeys := journey.NewService(s.DB, s.Stream, forecasts, s.Log.With("component", "journey"))

	api := s.App.Group("/api")
	auth.RegisterRoutes(api.Group("/user"), auth.NewService(s.Cfg.JWTSecret, s.DB), jwtMiddleware)
	journey.RegisterRoutes(api.Group("/journey"), journeys, files, jwtMiddleware)
	meteo.RegisterRoutes(api.Group("/meteo"), forecasts, jwtMiddleware)
	storage.RegisterRoutes(api.Group("/storage"), files, jwtMiddleware)
	storage.RegisterFiles(s.App.Group("/uploads"), files)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware)
}
