package server

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"familyweather-backend/internal/common"
	"familyweather-backend/internal/config"
	"familyweather-backend/internal/email"
	"familyweather-backend/internal/handlers"
	"familyweather-backend/internal/middlewares"
	"familyweather-backend/internal/models"
	"familyweather-backend/internal/sms"

	"github.com/go-playground/validator"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
	resend "github.com/resend/resend-go/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// CustomValidator Source: https://echo.labstack.com/docs/request#validate-data
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		// Optionally, you could return the error to give each route more control over the status code
		return err
	}
	return nil
}

type SentryLogger struct {
	echo.Logger
}

func (l *SentryLogger) Error(i ...interface{}) {
	// Capture in Sentry
	if err, ok := i[0].(error); ok {
		handlers.CaptureError(err)
	} else {
		handlers.CaptureError(fmt.Errorf("%v", i...))
	}
	// Call original logger
	l.Logger.Error(i...)
}

type Server struct {
	common.ServerState
}

func New(cfg *config.Config) *Server {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}
	e.Logger = &SentryLogger{Logger: e.Logger}
	e.Logger.SetLevel(log.DEBUG)

	return &Server{
		common.ServerState{
			Echo:   e,
			Config: cfg,
		},
	}
}

func (s *Server) Initialize() error {
	// Initialize database
	s.setupDatabase()

	s.setupRedis()

	// Initialize provider clients
	s.setupSmsClient()
	s.setupEmailClient()

	// Setup routes
	s.setupRoutes()

	// Run Migrations
	s.runMigrations()

	// Setup middleware -
	// Keep last to avoid Recover middleware and panic if something goes wrong on init
	s.setupMiddleware()

	return nil
}

func (s *Server) setupDatabase() {
	dsn := s.Config.Database.DSN
	if dsn == "" {
		s.Echo.Logger.Fatal("DATABASE_DSN environment variable is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		s.Echo.Logger.Fatal(err)
	}
	s.DB = db
}

func (s *Server) setupRedis() {
	url := s.Config.Database.RedisURI
	if url == "" {
		s.Echo.Logger.Warn("REDIS_URI not configured, send-sms rate limiting will be disabled")
		return
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		panic(err)
	}

	s.Redis = redis.NewClient(opts)

	// Validate proper connection
	ctx := context.Background()
	result := s.Redis.Ping(ctx)
	if result.Err() != nil {
		panic(result.Err())
	}
}

func (s *Server) setupSmsClient() {
	if s.Config.Vonage.APIKey == "" || s.Config.Vonage.APISecret == "" {
		s.Echo.Logger.Warn("VONAGE_API_KEY not configured, SMS delivery will be disabled")
		return
	}

	s.SmsClient = sms.NewVonageClient(
		s.Config.Vonage.APIKey,
		s.Config.Vonage.APISecret,
		s.Config.Vonage.From,
		s.Echo.Logger)
}

func (s *Server) setupEmailClient() {
	apiKey := s.Config.Resend.APIKey
	if apiKey == "" {
		s.Echo.Logger.Warn("RESEND_API_KEY not configured, email invites will be disabled")
		return
	}

	resendClient := resend.NewClient(apiKey)
	s.EmailClient = email.NewResendClient(resendClient,
		s.Config.Resend.DefaultSender,
		s.Echo.Logger)
}

func (s *Server) runMigrations() {
	err := s.DB.AutoMigrate(
		&models.Invite{},
	)
	if err != nil {
		s.Echo.Logger.Fatal(err)
	}
}

func (s *Server) setupMiddleware() {
	s.Echo.Use(middleware.CORS())
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(echoprometheus.NewMiddleware("familyweather_backend"))
}

func (s *Server) setupRoutes() {
	handlers.SetupSentry(s.Echo, s.Config)

	// Initialize handlers
	inv := handlers.NewInviteHandler(s.DB, s.Config)
	inv.ServerState.SmsClient = s.SmsClient
	inv.ServerState.EmailClient = s.EmailClient
	inv.ServerState.Verifier = handlers.JWTSignatureVerifier{}

	requireAPIKey := middlewares.RequireAPIKey(s.Config.API.Key)

	// API routes group
	api := s.Echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})
	api.GET("/metrics", echoprometheus.NewHandler())

	// Invite lifecycle. Resolve and respond are public: the token itself is
	// the capability. Mutating endpoints sit behind the API key.
	invites := api.Group("/invites")
	invites.GET("/health", inv.Health)
	invites.GET("/resolve", inv.Resolve)
	invites.POST("/respond", inv.Respond)
	invites.POST("/create", inv.Create, requireAPIKey)
	invites.POST("/send-sms", inv.SendSMS, requireAPIKey,
		middlewares.RateLimitDaily(s.Redis, "send-sms", s.Config.Invites.SMSDailyLimit))
	invites.POST("/send-email", inv.SendEmail, requireAPIKey)

	// Provider webhooks, authenticated by the signed bearer instead of the
	// API key.
	vonage := api.Group("/vonage")
	vonage.POST("/inbound", inv.Inbound)
	vonage.POST("/dlr", inv.DeliveryReceipt)
	vonage.GET("/inbound", inv.WebhookProbe)
	vonage.GET("/dlr", inv.WebhookProbe)
}

func (s *Server) Start() error {
	serverURL := s.Config.Server.Host + ":" + s.Config.Server.Port

	if s.Config.Server.TLS.Enabled {
		if _, err := os.Stat(s.Config.Server.TLS.CertFile); os.IsNotExist(err) {
			s.Echo.Logger.Warn("TLS certificate file not found, falling back to HTTP")
			return s.Echo.Start(serverURL)
		}
		if _, err := os.Stat(s.Config.Server.TLS.KeyFile); os.IsNotExist(err) {
			s.Echo.Logger.Warn("TLS key file not found, falling back to HTTP")
			return s.Echo.Start(serverURL)
		}
		return s.Echo.StartTLS(serverURL, s.Config.Server.TLS.CertFile, s.Config.Server.TLS.KeyFile)
	}

	return s.Echo.Start(serverURL)
}
