package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port string
		Host string
		TLS  struct {
			Enabled  bool
			CertFile string
			KeyFile  string
		}
		DeployDomain string
		Debug        bool
	}
	API struct {
		Key string
	}
	Database struct {
		DSN      string
		RedisURI string
	}
	Invites struct {
		RSVPBaseURL   string
		ProductName   string
		SMSDailyLimit int64
	}
	Vonage struct {
		APIKey          string
		APISecret       string
		SignatureSecret string
		From            string
	}
	Resend struct {
		APIKey        string
		DefaultSender string
	}
	Telegram struct {
		BotToken string
		ChatID   string
	}
	Sentry struct {
		DSN string
	}
}

func Load() (*Config, error) {

	envStack := os.Getenv("ENV_STACK")

	if envStack != "" {
		filePath := "./env-files/.env." + envStack
		err := godotenv.Load(filePath)
		if err != nil {
			fmt.Printf("Error loading .env file: %s\n", err)
		}
	}

	c := &Config{}

	// Server configuration with environment variable support
	c.Server.Port = os.Getenv("SERVER_PORT")
	if c.Server.Port == "" {
		c.Server.Port = "3001"
	}

	c.Server.Host = os.Getenv("SERVER_HOST")
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}

	c.Server.DeployDomain = os.Getenv("DEPLOY_DOMAIN")
	if c.Server.DeployDomain == "" {
		c.Server.DeployDomain = c.Server.Host + ":" + c.Server.Port
	}

	c.Server.Debug = os.Getenv("ENABLE_DEBUG_ENDPOINTS") == "true"

	// TLS Configuration
	useTLS := os.Getenv("USE_TLS")
	c.Server.TLS.Enabled = useTLS != "false" && useTLS != "0"
	c.Server.TLS.CertFile = "./certs/localhost.pem"
	c.Server.TLS.KeyFile = "./certs/localhost-key.pem"

	c.API.Key = os.Getenv("API_KEY")

	c.Database.DSN = os.Getenv("DATABASE_DSN")
	c.Database.RedisURI = os.Getenv("REDIS_URI")

	c.Invites.RSVPBaseURL = os.Getenv("RSVP_BASE_URL")
	if c.Invites.RSVPBaseURL == "" {
		c.Invites.RSVPBaseURL = "https://thefamilyweather.com/demo2/events/rsvp.html"
	}

	c.Invites.ProductName = os.Getenv("PRODUCT_NAME")
	if c.Invites.ProductName == "" {
		c.Invites.ProductName = "Family Weather"
	}

	// Daily cap for the SMS fan-out endpoint, enforced through Redis.
	// Zero disables the limit.
	c.Invites.SMSDailyLimit = 500
	if raw := os.Getenv("SMS_DAILY_LIMIT"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SMS_DAILY_LIMIT %q: %w", raw, err)
		}
		c.Invites.SMSDailyLimit = limit
	}

	c.Vonage.APIKey = os.Getenv("VONAGE_API_KEY")
	c.Vonage.APISecret = os.Getenv("VONAGE_API_SECRET")
	c.Vonage.SignatureSecret = os.Getenv("VONAGE_API_SIGNATURE_SECRET")
	c.Vonage.From = os.Getenv("VONAGE_FROM")
	if c.Vonage.From == "" {
		c.Vonage.From = os.Getenv("VONAGE_BRAND_NAME")
	}
	if c.Vonage.From == "" {
		c.Vonage.From = "FamilyWeather"
	}

	c.Resend.APIKey = os.Getenv("RESEND_API_KEY")
	c.Resend.DefaultSender = os.Getenv("RESEND_DEFAULT_SENDER")
	if c.Resend.DefaultSender == "" {
		c.Resend.DefaultSender = "invites@thefamilyweather.com"
	}

	c.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	c.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")

	c.Sentry.DSN = os.Getenv("SENTRY_DSN")

	return c, nil
}
