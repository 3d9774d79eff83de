package common

import (
	"familyweather-backend/internal/config"
	"familyweather-backend/internal/email"
	"familyweather-backend/internal/sms"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SignatureVerifier checks a provider-signed bearer token against the
// pre-shared signing secret. Pluggable so the provider-specific crypto can
// be swapped out in tests.
type SignatureVerifier interface {
	Verify(token, secret string) bool
}

type ServerState struct {
	Echo        *echo.Echo
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	SmsClient   sms.Client
	EmailClient email.Client
	Verifier    SignatureVerifier
}
