package utils

import (
	"os"

	"github.com/medijourney/booking/logger"
)

// GetJWTSecret returns the HMAC secret used to verify access tokens.
func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.ErrorLogger.Error("JWT_SECRET is not set")
	}
	return []byte(secret)
}
