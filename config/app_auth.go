package config

import (
	"time"

	"github.com/akeren/clothiq-api/pkg/constants"
	"github.com/akeren/clothiq-api/pkg/utils"
)

const minJWTSecretLength = 32

type AuthConfig struct {
	JWTSecret     string
	Issuer        string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	ResetURL      string
}

func NewAuthConfig() *AuthConfig {
	return &AuthConfig{
		JWTSecret:     sanitizeEnv(GetValueFromEnvironmentVariable("AUTH_JWT_SECRET", "")),
		Issuer:        utils.GetEnvTrimmedOrDefault("AUTH_ISSUER", "clothiq-api"),
		TokenTTL:      utils.GetEnvDuration("AUTH_TOKEN_TTL", constants.DefaultAuthTokenTTL),
		ResetTokenTTL: utils.GetEnvDuration("AUTH_RESET_TOKEN_TTL", constants.DefaultPasswordResetTokenTTL),
		ResetURL:      utils.GetEnvTrimmedOrDefault("AUTH_RESET_URL", "http://localhost:3000/update-password"),
	}
}

// IsConfigured requires a signing secret of at least 32 bytes.
func (ac *AuthConfig) IsConfigured() bool {
	return len(ac.JWTSecret) >= minJWTSecretLength
}
