package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig mirrors Config with pointer fields so that only variables
// actually present in the environment override earlier layers.
type envConfig struct {
	EndpointAddrHTTP                  *string        `env:"ADDRESS"`
	DatabaseDSN                       *string        `env:"DATABASE_DSN"`
	AccessTokenSecret                 *string        `env:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret                *string        `env:"REFRESH_TOKEN_SECRET"`
	AccessTokenValidityDuration       *time.Duration `env:"ACCESS_TOKEN_VALIDITY"`
	RefreshTokenValidityDuration      *time.Duration `env:"REFRESH_TOKEN_VALIDITY"`
	VerificationTokenValidityDuration *time.Duration `env:"VERIFICATION_TOKEN_VALIDITY"`
	ResetTokenValidityDuration        *time.Duration `env:"RESET_TOKEN_VALIDITY"`
	BcryptCost                        *int           `env:"BCRYPT_COST"`
	BaseURL                           *string        `env:"BASE_URL"`
	AppName                           *string        `env:"APP_NAME"`
	SupportEmail                      *string        `env:"SUPPORT_EMAIL"`
	Environment                       *string        `env:"ENVIRONMENT"`
	MailHost                          *string        `env:"MAIL_HOST"`
	MailPort                          *int           `env:"MAIL_PORT"`
	MailUser                          *string        `env:"MAIL_USER"`
	MailPassword                      *string        `env:"MAIL_PASSWORD"`
	MailFrom                          *string        `env:"MAIL_FROM"`
	MailTimeout                       *time.Duration `env:"MAIL_TIMEOUT"`
}

// parseEnv overlays environment variables onto config. Malformed values
// panic, consistent with the JSON and flag layers.
func parseEnv(config *Config) {
	c := &envConfig{}
	if err := env.Parse(c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setDurationPtr(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDurationPtr(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDurationPtr(&config.VerificationTokenValidityDuration, c.VerificationTokenValidityDuration)
	setDurationPtr(&config.ResetTokenValidityDuration, c.ResetTokenValidityDuration)
	setInt(&config.BcryptCost, c.BcryptCost)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.AppName, c.AppName)
	setString(&config.SupportEmail, c.SupportEmail)
	setString(&config.Environment, c.Environment)
	setString(&config.MailHost, c.MailHost)
	setInt(&config.MailPort, c.MailPort)
	setString(&config.MailUser, c.MailUser)
	setString(&config.MailPassword, c.MailPassword)
	setString(&config.MailFrom, c.MailFrom)
	setDurationPtr(&config.MailTimeout, c.MailTimeout)
}

func setDurationPtr(dst *time.Duration, src *time.Duration) {
	if src != nil {
		*dst = *src
	}
}
