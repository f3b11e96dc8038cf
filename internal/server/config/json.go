package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, set fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP                  *string         `json:"endpoint_addr_http"`
	DatabaseDSN                       *string         `json:"database_dsn"`
	AccessTokenSecret                 *string         `json:"access_token_secret"`
	RefreshTokenSecret                *string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration       *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration      *timex.Duration `json:"refresh_token_validity_duration"`
	VerificationTokenValidityDuration *timex.Duration `json:"verification_token_validity_duration"`
	ResetTokenValidityDuration        *timex.Duration `json:"reset_token_validity_duration"`
	BcryptCost                        *int            `json:"bcrypt_cost"`
	BaseURL                           *string         `json:"base_url"`
	AppName                           *string         `json:"app_name"`
	SupportEmail                      *string         `json:"support_email"`
	Environment                       *string         `json:"environment"`
	MailHost                          *string         `json:"mail_host"`
	MailPort                          *int            `json:"mail_port"`
	MailUser                          *string         `json:"mail_user"`
	MailPassword                      *string         `json:"mail_password"`
	MailFrom                          *string         `json:"mail_from"`
	MailTimeout                       *timex.Duration `json:"mail_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path comes from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. Absent fields keep their current
// (default) values. If the file cannot be read or contains invalid JSON,
// the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.VerificationTokenValidityDuration, c.VerificationTokenValidityDuration)
	setDuration(&config.ResetTokenValidityDuration, c.ResetTokenValidityDuration)
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
	setDuration(&config.MailTimeout, c.MailTimeout)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}
