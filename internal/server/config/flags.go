package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   access token HMAC secret
//	-k string   refresh token HMAC secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-v int      email verification token validity, minutes
//	-w int      password reset token validity, minutes
//	-b string   public base URL for links in outbound mail
//	-e string   environment ("development" or "production")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-k", "-t", "-r", "-v", "-w", "-b", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret key")
	fs.StringVar(&config.RefreshTokenSecret, "k", config.RefreshTokenSecret, "refresh token secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	verificationTokenValidityDuration := fs.Int("v", int(config.VerificationTokenValidityDuration.Minutes()), "verification_token_validity_duration (in minutes)")
	resetTokenValidityDuration := fs.Int("w", int(config.ResetTokenValidityDuration.Minutes()), "reset_token_validity_duration (in minutes)")

	fs.StringVar(&config.BaseURL, "b", config.BaseURL, "public base URL")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment (development|production)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Apply duration flags only when actually set: the minute granularity of
	// the flag form must not clobber finer-grained values from env or JSON.
	passed := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { passed[f.Name] = true })

	if passed["t"] {
		config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	}
	if passed["r"] {
		config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	}
	if passed["v"] {
		config.VerificationTokenValidityDuration = time.Duration(*verificationTokenValidityDuration) * time.Minute
	}
	if passed["w"] {
		config.ResetTokenValidityDuration = time.Duration(*resetTokenValidityDuration) * time.Minute
	}
}
