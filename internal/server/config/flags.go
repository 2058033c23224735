package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/chantube/internal/flagx"
)

var knownFlags = []string{
	"-a", "-g", "-d", "-s", "-k", "-t", "-r",
	"-u", "-p", "-b", "-region", "-e", "-public-url", "-upload-dir", "-log-level",
}

// parseFlags populates Config fields from command-line flags.
//
//	-a string        HTTP bind address (e.g. ":8000")
//	-g string        gRPC health bind address
//	-d string        PostgreSQL DSN
//	-s string        access token HMAC secret
//	-k string        refresh token HMAC secret
//	-t int           access token validity, minutes
//	-r int           refresh token validity, minutes
//	-u / -p string   S3 credentials
//	-b string        S3 bucket
//	-region string   S3 region
//	-e string        S3 base endpoint
//	-public-url      base URL under which uploaded objects are served
//	-upload-dir      local staging dir for uploads
//	-log-level       debug|info|warn|error
//
// Durations are accepted as integer minutes.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "k", config.RefreshTokenSecret, "refresh token secret")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshMinutes := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 access key")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3PublicBaseURL, "public-url", config.S3PublicBaseURL, "public base URL of uploaded media")
	fs.StringVar(&config.UploadDir, "upload-dir", config.UploadDir, "local upload staging directory")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	visited := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { visited[f.Name] = true })

	if visited["t"] {
		config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
	}
	if visited["r"] {
		config.RefreshTokenValidityDuration = time.Duration(*refreshMinutes) * time.Minute
	}
	return nil
}
