package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/chantube/internal/flagx"
	"github.com/dmitrijs2005/chantube/internal/timex"
)

// JsonConfig is the on-disk representation of Config. Durations accept both
// "15m"-style strings and integer nanoseconds. Pointer fields distinguish
// "absent" from the zero value, so a partial file only overrides what it
// names.
type JsonConfig struct {
	HTTPAddr                     *string         `json:"http_addr"`
	GRPCAddr                     *string         `json:"grpc_addr"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	AccessTokenSecret            *string         `json:"access_token_secret"`
	RefreshTokenSecret           *string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	S3PublicBaseURL              *string         `json:"s3_public_base_url"`
	UploadDir                    *string         `json:"upload_dir"`
	CookieSecure                 *bool           `json:"cookie_secure"`
	CORSOrigin                   *string         `json:"cors_origin"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	setString(&config.UploadDir, c.UploadDir)
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	setString(&config.CORSOrigin, c.CORSOrigin)
	setString(&config.LogLevel, c.LogLevel)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
