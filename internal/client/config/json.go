package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/chantube/internal/flagx"
	"github.com/dmitrijs2005/chantube/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent fields
// leave the corresponding Config value untouched.
type JsonConfig struct {
	ServerURL           *string         `json:"server_url"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with values from the file named by -c/-config.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
