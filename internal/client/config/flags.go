package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/chantube/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string      base URL of the API server
//	-i int         online check interval in seconds
//	-timeout int   request timeout in seconds
//
// Only these flags are read from args; the rest are left for other layers.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-i", "-timeout"})

	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the API server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	timeout := fs.Int("timeout", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
