// Package flagx contains helpers for reading a subset of command-line flags
// without clashing with flags owned by other layers of configuration.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns only the allowed flags (and their values) from args.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      --config=conf.json
//
// A value is taken from the next argument only if it does not itself look
// like a flag.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigFileFlag extracts the JSON config path passed via -c or -config.
// It returns "" when neither is present.
func ConfigFileFlag(args []string) string {
	return stringFlag(args, "path to JSON config file", "c", "config")
}

// EnvFileFlag extracts the dotenv file path passed via -env-file.
// It returns "" when the flag is absent.
func EnvFileFlag(args []string) string {
	return stringFlag(args, "path to .env file", "env-file")
}

func stringFlag(args []string, usage string, names ...string) string {
	allowed := make([]string, 0, len(names)*2)
	for _, n := range names {
		allowed = append(allowed, "-"+n, "--"+n)
	}

	var value string
	fs := flag.NewFlagSet("flagx", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, n := range names {
		fs.StringVar(&value, n, "", usage)
	}
	_ = fs.Parse(FilterArgs(args, allowed))

	return value
}
