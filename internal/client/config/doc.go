// Package config loads runtime settings for the chantube CLI.
//
// Sources are applied in order, later ones winning:
//
//  1. LoadDefaults
//  2. a JSON file named by -c / -config
//  3. environment variables (CHANTUBE_SERVER_URL, ...)
//  4. command-line flags (-a, -i, -timeout)
//
// JSON durations accept "3s"-style strings or integer nanoseconds via
// timex.Duration.
package config
