// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ManuGH/apiwatch/internal/config"
)

// runValidateCLI loads and validates a configuration file without starting
// the daemon, for CI and pre-deploy checks.
// Usage: apiwatch validate -config path
func runValidateCLI(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML or JSON)")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing validate flags: %v\n", err)
		return 1
	}

	path := resolveConfigPath(*configPath)
	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration invalid: %v\n", err)
		return 1
	}

	source := "env+defaults"
	if path != "" {
		source = path
	}
	fmt.Printf("Configuration valid (%s): %d target(s), interval %s\n",
		source, len(cfg.Targets), cfg.Interval)
	return 0
}
