// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ManuGH/apiwatch/internal/config"
	"github.com/ManuGH/apiwatch/internal/history"
)

// runVerifyCLI checks the history database for corruption.
// Usage: apiwatch verify [-config path] [-mode quick|full]
func runVerifyCLI(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML or JSON)")
	mode := fs.String("mode", "quick", "integrity check mode: quick (default) or full")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing verify flags: %v\n", err)
		return 1
	}
	if *mode != "quick" && *mode != "full" {
		fmt.Fprintf(os.Stderr, "Invalid mode %q: must be quick or full\n", *mode)
		return 1
	}

	cfg, err := config.NewLoader(resolveConfigPath(*configPath), version).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1
	}

	path := cfg.EffectiveSQLitePath()
	problems, err := history.VerifyIntegrity(path, *mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Integrity check failed to run: %v\n", err)
		return 1
	}
	if len(problems) > 0 {
		fmt.Fprintf(os.Stderr, "Database %s FAILED the %s integrity check:\n", path, *mode)
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "  %s\n", p)
		}
		return 1
	}

	fmt.Printf("Database %s passed the %s integrity check\n", path, *mode)
	return 0
}
