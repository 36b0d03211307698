// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ManuGH/apiwatch/internal/config"
	"github.com/ManuGH/apiwatch/internal/history"
	"github.com/ManuGH/apiwatch/internal/report"
)

// runReportCLI analyzes recorded history and prints an uptime report.
// Usage: apiwatch report [-config path] [-since 24h] [-json] [-out path] [target]
func runReportCLI(args []string) int {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML or JSON)")
	since := fs.Duration("since", 24*time.Hour, "analysis window")
	asJSON := fs.Bool("json", false, "write the report as JSON instead of text")
	out := fs.String("out", "", "output file for -json (default stdout)")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing report flags: %v\n", err)
		return 1
	}
	target := fs.Arg(0)

	loader := config.NewLoader(resolveConfigPath(*configPath), version)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1
	}

	store, err := history.Open(cfg.EffectiveSQLitePath(), history.DefaultSQLiteConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history database %s: %v\n", cfg.EffectiveSQLitePath(), err)
		return 1
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rep, err := report.NewAnalyzer(store).Analyze(ctx, target, time.Now().Add(-*since))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building report: %v\n", err)
		return 1
	}

	if *asJSON {
		if *out != "" {
			if err := report.WriteJSON(*out, rep); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
				return 1
			}
			fmt.Printf("Report written to %s\n", *out)
			return 0
		}
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	if err := report.RenderText(os.Stdout, rep); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering report: %v\n", err)
		return 1
	}
	return 0
}
