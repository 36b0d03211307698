// SPDX-License-Identifier: MIT

package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/apiwatch/internal/alert"
	"github.com/ManuGH/apiwatch/internal/config"
	"github.com/ManuGH/apiwatch/internal/probe"
)

// evaluate maps one check result onto the alert policy:
// down is critical, unexpected status is a warning, slow responses escalate
// by threshold, recoveries and healthy checks are informational.
func (r *Runner) evaluate(ctx context.Context, cfg config.Config, res probe.Result, changed bool, recoveredAfter time.Duration) {
	now := res.Timestamp

	dispatch := func(level alert.Level, kind alert.Kind, msg string) {
		r.opts.Alerts.Dispatch(ctx, alert.Alert{
			Level:     level,
			Kind:      kind,
			Target:    res.Target,
			Message:   msg,
			Timestamp: now,
		})
	}

	switch res.Status {
	case probe.StatusDown:
		dispatch(alert.LevelCritical, alert.KindDown,
			fmt.Sprintf("%s is DOWN: %s", res.Target, res.Error))
	case probe.StatusError:
		dispatch(alert.LevelWarning, alert.KindStatusMismatch,
			fmt.Sprintf("%s returned an error: %s", res.Target, res.Error))
	case probe.StatusUp:
		if recoveredAfter > 0 {
			dispatch(alert.LevelInfo, alert.KindRecovered,
				fmt.Sprintf("%s recovered after %s", res.Target, recoveredAfter.Round(time.Second)))
		}

		warning := cfg.Thresholds.ResponseTimeWarning.Std()
		critical := cfg.Thresholds.ResponseTimeCritical.Std()
		switch {
		case critical > 0 && res.ResponseTime > critical:
			dispatch(alert.LevelCritical, alert.KindVerySlow,
				fmt.Sprintf("%s is very slow: response time %.2fms", res.Target, res.ResponseMillis()))
		case warning > 0 && res.ResponseTime > warning:
			dispatch(alert.LevelWarning, alert.KindSlow,
				fmt.Sprintf("%s is slow: response time %.2fms", res.Target, res.ResponseMillis()))
		default:
			dispatch(alert.LevelInfo, alert.KindHealthy,
				fmt.Sprintf("%s is healthy: response time %.2fms", res.Target, res.ResponseMillis()))
		}
	}

	if changed {
		dispatch(alert.LevelWarning, alert.KindChanged,
			fmt.Sprintf("%s response has changed", res.Target))
	}
}
