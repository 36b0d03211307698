// SPDX-License-Identifier: MIT

package alert

import (
	"context"

	xglog "github.com/ManuGH/apiwatch/internal/log"
	"github.com/rs/zerolog"
)

// ConsoleNotifier writes alerts to the structured log, which is the
// always-available delivery channel.
type ConsoleNotifier struct {
	logger zerolog.Logger
}

// NewConsoleNotifier creates a console notifier.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{logger: xglog.WithComponent("alert")}
}

func (n *ConsoleNotifier) Name() string { return "console" }

// Notify logs the alert at a level matching its severity.
func (n *ConsoleNotifier) Notify(_ context.Context, a Alert) error {
	ev := n.logger.Info()
	switch a.Level {
	case LevelWarning:
		ev = n.logger.Warn()
	case LevelCritical:
		ev = n.logger.Error()
	}
	ev.Str(xglog.FieldEvent, "alert").
		Str(xglog.FieldTarget, a.Target).
		Str(xglog.FieldAlertLevel, string(a.Level)).
		Str(xglog.FieldAlertKind, string(a.Kind)).
		Msg(a.Message)
	return nil
}
