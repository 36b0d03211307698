// SPDX-License-Identifier: MIT

package alert

import (
	"context"

	xglog "github.com/ManuGH/apiwatch/internal/log"
	"github.com/ManuGH/apiwatch/internal/metrics"
	"github.com/rs/zerolog"
)

// Dispatcher fans alerts out to every configured notifier. Delivery
// failures are logged and counted, never propagated: a broken webhook must
// not stop the monitoring loop.
type Dispatcher struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given notifiers.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		logger:    xglog.WithComponent("alert"),
	}
}

// Dispatch delivers the alert to all notifiers.
func (d *Dispatcher) Dispatch(ctx context.Context, a Alert) {
	metrics.RecordAlert(string(a.Level), string(a.Kind))
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, a); err != nil {
			metrics.RecordAlertDropped()
			d.logger.Warn().
				Err(err).
				Str("notifier", n.Name()).
				Str(xglog.FieldTarget, a.Target).
				Str(xglog.FieldAlertLevel, string(a.Level)).
				Msg("alert delivery failed")
		}
	}
}
