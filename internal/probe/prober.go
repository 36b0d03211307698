// SPDX-License-Identifier: MIT

package probe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/apiwatch/internal/config"
	xglog "github.com/ManuGH/apiwatch/internal/log"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBodyBytes caps how much of a response body is read for hashing. Bodies
// beyond the cap still hash deterministically over the read prefix.
const maxBodyBytes = 8 << 20

// Prober executes HTTP checks. It is safe for concurrent use.
type Prober struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    zerolog.Logger
	// now is swapped in tests for deterministic timestamps.
	now func() time.Time
}

// Options configures a Prober.
type Options struct {
	// Timeout is the default per-check timeout. Targets may override it.
	Timeout time.Duration
	// UserAgent is sent with every check request.
	UserAgent string
}

// New creates a Prober. The underlying transport is instrumented with
// otelhttp; with tracing disabled this is a no-op.
func New(opts Options) *Prober {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "apiwatch"
	}
	transport := otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone())
	return &Prober{
		client: &http.Client{
			Transport: transport,
			// Per-check deadlines are enforced via context so targets can
			// override the global timeout.
		},
		timeout:   timeout,
		userAgent: userAgent,
		logger:    xglog.WithComponent("probe"),
		now:       time.Now,
	}
}

// CloseIdleConnections drops pooled connections, for clean shutdown.
func (p *Prober) CloseIdleConnections() {
	p.client.CloseIdleConnections()
}

// Check performs one check against the target and returns the outcome.
// It never returns an error: failures are encoded in the Result status.
func (p *Prober) Check(ctx context.Context, target config.Target) Result {
	t := target.Normalized()

	result := Result{
		ID:        uuid.NewString(),
		Target:    t.Name,
		URL:       t.URL,
		Timestamp: p.now().UTC(),
	}

	timeout := p.timeout
	if t.Timeout.Std() > 0 {
		timeout = t.Timeout.Std()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, t.Method, t.URL, nil)
	if err != nil {
		result.Status = StatusError
		result.Error = fmt.Sprintf("build request: %v", err)
		return result
	}
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	result.ResponseTime = time.Since(start)

	if err != nil {
		result.Status = StatusDown
		result.Error = classifyTransportError(err)
		p.logger.Debug().
			Str(xglog.FieldTarget, t.Name).
			Str(xglog.FieldStatus, string(result.Status)).
			Str("error", result.Error).
			Msg("check failed")
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.HTTPStatus = resp.StatusCode
	if resp.StatusCode == t.ExpectedStatus {
		result.Status = StatusUp
	} else {
		result.Status = StatusError
		result.Error = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}

	// The body is always drained so the connection can be reused; it is only
	// hashed when the target opts into change detection.
	limited := io.LimitReader(resp.Body, maxBodyBytes)
	if t.TrackBody {
		h := sha256.New()
		n, copyErr := io.Copy(h, limited)
		if copyErr != nil {
			result.Status = StatusDown
			result.Error = classifyTransportError(copyErr)
			return result
		}
		result.BodyBytes = n
		result.BodyHash = hex.EncodeToString(h.Sum(nil))
	} else {
		n, _ := io.Copy(io.Discard, limited)
		result.BodyBytes = n
	}

	return result
}

// classifyTransportError maps transport failures onto the two user-facing
// error strings the log format uses.
func classifyTransportError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "request timeout"
	case strings.Contains(err.Error(), "context deadline exceeded"):
		return "request timeout"
	default:
		return fmt.Sprintf("connection error: %v", err)
	}
}
