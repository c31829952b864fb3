package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dusk-indust/pbscope/internal/api"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultProbeInterval is the pause between probes that keeps a run under
// the API's rate limit.
const DefaultProbeInterval = 100 * time.Millisecond

// Runner executes a probe battery against the API and records one Outcome
// per probe. A run never fails as a whole.
type Runner struct {
	client     api.Client
	probes     []Probe
	interval   time.Duration
	workers    int
	logger     *slog.Logger
	onProgress func(ProgressEvent)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithProbes replaces the default probe battery.
func WithProbes(probes []Probe) RunnerOption {
	return func(r *Runner) {
		r.probes = probes
	}
}

// WithInterval sets the pause between probes.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d >= 0 {
			r.interval = d
		}
	}
}

// WithWorkers sets how many probes may be in flight at once. Values above
// one switch to a worker pool that shares a single pacing token bucket.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger used for per-probe diagnostics.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithProgress registers a callback for per-probe progress events.
// In pooled mode it is called from multiple goroutines.
func WithProgress(fn func(ProgressEvent)) RunnerOption {
	return func(r *Runner) {
		r.onProgress = fn
	}
}

// NewRunner creates a Runner that issues requests through client.
func NewRunner(client api.Client, opts ...RunnerOption) *Runner {
	r := &Runner{
		client:   client,
		probes:   DefaultProbes(),
		interval: DefaultProbeInterval,
		workers:  1,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every probe and returns the outcomes in probe order.
//
// Cancellation of ctx is not observed: requests run under
// context.WithoutCancel(ctx). Callers that need a deadline bound the call
// from outside and discard a late result.
func (r *Runner) Run(ctx context.Context) []Outcome {
	ctx = context.WithoutCancel(ctx)
	if r.workers > 1 {
		return r.runPooled(ctx)
	}

	outcomes := make([]Outcome, len(r.probes))
	for i, p := range r.probes {
		if i > 0 {
			time.Sleep(r.interval)
		}
		outcomes[i] = r.runProbe(ctx, p)
	}
	return outcomes
}

// runPooled runs probes on a bounded pool. Every worker takes a token from
// the same limiter before issuing its request, so the aggregate request rate
// matches the sequential run.
func (r *Runner) runPooled(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, len(r.probes))
	limiter := rate.NewLimiter(rate.Every(r.interval), 1)

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, p := range r.probes {
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				r.logger.Debug("pacing wait failed", "endpoint", p.Endpoint, "error", err)
			}
			outcomes[i] = r.runProbe(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// runProbe issues one probe. A panicking transport is recovered and recorded
// as a generic failure for this probe only.
func (r *Runner) runProbe(ctx context.Context, p Probe) (out Outcome) {
	out = Outcome{Endpoint: p.Endpoint, Method: p.Method}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("probe panicked", "method", p.Method, "endpoint", p.Endpoint, "panic", rec)
			out = Outcome{
				Endpoint:   p.Endpoint,
				Method:     p.Method,
				StatusCode: http.StatusInternalServerError,
				Error:      fmt.Sprintf("panic: %v", rec),
			}
			r.emit(ProgressEvent{Probe: p, Status: ProgressFailed, Message: out.Error})
		}
	}()

	r.emit(ProgressEvent{Probe: p, Status: ProgressWorking})
	r.logger.Debug("testing probe", "method", p.Method, "endpoint", p.Endpoint)

	resp, err := r.send(ctx, p)
	if err != nil {
		out.StatusCode, out.Error = classifyError(err)
		r.logger.Debug("probe failed", "label", p.Label, "status", out.StatusCode, "error", out.Error)
		r.emit(ProgressEvent{Probe: p, Status: ProgressFailed, Message: out.Error})
		return out
	}

	out.Succeeded = true
	out.StatusCode = http.StatusOK
	r.logger.Debug("probe succeeded", "label", p.Label)
	r.emit(ProgressEvent{Probe: p, Status: ProgressComplete})

	if p.Method == MethodPost {
		if id := resp.ID(); id != "" {
			r.cleanup(ctx, p, id)
		}
	}
	return out
}

// send dispatches the probe to the matching transport method.
func (r *Runner) send(ctx context.Context, p Probe) (*api.Response, error) {
	switch p.Method {
	case MethodGet:
		return r.client.Get(ctx, p.Endpoint, nil)
	case MethodPost:
		return r.client.Post(ctx, p.Endpoint, payloadOrEmpty(p.Payload))
	case MethodPut:
		return r.client.Put(ctx, p.Endpoint, payloadOrEmpty(p.Payload))
	case MethodDelete:
		return r.client.Delete(ctx, p.Endpoint)
	default:
		return nil, fmt.Errorf("unsupported probe method %q", p.Method)
	}
}

// cleanup deletes the object a creation probe made. Failures are logged and
// dropped; they never change the probe's outcome.
func (r *Runner) cleanup(ctx context.Context, p Probe, id string) {
	base, _, _ := strings.Cut(p.Endpoint, "?")
	target := base + "/" + url.PathEscape(id)

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("could not clean up test resource", "endpoint", target, "panic", rec)
		}
	}()

	if _, err := r.client.Delete(ctx, target); err != nil {
		r.logger.Debug("could not clean up test resource", "endpoint", target, "error", err)
		return
	}
	r.logger.Debug("cleaned up test resource", "endpoint", target)
}

// emit sends a progress event if a callback is registered.
func (r *Runner) emit(ev ProgressEvent) {
	if r.onProgress != nil {
		r.onProgress(ev)
	}
}

func payloadOrEmpty(payload any) any {
	if payload == nil {
		return map[string]any{}
	}
	return payload
}

// classifyError maps a transport error to the status code and message
// recorded in the outcome.
func classifyError(err error) (int, string) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case api.KindAuthorization:
			return http.StatusForbidden, "Forbidden - insufficient permissions"
		case api.KindNotFound:
			return http.StatusNotFound, "Not found - endpoint may not exist"
		case api.KindValidation:
			return http.StatusBadRequest, "Validation error - invalid test data"
		}
	}
	return http.StatusInternalServerError, err.Error()
}
