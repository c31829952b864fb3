package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dusk-indust/pbscope/internal/api"
)

// ErrNoTransport is returned by Discover when no API client is configured.
var ErrNoTransport = errors.New("discovery: no API client")

// validator is implemented by clients that can report up front whether they
// are able to issue requests at all.
type validator interface {
	Validate() error
}

// Service runs permission discovery: probe, then classify.
type Service struct {
	client     api.Client
	logger     *slog.Logger
	runnerOpts []RunnerOption
}

// NewService creates a Service. opts configure the Runner built for each
// discovery call.
func NewService(client api.Client, logger *slog.Logger, opts ...RunnerOption) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		client:     client,
		logger:     logger,
		runnerOpts: opts,
	}
}

// Discover probes the API from scratch and returns the permission model.
// Probe failures are part of the result, not errors; the only error is a
// transport that cannot issue requests at all.
func (s *Service) Discover(ctx context.Context) (*Permissions, error) {
	if s.client == nil {
		return nil, ErrNoTransport
	}
	if v, ok := s.client.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("discovery: transport unusable: %w", err)
		}
	}

	s.logger.Info("starting permission discovery", "component", "discovery")

	opts := append([]RunnerOption{WithLogger(s.logger)}, s.runnerOpts...)
	outcomes := NewRunner(s.client, opts...).Run(ctx)
	perms := Analyze(outcomes)

	s.logger.Info("permission discovery completed",
		"component", "discovery",
		"accessLevel", perms.AccessLevel,
		"permissionCount", len(perms.Permissions),
		"canWrite", perms.CanWrite,
		"isAdmin", perms.IsAdmin,
	)
	return perms, nil
}
