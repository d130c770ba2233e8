package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agentd/internal/config"
	"agentd/internal/lifecycle"
	"agentd/internal/registry"
)

// ComponentChatModel is the lifecycle component name for the chat model.
const ComponentChatModel = "chat_model"

// estChatModelMB is the advisory resident cost reported for the chat model
// when the model file size is unknown.
const estChatModelMB = 1600

// Result is the outcome of one assistant query.
type Result struct {
	Response   string
	Model      string
	RequestID  string
	SessionID  string
	Duration   time.Duration
	// Danger flags the response for blocked-action keywords; the caller
	// decides whether to demand confirmation.
	Danger config.BlockedActionCheck
}

// Options configures the chat service.
type Options struct {
	Config    config.Config
	Paths     config.Paths
	Lifecycle *lifecycle.Manager
	Catalog   *registry.Catalog
	Manifest  registry.HashManifest
	Logger    zerolog.Logger
	// Runtime overrides the backend selected from Config; used by tests.
	Runtime RuntimeFactory
}

// Service answers assistant queries with the lazily loaded chat model.
type Service struct {
	cfg       config.Config
	lc        *lifecycle.Manager
	catalog   *registry.Catalog
	logger    zerolog.Logger
	sessionID string
}

// New builds the service and registers the chat model component. The model
// itself is not loaded until the first Ask.
func New(opts Options) (*Service, error) {
	factory := opts.Runtime
	if factory == nil {
		var err error
		factory, err = NewRuntimeFactory(opts.Config.AI, opts.Logger)
		if err != nil {
			return nil, err
		}
	}
	s := &Service{
		cfg:       opts.Config,
		lc:        opts.Lifecycle,
		catalog:   opts.Catalog,
		logger:    opts.Logger,
		sessionID: uuid.NewString(),
	}

	cfg := opts.Config
	catalog := opts.Catalog
	manifest := opts.Manifest
	logger := opts.Logger
	est := estChatModelMB
	if m, ok := catalog.Find(cfg.AI.CoreModel); ok && m.SizeMB > 0 {
		est = m.SizeMB
	}

	s.lc.Register(ComponentChatModel, lifecycle.Component{
		EstMemoryMB: est,
		Loader: func() (any, error) {
			if err := catalog.Rescan(); err != nil {
				return nil, err
			}
			model, ok := catalog.Find(cfg.AI.CoreModel)
			if !ok {
				return nil, fmt.Errorf("model not found: %s (looked in %s)", cfg.AI.CoreModel, catalog.Dir())
			}
			if cfg.AI.VerifyModels {
				if err := manifest.Verify(model); err != nil {
					// Integrity is advisory: log and load anyway, matching
					// how operators actually treat hand-copied weights.
					logger.Warn().Err(err).Msg("model integrity check failed, loading anyway")
				}
			}
			return factory(model.Path)
		},
		Unloader: func(inst any) error {
			return inst.(ModelRuntime).Close()
		},
	})
	return s, nil
}

// SessionID identifies this service instance's conversation session.
func (s *Service) SessionID() string { return s.sessionID }

// Warmup loads the chat model ahead of the first request.
func (s *Service) Warmup(ctx context.Context) error {
	_, err := s.lc.Acquire(ctx, ComponentChatModel)
	if err != nil {
		return err
	}
	return s.lc.ScheduleEviction(ComponentChatModel, s.cfg.AI.IdleTimeout)
}

// Ask runs one query through the chat model. contextPairs, if non-empty, are
// prepended to the prompt as labeled context lines. A load failure is
// reported upward; the process keeps running.
func (s *Service) Ask(ctx context.Context, query string, contextPairs map[string]string) (Result, error) {
	start := time.Now()
	requestID := uuid.NewString()
	s.logger.Info().Str("request_id", requestID).Int("query_len", len(query)).Msg("chat request")

	rt, err := lifecycle.As[ModelRuntime](s.lc.Acquire(ctx, ComponentChatModel))
	if err != nil {
		return Result{RequestID: requestID, SessionID: s.sessionID}, err
	}
	prompt := buildPrompt(query, contextPairs)
	response, err := rt.Complete(ctx, prompt, Params{
		MaxTokens:   s.cfg.AI.MaxTokens,
		Temperature: s.cfg.AI.Temperature,
		TopP:        s.cfg.AI.TopP,
	})

	// Win or lose, the model idles from here; arm the eviction timer.
	if serr := s.lc.ScheduleEviction(ComponentChatModel, s.cfg.AI.IdleTimeout); serr != nil {
		s.logger.Warn().Err(serr).Msg("schedule eviction failed")
	}
	if err != nil {
		return Result{RequestID: requestID, SessionID: s.sessionID}, fmt.Errorf("completion: %w", err)
	}

	res := Result{
		Response:  response,
		Model:     s.cfg.AI.CoreModel,
		RequestID: requestID,
		SessionID: s.sessionID,
		Duration:  time.Since(start),
		Danger:    s.cfg.CheckBlockedAction(response),
	}
	s.logger.Info().Str("request_id", requestID).Dur("dur", res.Duration).Msg("chat request done")
	return res, nil
}

// Unload evicts the chat model immediately.
func (s *Service) Unload() error {
	return s.lc.Evict(ComponentChatModel)
}
