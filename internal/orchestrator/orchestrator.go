// Package orchestrator fans a translation out to several services with
// per-service retries and picks the best result. An Orchestrator is itself a
// translator.Backend.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/adaptran/internal/placeholder"
	"github.com/valpere/adaptran/internal/translator"
	"github.com/valpere/adaptran/internal/validator"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 500 * time.Millisecond
	defaultTimeout     = 60 * time.Second
)

type OrchestratorConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	// SkipValidation disables the target-language check that triggers a retry.
	SkipValidation bool `mapstructure:"skip_validation"`
}

type OrchestratorResult struct {
	Results   []translator.ServiceResult
	Errors    []error
	Succeeded int
	Failed    int
}

type Orchestrator struct {
	services  []translator.TranslationService
	config    OrchestratorConfig
	svcConfig translator.ServiceConfig
	validator *validator.Validator
	logger    zerolog.Logger
	protect   bool
}

type Option func(*Orchestrator)

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithServiceConfig sets the ServiceConfig used when the orchestrator is
// called as a translator.Backend.
func WithServiceConfig(cfg translator.ServiceConfig) Option {
	return func(o *Orchestrator) { o.svcConfig = cfg }
}

// WithMarkupProtection shields code and HTML from the services when the
// orchestrator is called as a translator.Backend.
func WithMarkupProtection() Option {
	return func(o *Orchestrator) { o.protect = true }
}

// WithValidator shares an existing validator instead of building one.
func WithValidator(v *validator.Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

func New(services []translator.TranslationService, config OrchestratorConfig, opts ...Option) *Orchestrator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaultRetryDelay
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	o := &Orchestrator{
		services: services,
		config:   config,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if config.SkipValidation {
		o.validator = nil
	} else if o.validator == nil {
		o.validator = validator.New()
	}
	return o
}

// Execute runs every service concurrently. Each service is retried up to
// MaxAttempts times on error or on output that fails target-language
// validation; a result that still fails validation on the last attempt is
// accepted.
func (o *Orchestrator) Execute(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) *OrchestratorResult {
	result := &OrchestratorResult{
		Results: make([]translator.ServiceResult, 0),
		Errors:  make([]error, 0),
	}

	type indexed struct {
		index int
		res   *translator.ServiceResult
		err   error
	}

	results := make(chan indexed, len(o.services))

	var wg sync.WaitGroup
	for i, svc := range o.services {
		wg.Add(1)
		go func(index int, service translator.TranslationService) {
			defer wg.Done()
			res, err := o.executeWithRetry(ctx, service, cfg, req)
			results <- indexed{index: index, res: res, err: err}
		}(i, svc)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var ok []indexed
	for rc := range results {
		if rc.err != nil {
			result.Errors = append(result.Errors, rc.err)
			result.Failed++
			continue
		}
		ok = append(ok, rc)
	}

	sort.Slice(ok, func(i, j int) bool { return ok[i].index < ok[j].index })
	for _, rc := range ok {
		result.Results = append(result.Results, *rc.res)
		result.Succeeded++
	}

	return result
}

func (o *Orchestrator) executeWithRetry(ctx context.Context, svc translator.TranslationService, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	var lastErr error
	for attempt := 1; attempt <= o.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w", svc.Name(), ctx.Err())
			case <-time.After(o.config.RetryDelay):
			}
		}

		serviceCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
		res, err := svc.Translate(serviceCtx, cfg, req)
		cancel()

		switch {
		case err != nil:
			lastErr = fmt.Errorf("%s: %w", svc.Name(), err)
		case res == nil:
			lastErr = fmt.Errorf("%s: no result", svc.Name())
		case res.Error != "":
			lastErr = fmt.Errorf("%s: %s", svc.Name(), res.Error)
		default:
			if o.validator != nil {
				if valid, verr := o.validator.IsValid(res.TranslatedText, req.TargetLang); !valid {
					if attempt < o.config.MaxAttempts {
						lastErr = fmt.Errorf("%s: %w", svc.Name(), verr)
						o.logger.Debug().Str("service", svc.Name()).Int("attempt", attempt).Err(verr).Msg("validation failed, retrying")
						continue
					}
					o.logger.Warn().Str("service", svc.Name()).Err(verr).Msg("validation failed on final attempt, accepting result")
				}
			}
			return res, nil
		}

		o.logger.Debug().Str("service", svc.Name()).Int("attempt", attempt).Err(lastErr).Msg("service attempt failed")
	}
	return nil, lastErr
}

// ExecuteWithFallback returns the highest-confidence successful result, or
// nil when every service failed. Ties go to the earlier service.
func (o *Orchestrator) ExecuteWithFallback(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) *translator.ServiceResult {
	result := o.Execute(ctx, cfg, req)
	return best(result.Results)
}

// Translate implements translator.Backend.
func (o *Orchestrator) Translate(ctx context.Context, text, sourceLang, targetLang, credential string) (string, error) {
	cfg := o.svcConfig
	if credential != "" {
		cfg.APIKey = credential
	}

	req := translator.TranslateRequest{Text: text, SourceLang: sourceLang, TargetLang: targetLang}
	var markers []string
	if o.protect {
		req.Text, markers = placeholder.Protect(text)
		if len(markers) > 0 {
			req.Instructions = placeholder.InstructionHint()
		}
	}

	result := o.Execute(ctx, cfg, req)
	if chosen := best(result.Results); chosen != nil {
		if len(markers) > 0 {
			return placeholder.Restore(chosen.TranslatedText, markers), nil
		}
		return chosen.TranslatedText, nil
	}
	if len(result.Errors) == 0 {
		return "", fmt.Errorf("%w: no services configured", translator.ErrBackendFailure)
	}
	return "", fmt.Errorf("%w: %w", translator.ErrBackendFailure, errors.Join(result.Errors...))
}

func best(results []translator.ServiceResult) *translator.ServiceResult {
	var chosen *translator.ServiceResult
	for i := range results {
		if chosen == nil || results[i].Confidence > chosen.Confidence {
			chosen = &results[i]
		}
	}
	return chosen
}
