package translator

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/adaptran/internal/placeholder"
)

// ErrBackendFailure marks errors raised by a translation backend call.
var ErrBackendFailure = errors.New("translation backend failure")

// Backend maps text from one language to another. Latency and failure modes
// are implementation defined.
type Backend interface {
	Translate(ctx context.Context, text, sourceLang, targetLang, credential string) (string, error)
}

// BackendFunc adapts an ordinary function to Backend.
type BackendFunc func(ctx context.Context, text, sourceLang, targetLang, credential string) (string, error)

func (f BackendFunc) Translate(ctx context.Context, text, sourceLang, targetLang, credential string) (string, error) {
	return f(ctx, text, sourceLang, targetLang, credential)
}

// ServiceBackend exposes a single TranslationService as a Backend.
type ServiceBackend struct {
	Service TranslationService
	Config  ServiceConfig
	// ProtectMarkup replaces code and HTML with [PHn] markers before the call
	// and restores them afterwards.
	ProtectMarkup bool
}

func NewServiceBackend(svc TranslationService, cfg ServiceConfig) *ServiceBackend {
	return &ServiceBackend{Service: svc, Config: cfg}
}

// Translate calls the service once. A non-empty credential overrides the
// configured API key for this call.
func (b *ServiceBackend) Translate(ctx context.Context, text, sourceLang, targetLang, credential string) (string, error) {
	cfg := b.Config
	if credential != "" {
		cfg.APIKey = credential
	}

	req := TranslateRequest{Text: text, SourceLang: sourceLang, TargetLang: targetLang}
	var markers []string
	if b.ProtectMarkup {
		req.Text, markers = placeholder.Protect(text)
		if len(markers) > 0 {
			req.Instructions = placeholder.InstructionHint()
		}
	}

	res, err := b.Service.Translate(ctx, cfg, req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrBackendFailure, b.Service.Name(), err)
	}
	if res == nil {
		return "", fmt.Errorf("%w: %s: no result", ErrBackendFailure, b.Service.Name())
	}

	out := res.TranslatedText
	if len(markers) > 0 {
		out = placeholder.Restore(out, markers)
	}
	return out, nil
}

// TranslateChunks translates chunks through backend with at most concurrency
// calls in flight. The returned slice is in chunk order. The first failure
// cancels the remaining calls and is returned wrapped with ErrBackendFailure.
func TranslateChunks(ctx context.Context, backend Backend, chunks []string, sourceLang, targetLang, credential string, concurrency int) ([]string, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	out := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, chunk := range chunks {
		if chunk == "" {
			continue
		}
		g.Go(func() error {
			translated, err := backend.Translate(gctx, chunk, sourceLang, targetLang, credential)
			if err != nil {
				if errors.Is(err, ErrBackendFailure) {
					return fmt.Errorf("chunk %d: %w", i, err)
				}
				return fmt.Errorf("chunk %d: %w: %w", i, ErrBackendFailure, err)
			}
			out[i] = translated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
