/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/valpere/adaptran/internal/cache"
	"github.com/valpere/adaptran/internal/chunker"
	"github.com/valpere/adaptran/internal/config"
	"github.com/valpere/adaptran/internal/controller"
	"github.com/valpere/adaptran/internal/detector"
	"github.com/valpere/adaptran/internal/optimizer"
	"github.com/valpere/adaptran/internal/orchestrator"
	"github.com/valpere/adaptran/internal/quality"
	"github.com/valpere/adaptran/internal/store"
	"github.com/valpere/adaptran/internal/translator"
	"github.com/valpere/adaptran/internal/validator"
)

var (
	defaultOllamaModels = []string{
		"gemma2:27b", "aya:35b", "mixtral:8x7b", "qwen3:14b",
		"gemma3:12b-it-qat", "phi4:14b-q4_K_M", "llama3.1:8b", "mistral:7b",
	}
	defaultOpenRouterModels = []string{
		"google/gemini-2.5-flash-preview:free",
		"qwen/qwen2.5-72b-instruct:free",
		"mistralai/mistral-nemo:free",
		"meta-llama/llama-3.1-8b-instruct:free",
	}
)

// buildServices constructs the translation services named in sc.Names.
// Unknown names are skipped with a warning.
func buildServices(sc config.ServicesConfig) ([]translator.TranslationService, error) {
	ollamaModels := sc.OllamaModels
	if len(ollamaModels) == 0 {
		ollamaModels = defaultOllamaModels
	}
	openrouterModels := sc.OpenRouterModels
	if len(openrouterModels) == 0 {
		openrouterModels = defaultOpenRouterModels
	}

	var list []translator.TranslationService

	for _, name := range sc.Names {
		switch name {
		case "google":
			list = append(list, translator.NewGoogleService())
		case "systran":
			list = append(list, translator.NewSystranService(sc.SystranKey))
		case "mymemory":
			list = append(list, translator.NewMyMemoryService(sc.MyMemoryEmail))
		case "ollama":
			list = append(list, translator.NewOllamaTranslator(sc.OllamaURL, ollamaModels))
		case "openrouter":
			list = append(list, translator.NewOpenRouterService(sc.OpenRouterKey, "", openrouterModels))
		default:
			fmt.Fprintf(os.Stderr, "Unknown service: %s, skipping\n", name)
		}
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("no valid services configured")
	}
	return list, nil
}

// buildBackend wraps the configured services as the controller's translation
// backend. A single service without retries is called directly; anything else
// goes through the orchestrator.
func buildBackend(sc config.ServicesConfig, val *validator.Validator, log zerolog.Logger) (translator.Backend, error) {
	services, err := buildServices(sc)
	if err != nil {
		return nil, err
	}

	svcCfg := translator.ServiceConfig{
		Credentials: sc.Credentials,
		ProjectID:   sc.ProjectID,
		Timeout:     sc.Timeout,
	}

	if len(services) == 1 && sc.MaxAttempts <= 1 {
		b := translator.NewServiceBackend(services[0], svcCfg)
		b.ProtectMarkup = sc.ProtectMarkup
		return b, nil
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithServiceConfig(svcCfg),
		orchestrator.WithValidator(val),
	}
	if sc.ProtectMarkup {
		opts = append(opts, orchestrator.WithMarkupProtection())
	}
	return orchestrator.New(services, orchestrator.OrchestratorConfig{
		Timeout:     sc.Timeout,
		MaxAttempts: sc.MaxAttempts,
		RetryDelay:  sc.RetryDelay,
	}, opts...), nil
}

// openCache returns the configured cache, or nil for the "none" backend.
func openCache(cc config.CacheConfig, log zerolog.Logger) (*cache.Manager, error) {
	var backing cache.Store

	switch cc.Backend {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		backing = cache.NewMemoryStore(cc.MaxEntries)
	case config.CacheRedis:
		rs, err := cache.NewRedisStore(cc.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis cache: %w", err)
		}
		backing = rs
	case config.CacheSQLite:
		db, err := store.New(cc.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		backing = db
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cc.Backend)
	}

	return cache.NewManager(backing, cache.WithLogger(log)), nil
}

// buildController wires the full pipeline from c. The returned close function
// releases the cache.
func buildController(c *config.Config, log zerolog.Logger) (*controller.Controller, func() error, error) {
	det := detector.New()
	val := validator.NewWithDetector(det)

	backend, err := buildBackend(c.Services, val, log)
	if err != nil {
		return nil, nil, err
	}

	ch := chunker.New(c.Chunker)
	engine := quality.NewEngine(c.Quality, quality.WithLanguageScorer(val))
	opt := optimizer.New(backend, ch, engine, c.Optimizer, log)

	opts := []controller.Option{
		controller.WithConfig(c.Controller),
		controller.WithChunker(ch),
		controller.WithAssessor(engine),
		controller.WithOptimizer(opt),
		controller.WithLogger(log),
	}

	closeFn := func() error { return nil }
	mgr, err := openCache(c.Cache, log)
	if err != nil {
		return nil, nil, err
	}
	if mgr != nil {
		opts = append(opts, controller.WithCache(mgr))
		closeFn = mgr.Close
	}

	return controller.New(backend, opts...), closeFn, nil
}
