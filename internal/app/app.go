// Package app assembles the chat service from configuration. Both binaries
// share it.
package app

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/homewiz/lease-concierge/backend/internal/config"
	"github.com/homewiz/lease-concierge/backend/internal/model/onboarding"
	"github.com/homewiz/lease-concierge/backend/internal/service/ai"
	"github.com/homewiz/lease-concierge/backend/internal/service/chat"
	"github.com/homewiz/lease-concierge/backend/internal/service/dispatch"
	"github.com/homewiz/lease-concierge/backend/internal/service/gateway"
)

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.Intn(n) }

// Options override pieces of the default wiring.
type Options struct {
	Rand      onboarding.RandSource
	Gateway   []gateway.Option
	Assistant chat.Assistant
}

// LoadCatalog returns the catalog named by cfg, or the built-in one.
func LoadCatalog(cfg config.CatalogConfig) (onboarding.Catalog, error) {
	if cfg.StepsFile == "" {
		return onboarding.DefaultCatalog(), nil
	}
	catalog, err := onboarding.LoadCatalog(cfg.StepsFile)
	if err != nil {
		return onboarding.Catalog{}, fmt.Errorf("load steps file: %w", err)
	}
	return catalog, nil
}

// NewChatService builds the dispatcher, gateway and assistant described by
// cfg and returns the service that owns them.
func NewChatService(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*chat.Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := LoadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	rnd := opts.Rand
	if rnd == nil {
		rnd = globalRand{}
	}

	gwOpts := append([]gateway.Option{gateway.WithLogger(logger.Named("gateway"))}, opts.Gateway...)
	client := gateway.New(cfg.Gateway.Endpoint, gwOpts...)

	assistant := opts.Assistant
	if assistant == nil {
		assistant = client
		if cfg.Assistant.UsesArk() {
			svc, err := ai.NewService(ctx, cfg.Assistant, logger.Named("ai"))
			if err != nil {
				return nil, fmt.Errorf("init ark assistant: %w", err)
			}
			assistant = svc
		}
	}

	logger.Info("chat service ready",
		zap.Int("steps", catalog.Len()),
		zap.String("endpoint", client.Endpoint()),
		zap.String("assistant", cfg.Assistant.Backend))

	return chat.NewService(dispatch.New(catalog, rnd), client, assistant, logger.Named("chat")), nil
}
