//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/config"
	"github.com/alumunity/messaging-api/internal/domain"
	"github.com/alumunity/messaging-api/internal/infrastructure"
	"github.com/alumunity/messaging-api/internal/interfaces"
)

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
) (*Application, error) {
	wire.Build(
		infrastructure.InfrastructureProvider,
		domain.ServiceProvider,
		interfaces.InterfacesProvider,
		NewApplication,
	)
	return nil, nil
}
