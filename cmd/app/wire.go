//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/greennepal/agrihealth/internal/bootstrap"
	"github.com/greennepal/agrihealth/internal/domain/assistant"
	"github.com/greennepal/agrihealth/internal/domain/auth"
	"github.com/greennepal/agrihealth/internal/domain/dashboard"
	"github.com/greennepal/agrihealth/internal/domain/diagnosis"
	"github.com/greennepal/agrihealth/internal/domain/planner"
	"github.com/greennepal/agrihealth/internal/infra/config"
	"github.com/greennepal/agrihealth/internal/infra/llm/gemini"
	"github.com/greennepal/agrihealth/internal/infra/weather/openweather"
	httpiface "github.com/greennepal/agrihealth/internal/interface/http"
	"github.com/greennepal/agrihealth/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideGeminiClient,
		provideDiagnosisConfig,
		providePlannerConfig,
		provideAssistantConfig,
		provideAuthConfig,
		provideDashboardConfig,
		provideWeatherClient,
		provideSnapshotStore,
		provideUserRepository,
		provideFarmStores,
		provideTaskService,
		provideHistoryService,
		provideImageStorage,
		diagnosis.NewService,
		planner.NewService,
		assistant.NewService,
		auth.NewService,
		dashboard.NewService,
		wire.Bind(new(diagnosis.GenerateClient), new(*gemini.Client)),
		wire.Bind(new(planner.GenerateClient), new(*gemini.Client)),
		wire.Bind(new(assistant.GenerateClient), new(*gemini.Client)),
		wire.Bind(new(dashboard.WeatherClient), new(*openweather.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
