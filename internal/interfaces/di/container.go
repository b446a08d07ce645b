package di

import (
	"fmt"

	"lexiscan.ai/cli/internal/application/ports"
	"lexiscan.ai/cli/internal/application/services"
	"lexiscan.ai/cli/internal/core/entitlement"
	"lexiscan.ai/cli/internal/infrastructure/api"
	"lexiscan.ai/cli/internal/infrastructure/cache"
	"lexiscan.ai/cli/internal/infrastructure/config"
	"lexiscan.ai/cli/internal/infrastructure/logging"
	"lexiscan.ai/cli/internal/infrastructure/storage"
	"lexiscan.ai/cli/internal/interfaces/cli"
)

// Container holds all application dependencies
type Container struct {
	// Configuration
	Config *config.Config

	// Infrastructure
	APIGateway *api.LexiscanAPIGateway
	Store      *storage.FileStore
	GuestStore *storage.GuestStore
	Analyses   *cache.AnalysisCache
	Logger     ports.LoggingGateway

	// Application services
	UsageService       *services.UsageService
	OfferService       *services.OfferService
	MigrationService   *services.MigrationService
	EntitlementService *services.EntitlementService
	ChatService        *services.ChatService

	// CLI
	CLIContainer *cli.CLIContainer
}

// NewContainer creates and configures the dependency injection container
func NewContainer() (*Container, error) {
	container := &Container{
		Logger: logging.NewConsoleLogger(),
	}

	if err := container.initializeComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return container, nil
}

// initializeComponents initializes all components with proper dependencies
func (c *Container) initializeComponents() error {
	appConfig, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = appConfig

	if appConfig.Debug {
		c.Logger.SetLogLevel(ports.LogLevelDebug)
	}

	storePath := appConfig.StorePath
	if storePath == "" {
		storePath, err = storage.DefaultStorePath()
		if err != nil {
			return err
		}
	}
	c.Store, err = storage.NewFileStore(storePath)
	if err != nil {
		return err
	}
	c.GuestStore = storage.NewGuestStore(c.Store, c.Logger)
	c.Analyses = cache.NewAnalysisCacheWithLimit(c.Store, c.Logger, appConfig.CacheLimit)

	c.APIGateway = api.NewLexiscanAPIGateway(appConfig.APIEndpoint, appConfig.APIKey, c.Logger)

	c.UsageService = services.NewUsageService(c.APIGateway, c.GuestStore, c.Logger)
	c.OfferService = services.NewOfferService(c.APIGateway, c.GuestStore, c.Logger)
	c.MigrationService = services.NewMigrationService(c.APIGateway, c.GuestStore, c.Logger)
	c.EntitlementService = services.NewEntitlementService(
		c.UsageService,
		c.OfferService,
		c.MigrationService,
		c.Analyses,
		c.APIGateway,
		c.GuestStore,
		c.Logger,
		c.paywall,
	)
	c.ChatService = services.NewChatService(c.APIGateway, c.GuestStore, c.Logger)

	c.CLIContainer = &cli.CLIContainer{
		Entitlements: c.EntitlementService,
		Chats:        c.ChatService,
		Gateway:      c.APIGateway,
		Config:       c.Config,
		Logger:       c.Logger,
	}
	return nil
}

// paywall is invoked when a metered feature hits its limit.
func (c *Container) paywall(f entitlement.Feature) {
	c.Logger.Log(ports.LogLevelInfo, "Feature limit reached", map[string]interface{}{
		"feature": string(f),
	})
}

// GetCLIContainer returns the CLI container for command execution
func (c *Container) GetCLIContainer() *cli.CLIContainer {
	return c.CLIContainer
}
