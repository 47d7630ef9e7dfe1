// Command carcrm is the CarCRM command line interface.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/carcrm-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/carcrm-cli/internal/adapters/driven/gdrive"
	"github.com/custodia-labs/carcrm-cli/internal/adapters/driven/oauth"
	"github.com/custodia-labs/carcrm-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/carcrm-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
	"github.com/custodia-labs/carcrm-cli/internal/core/services"
	"github.com/custodia-labs/carcrm-cli/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to resolve home directory: %w", err)
	}
	baseDir := filepath.Join(home, ".carcrm")

	config, err := file.NewConfigStore(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open config store: %w", err)
	}

	store, err := sqlite.NewStore(filepath.Join(baseDir, "data"))
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer store.Close()

	clock := clockwork.NewRealClock()
	creds := services.NewCredentialService(store.CredentialStore(), clock)

	clientID := config.GetString(driven.ConfigKeyClientID)
	clientSecret := config.GetString(driven.ConfigKeyClientSecret)

	consent := oauth.NewProvider(oauth.ConsentConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})

	// The remote client authenticates through the auth manager, which in
	// turn probes token health through the remote client. Break the cycle
	// with a late-bound token provider.
	var auth *services.AuthManager
	ts := gdrive.NewTokenSource(ctx, func(ctx context.Context) (string, error) {
		return auth.Token(ctx)
	})
	remote, err := gdrive.NewClient(ctx, ts)
	if err != nil {
		return fmt.Errorf("failed to create drive client: %w", err)
	}

	auth = services.NewAuthManager(services.AuthConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}, creds, consent, remote, clock)

	resolver := services.NewResolver(remote, store.RemoteIDCache())
	engine := services.NewEngine(services.EngineConfig{
		RootFolderName: config.GetString(driven.ConfigKeyRootFolder),
	}, resolver, remote, clock)

	queue := services.NewQueue(services.QueueConfig{},
		store.QueueStore(), store.CustomerStore(), store.TemplateStore(),
		engine, auth, clock)

	// A missing OAuth client just means setup hasn't run yet; every
	// other initialise failure is worth surfacing.
	if err := auth.Initialize(ctx); err != nil && !errors.Is(err, domain.ErrAuthConfig) {
		logger.Warn("auth initialise failed: %v", err)
	}
	defer auth.Close()

	queue.Start(ctx)
	defer queue.Stop()

	cli.Configure(cli.Services{
		Auth:      auth,
		Sync:      engine,
		Queue:     queue,
		Customers: store.CustomerStore(),
		Templates: store.TemplateStore(),
		Config:    config,
	})
	return cli.Execute()
}
