// Package cli implements the carcrm command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driving"
	"github.com/custodia-labs/carcrm-cli/internal/logger"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// Services the commands dispatch to. Injected by Configure before
// Execute; commands guard against nil so a partially wired binary
// fails with a clear message instead of a panic.
var (
	authManager   driving.AuthManager
	syncEngine    driving.SyncEngine
	writeQueue    driving.WriteQueue
	customerStore driven.CustomerStore
	templateStore driven.TemplateStore
	configStore   driven.ConfigStore
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "carcrm",
	Short: "Customer records with Google Drive sync for car sales consultants",
	Long: `CarCRM keeps a consultant's customer records, form templates and
excel templates on the local machine and synchronises them with a
shared Google Drive folder.

All writes land locally first and are pushed to Drive in the
background, so the CLI stays usable offline.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

// Services bundles everything the CLI commands need.
type Services struct {
	Auth      driving.AuthManager
	Sync      driving.SyncEngine
	Queue     driving.WriteQueue
	Customers driven.CustomerStore
	Templates driven.TemplateStore
	Config    driven.ConfigStore
}

// Configure injects the services the commands dispatch to.
// Must be called before Execute.
func Configure(s Services) {
	authManager = s.Auth
	syncEngine = s.Sync
	writeQueue = s.Queue
	customerStore = s.Customers
	templateStore = s.Templates
	configStore = s.Config
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(
		&verboseFlag, "verbose", "v", false, "Enable verbose output")
}
