package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/grpweb/grpweb/internal/config"
	"github.com/grpweb/grpweb/internal/console"
	"github.com/grpweb/grpweb/internal/gateway"
	"github.com/grpweb/grpweb/internal/guard"
	"github.com/grpweb/grpweb/internal/logging"
	"github.com/grpweb/grpweb/internal/resource"
	"github.com/grpweb/grpweb/internal/session"
	"github.com/grpweb/grpweb/internal/widgets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	ephemeral bool

	// errReported marks failures the console already described to the user.
	errReported = errors.New("grpweb: command failed")
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "grpweb",
		Short:         "Terminal client for the grpweb dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd)
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "console",
			Short: "Start the interactive console",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConsole(cmd)
			},
		},
		newLoginCommand(),
		newLogoutCommand(),
		newWhoAmICommand(),
		newDashboardCommand(),
		newQuoteCommand(),
		newTokenCommand(),
		newResourceCommand(resourceView{
			short:  "Manage system messages",
			name:   resource.Messages.Name,
			fields: resource.Messages.Fields,
			route:  guard.RouteMessages,
		}),
		newResourceCommand(resourceView{
			short:  "Manage organizational positions",
			name:   resource.Positions.Name,
			fields: resource.Positions.Fields,
			route:  guard.RoutePositions,
		}),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("api-base-url", defaults.GetString("api.base_url"), "Base URL of the REST API")
	cmd.PersistentFlags().String("api-login-path", defaults.GetString("api.login_path"), "Path of the credential login endpoint")
	cmd.PersistentFlags().Duration("api-timeout", defaults.GetDuration("api.timeout"), "Request timeout (0 disables it)")
	cmd.PersistentFlags().String("session-file", defaults.GetString("session.file"), "Path of the persisted session")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep the session in memory only")

	bindFlag(cmd, "api.base_url", "api-base-url")
	bindFlag(cmd, "api.login_path", "api-login-path")
	bindFlag(cmd, "api.timeout", "api-timeout")
	bindFlag(cmd, "session.file", "session-file")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

type clientOptions struct {
	confirmer resource.Confirmer
}

type client struct {
	app    *console.App
	logger *zap.Logger
}

func (c *client) close() {
	_ = c.logger.Sync()
}

func newClient(cmd *cobra.Command, options clientOptions) (*client, error) {
	clientConfig, err := config.LoadClient(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewConsoleLogger(clientConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	var store session.Store
	if ephemeral {
		store = session.NewMemoryStore("")
	} else {
		fileStore, err := session.NewFileStore(clientConfig.SessionFile)
		if err != nil {
			return nil, err
		}
		store = fileStore
	}

	apiGateway, err := gateway.New(gateway.Config{
		BaseURL:    clientConfig.APIBaseURL,
		Store:      store,
		HTTPClient: &http.Client{Timeout: clientConfig.Timeout},
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	app, err := console.New(console.Config{
		In:        cmd.InOrStdin(),
		Out:       cmd.OutOrStdout(),
		Store:     store,
		Gateway:   apiGateway,
		LoginPath: clientConfig.LoginPath,
		Copier:    widgets.NewCopier(widgets.CopierConfig{Logger: logger}),
		Confirmer: options.confirmer,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("client configured",
		zap.String("api_base_url", clientConfig.APIBaseURL),
		zap.Bool("ephemeral", ephemeral))
	return &client{app: app, logger: logger}, nil
}

func runConsole(cmd *cobra.Command) error {
	c, err := newClient(cmd, clientOptions{})
	if err != nil {
		return err
	}
	defer c.close()
	return c.app.Run(cmd.Context())
}
