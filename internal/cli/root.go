// Package cli provides the command-line interface for cloudnav.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cloudnav/internal/config"
	"cloudnav/internal/domain"
	"cloudnav/internal/localconfig"
	"cloudnav/internal/logging"
	"cloudnav/internal/storeclient"
)

// app carries what every command needs after flags are parsed.
type app struct {
	configDir string
	serverURL string
	password  string
	addr      string

	cfg config.Config
	log *logrus.Logger
	out io.Writer
	in  io.Reader
}

// load reads the configuration and builds a logger writing to console.
func (a *app) load(console io.Writer) error {
	cfg, err := config.LoadConfig(a.configDir)
	if err != nil {
		return err
	}
	if a.serverURL != "" {
		cfg.Client.ServerURL = a.serverURL
	}
	if a.password != "" {
		cfg.Client.Password = a.password
	}
	if a.addr != "" {
		cfg.Server.Addr = a.addr
	}
	log, err := logging.NewWithOutput(cfg.Log, console)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) storeClient() *storeclient.Client {
	return storeclient.New(a.cfg.Client.ServerURL, domain.Credential(a.cfg.Client.Password), nil, a.log)
}

func (a *app) aiStore() (*localconfig.AIStore, error) {
	return localconfig.Open(a.cfg.Keyring, a.log)
}

// requireAuth fails before any mutating work when the server would reject the credential.
func requireAuth(ctx context.Context, client *storeclient.Client) error {
	if !client.Credential().Valid() {
		return reauth(storeclient.ErrUnauthorized)
	}
	if _, err := client.CheckAuth(ctx); err != nil {
		return reauth(err)
	}
	return nil
}

func reauth(err error) error {
	if errors.Is(err, storeclient.ErrUnauthorized) {
		return fmt.Errorf("%w (re-authenticate with --password)", err)
	}
	return err
}

// NewRootCmd creates the root command for cloudnav.
func NewRootCmd(version string) *cobra.Command {
	a := &app{out: os.Stdout, in: os.Stdin}

	rootCmd := &cobra.Command{
		Use:           "cloudnav",
		Short:         "Personal navigation dashboard server and toolbox",
		Long:          `CloudNav serves a password-gated bookmark dashboard API and ships client tools for settings, AI descriptions and the browser extension.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			a.in = cmd.InOrStdin()
			return a.load(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configDir, "config-dir", "./configs", "directory containing config.yaml")
	rootCmd.PersistentFlags().StringVar(&a.serverURL, "server", "", "server origin for client commands (overrides client.server_url)")
	rootCmd.PersistentFlags().StringVar(&a.password, "password", "", "password for client commands (overrides client.password)")

	rootCmd.AddCommand(
		newServeCmd(a),
		newSettingsCmd(a),
		newEnrichCmd(a),
		newExtensionCmd(a),
		newThemesCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			PersistentPreRunE: func(*cobra.Command, []string) error {
				return nil
			},
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "cloudnav %s\n", version)
			},
		},
	)
	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute(version string) int {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
