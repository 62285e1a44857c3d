// Command portfolio signs in to the portfolio API and makes authenticated
// requests with the stored session.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jrsteele09/portfolio-auth/client"
	"github.com/jrsteele09/portfolio-auth/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// clientFactory builds the client stack for one command invocation
type clientFactory func(ctx context.Context) (*client.Client, error)

type cli struct {
	newClient clientFactory
	verbose   bool
	timeout   time.Duration
}

func newRootCmd(newClient clientFactory) *cobra.Command {
	c := &cli{newClient: newClient}

	rootCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Portfolio API client",
		Long: `Sign in to the portfolio API and call it with the stored session.

Credentials are kept in the token store selected by TOKEN_STORE
(memory, file, redis or postgres) and refreshed automatically.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.WarnLevel
			if c.verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
				Level(level).With().Timestamp().Logger()
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(c.registerCmd())
	rootCmd.AddCommand(c.confirmCmd())
	rootCmd.AddCommand(c.loginCmd())
	rootCmd.AddCommand(c.logoutCmd())
	rootCmd.AddCommand(c.whoamiCmd())
	rootCmd.AddCommand(c.forgotPasswordCmd())
	rootCmd.AddCommand(c.resetPasswordCmd())
	rootCmd.AddCommand(c.getCmd())
	return rootCmd
}

func main() {
	cfg := config.New()
	newClient := func(ctx context.Context) (*client.Client, error) {
		return client.New(ctx, cfg, client.WithLogger(log.Logger))
	}
	if err := newRootCmd(newClient).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
