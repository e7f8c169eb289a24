// Package cmd is the salesops command line: the HTTP server, the MCP stdio
// server, card seeding and a terminal chat.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/salesops-assistant/pkg/config"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var envFile string

var rootCmd = &cobra.Command{
	Use:   "salesops",
	Short: "Sales operations assistant",
	Long: `salesops runs the sales operations assistant: a chat agent that schedules
meetings, looks up CRM contacts and sends email on your behalf, next to a
customer pipeline board.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		configx.SetEnvFile(envFile)
		return initLogger(nil)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file (defaults to ./.env when present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI until it finishes or SIGINT/SIGTERM arrives.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func initLogger(out io.Writer) error {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		return err
	}
	conf.Output = out
	logx.Init(*conf)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}
