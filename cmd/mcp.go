package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/salesops-assistant/server"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant's tools over MCP on stdio",
	Long: `Serve every calendar, CRM and email tool as an MCP tool on stdin and
stdout, for use from an MCP client. Logs go to stderr. Addresses passed by
the client are treated as given by the user.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// stdout carries the protocol.
		if err := initLogger(os.Stderr); err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := loadSettings()
		if err != nil {
			return err
		}
		rt, err := newRuntime(ctx, s)
		if err != nil {
			return err
		}
		defer rt.Close()

		mcpServer := server.NewMCPServer(rt.registry, s.Orchestrator.ToolTimeout, Version)
		return server.RunMCPStdio(ctx, mcpServer)
	},
}
