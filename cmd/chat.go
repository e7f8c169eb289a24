package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	statex "github.com/tanpawarit/salesops-assistant/agent/state"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Start an interactive chat. Each line is one turn; the conversation is
kept in memory for the session. Type "exit" or press Ctrl-D to leave.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		turns, err := rt.orchestrator(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		history := statex.NewHistory(s.Server.HistoryCapacity)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "you> ")
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "exit", "quit":
				return nil
			}

			result, err := turns.HandleTurn(ctx, line, history)
			if err != nil && ctx.Err() != nil {
				return nil
			}
			history = result.History
			fmt.Fprintf(out, "assistant> %s\n", result.Reply)
		}
	},
}
