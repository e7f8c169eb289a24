package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample customer cards",
	Long: `Insert customer cards into an empty card table. Without --file the
built-in sample set is used. Nothing is inserted when cards already exist.`,
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

		n, err := seedCards(ctx, rt, seedFile)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "card table already populated; nothing inserted")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "inserted %d cards\n", n)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML file with a top-level cards list")
}

func seedCards(ctx context.Context, rt *runtime, path string) (int, error) {
	now := time.Now()
	var (
		cards []cardsx.Card
		err   error
	)
	if path == "" {
		cards, err = cardsx.SampleCards(now)
	} else {
		f, openErr := os.Open(path)
		if openErr != nil {
			return 0, fmt.Errorf("open seed file: %w", openErr)
		}
		defer f.Close()
		cards, err = cardsx.ParseSeed(f, now)
	}
	if err != nil {
		return 0, err
	}
	return rt.cards.Seed(ctx, cards)
}
