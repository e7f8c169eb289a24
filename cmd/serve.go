package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tanpawarit/salesops-assistant/pkg/followup"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
	"github.com/tanpawarit/salesops-assistant/pkg/qstash"
	"github.com/tanpawarit/salesops-assistant/server"
)

var seedOnServe bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	Long: `Run the HTTP API: chat (POST /chat/message, GET /chat/ws), customer
insights, card CRUD under /cards, health and Prometheus metrics. The
follow-up reminder job runs alongside when FOLLOWUP_ENABLED is true and
publishes reminders through QStash when QSTASH_TOKEN and QSTASH_DESTINATION
are set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&seedOnServe, "seed", false, "insert the sample cards when the card table is empty")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logx.Component("serve")

	s, err := loadSettings()
	if err != nil {
		return err
	}
	rt, err := newRuntime(ctx, s)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn().Err(err).Msg("close resources")
		}
	}()

	if seedOnServe {
		if _, err := seedCards(ctx, rt, ""); err != nil {
			return err
		}
	}

	turns, err := rt.orchestrator(ctx)
	if err != nil {
		return err
	}
	advisor, err := rt.advisor()
	if err != nil {
		return err
	}
	history, err := rt.historyStore()
	if err != nil {
		return err
	}

	deps := server.Deps{
		Turns:   turns,
		History: history,
		Cards:   rt.cards,
		Advisor: advisor,
	}
	if s.Metrics.Enabled {
		deps.Metrics = rt.metrics.Handler()
		deps.MetricsPath = s.Metrics.Path
	}

	if s.FollowUp.Enabled {
		opts := []followup.Option{followup.WithGauge(rt.metrics)}
		if s.QStash.Configured() {
			publisher, err := qstash.NewClient(s.QStash)
			if err != nil {
				return err
			}
			opts = append(opts, followup.WithPublisher(publisher))
		} else {
			log.Info().Msg("QSTASH_TOKEN or QSTASH_DESTINATION not set; follow-up reminders are only logged")
		}
		scheduler, err := followup.New(s.FollowUp, rt.cards, opts...)
		if err != nil {
			return err
		}
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
	}

	srv, err := server.New(s.Server, deps)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
