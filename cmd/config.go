package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/tanpawarit/salesops-assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/salesops-assistant/agent/capability/calendar"
	"github.com/tanpawarit/salesops-assistant/agent/llm"
	"github.com/tanpawarit/salesops-assistant/server"
	"github.com/tanpawarit/salesops-assistant/pkg/caldav"
	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
	configx "github.com/tanpawarit/salesops-assistant/pkg/config"
	"github.com/tanpawarit/salesops-assistant/pkg/followup"
	"github.com/tanpawarit/salesops-assistant/pkg/gmail"
	"github.com/tanpawarit/salesops-assistant/pkg/hubspot"
	"github.com/tanpawarit/salesops-assistant/pkg/metrics"
	"github.com/tanpawarit/salesops-assistant/pkg/qstash"
)

const (
	historyMemory  = "memory"
	historyRedis   = "redis"
	historyUpstash = "upstash"
)

// AppConfig holds the APP_* settings that belong to no single package.
type AppConfig struct {
	HistoryStore    string        `envconfig:"HISTORY_STORE" split_words:"true" default:"memory"`
	TokenBudget     int           `envconfig:"TOKEN_BUDGET" split_words:"true" default:"0"`
	InsightsTimeout time.Duration `envconfig:"INSIGHTS_TIMEOUT" split_words:"true" default:"30s"`
}

type settings struct {
	App          AppConfig
	LLM          llm.Config
	Orchestrator orchestrator.Config
	Server       server.Config
	Calendar     calendar.Config
	Database     cardsx.Config
	HubSpot      hubspot.Config
	Gmail        gmail.Config
	CalDAV       caldav.Config
	FollowUp     followup.Config
	QStash       qstash.Config
	Metrics      metrics.Config
}

func loadSettings() (*settings, error) {
	var s settings
	steps := []func() error{
		func() error { return into("APP", &s.App) },
		func() error { return into("OPENROUTER", &s.LLM) },
		func() error { return into("APP", &s.Orchestrator) },
		func() error { return into("APP", &s.Server) },
		func() error { return into("APP", &s.Calendar) },
		func() error { return into("DATABASE", &s.Database) },
		func() error { return into("HUBSPOT", &s.HubSpot) },
		func() error { return into("GMAIL", &s.Gmail) },
		func() error { return into("CALDAV", &s.CalDAV) },
		func() error { return into("FOLLOWUP", &s.FollowUp) },
		func() error { return into("QSTASH", &s.QStash) },
		func() error { return into("METRICS", &s.Metrics) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	s.App.HistoryStore = strings.ToLower(strings.TrimSpace(s.App.HistoryStore))
	switch s.App.HistoryStore {
	case historyMemory, historyRedis, historyUpstash:
	default:
		return nil, fmt.Errorf("unknown APP_HISTORY_STORE %q (want memory, redis or upstash)", s.App.HistoryStore)
	}
	return &s, nil
}

func into[T any](prefix string, dst *T) error {
	conf, err := configx.New[T](prefix)
	if err != nil {
		return err
	}
	*dst = *conf
	return nil
}
