package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/tanpawarit/salesops-assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/salesops-assistant/agent/capability/calendar"
	"github.com/tanpawarit/salesops-assistant/agent/capability/crm"
	"github.com/tanpawarit/salesops-assistant/agent/capability/email"
	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	"github.com/tanpawarit/salesops-assistant/agent/insights"
	"github.com/tanpawarit/salesops-assistant/agent/llm"
	promptx "github.com/tanpawarit/salesops-assistant/agent/prompt"
	statex "github.com/tanpawarit/salesops-assistant/agent/state"
	toolx "github.com/tanpawarit/salesops-assistant/agent/tool"
	"github.com/tanpawarit/salesops-assistant/pkg/caldav"
	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
	configx "github.com/tanpawarit/salesops-assistant/pkg/config"
	"github.com/tanpawarit/salesops-assistant/pkg/gmail"
	"github.com/tanpawarit/salesops-assistant/pkg/hubspot"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
	"github.com/tanpawarit/salesops-assistant/pkg/metrics"
	openrouterx "github.com/tanpawarit/salesops-assistant/pkg/openrouter"
)

// runtime is everything a command needs, built once from settings.
type runtime struct {
	settings *settings
	prompts  promptx.PromptSet

	cards    *cardsx.Store
	registry *toolx.Registry
	metrics  *metrics.Recorder

	closers []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

func newRuntime(ctx context.Context, s *settings) (*runtime, error) {
	rt := &runtime{settings: s, prompts: promptx.LoadPromptSet(), metrics: metrics.New()}
	if err := rt.prompts.Validate(); err != nil {
		return nil, err
	}

	if err := rt.openCards(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	if err := rt.buildRegistry(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

func (r *runtime) openCards(ctx context.Context) error {
	db, err := cardsx.Open(r.settings.Database)
	if err != nil {
		return err
	}
	r.closers = append(r.closers, db.Close)

	r.cards = cardsx.NewStore(db)
	if err := r.cards.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate card store: %w", err)
	}
	return nil
}

func (r *runtime) buildRegistry(ctx context.Context) error {
	log := logx.Component("wire")
	s := r.settings

	var calendarClient contractx.CalendarClient = caldav.Unconfigured{}
	if s.CalDAV.Configured() {
		c, err := caldav.NewClient(s.CalDAV, nil)
		if err != nil {
			return err
		}
		calendarClient = c
	} else {
		log.Warn().Msg("CALDAV_URL not set; calendar tools will report a dependency error")
	}

	var crmClient contractx.CrmClient = hubspot.Unconfigured{}
	if s.HubSpot.Configured() {
		c, err := hubspot.NewClient(s.HubSpot)
		if err != nil {
			return err
		}
		crmClient = c
	} else {
		log.Warn().Msg("HUBSPOT_ACCESS_TOKEN not set; CRM tools will report a dependency error")
	}

	var mailer contractx.MailClient = gmail.DryRun{}
	if s.Gmail.Configured() {
		c, err := gmail.NewClient(ctx, s.Gmail)
		if err != nil {
			return err
		}
		mailer = c
	} else {
		log.Warn().Msg("gmail credentials not set; email is logged instead of sent")
	}

	calendarCap, err := calendar.New(calendarClient, s.Calendar)
	if err != nil {
		return err
	}
	crmCap, err := crm.New(crmClient, s.Calendar.Timeout)
	if err != nil {
		return err
	}
	emailCap, err := email.New(mailer, crmClient, r.cards, s.Calendar.Timeout)
	if err != nil {
		return err
	}

	reg := toolx.NewRegistry()
	for _, register := range []func(*toolx.Registry) error{
		calendarCap.Register,
		crmCap.Register,
		emailCap.Register,
	} {
		if err := register(reg); err != nil {
			return err
		}
	}
	r.registry = reg
	log.Info().Int("tools", reg.Len()).Msg("tool registry ready")
	return nil
}

// model returns the assistant's language model, or one that always reports
// the AI service as unavailable when OpenRouter is not configured.
func (r *runtime) model(ctx context.Context) contractx.LanguageModel {
	log := logx.Component("wire")
	cfg := r.settings.LLM
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("assistant model unavailable")
		return llm.Unavailable{Reason: err}
	}

	orCfg := cfg.OpenRouterFor(llm.RoleAssistant)
	chat, err := orCfg.New(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("assistant model unavailable")
		return llm.Unavailable{Reason: err}
	}

	budget, err := llm.NewTokenBudget(r.settings.App.TokenBudget, orCfg.Model)
	if err != nil {
		log.Warn().Err(err).Msg("token budget disabled")
		budget = nil
	}
	m, err := llm.NewToolModel(chat, r.prompts.Assistant, llm.WithTokenBudget(budget))
	if err != nil {
		return llm.Unavailable{Reason: err}
	}
	log.Info().Str("model", orCfg.Model).Msg("assistant model ready")
	return m
}

func (r *runtime) orchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	return orchestrator.New(r.model(ctx), r.registry, r.settings.Orchestrator,
		orchestrator.WithRecorder(r.metrics))
}

func (r *runtime) advisor() (*insights.Service, error) {
	orCfg := r.settings.LLM.OpenRouterFor(llm.RoleInsights)
	client := openrouterx.NewClient(orCfg)
	return insights.New(insights.NewOpenAICompleter(client, orCfg), r.prompts, r.settings.App.InsightsTimeout)
}

func (r *runtime) historyStore() (statex.Store, error) {
	switch r.settings.App.HistoryStore {
	case historyRedis:
		conf, err := configx.New[statex.RedisConfig]("REDIS")
		if err != nil {
			return nil, err
		}
		store, err := statex.NewRedisStore(*conf)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, store.Close)
		return store, nil
	case historyUpstash:
		conf, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, err
		}
		return statex.NewUpstashRedisStore(*conf)
	default:
		return statex.NewMemoryStore(), nil
	}
}
