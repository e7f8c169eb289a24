package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	nodex "github.com/tanpawarit/salesops-assistant/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/salesops-assistant/agent/state"
	toolx "github.com/tanpawarit/salesops-assistant/agent/tool"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

type TurnStatus = nodex.TurnStatus

const (
	StatusSuccess = nodex.StatusSuccess
	StatusError   = nodex.StatusError

	ApologyReply        = nodex.ApologyReply
	EmptyUtteranceReply = nodex.EmptyUtteranceReply

	DefaultHistoryWindow = 10
	DefaultToolTimeout   = 20 * time.Second
)

type Config struct {
	HistoryWindow int           `envconfig:"HISTORY_WINDOW" split_words:"true" default:"10"`
	ToolTimeout   time.Duration `envconfig:"TOOL_TIMEOUT" split_words:"true" default:"20s"`
}

type Orchestrator struct {
	model    contractx.LanguageModel
	tools    *toolx.Registry
	recorder nodex.Recorder

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	window      int
	toolTimeout time.Duration

	now func() time.Time
}

type Option func(*Orchestrator)

func WithRecorder(rec nodex.Recorder) Option {
	return func(o *Orchestrator) {
		if rec != nil {
			o.recorder = rec
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(
	model contractx.LanguageModel,
	tools *toolx.Registry,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if model == nil {
		return nil, errors.New("language model is required")
	}
	if tools == nil {
		return nil, errors.New("tool registry is required")
	}

	window := cfg.HistoryWindow
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	timeout := cfg.ToolTimeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}

	o := &Orchestrator{
		model:       model,
		tools:       tools,
		recorder:    nodex.NopRecorder{},
		window:      window,
		toolTimeout: timeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

type TurnResult struct {
	TurnID      string
	Status      TurnStatus
	Reply       string
	Invocations []contractx.ToolInvocation
	Results     []contractx.ToolResult
	History     statex.History
}

// HandleTurn runs one Decide, Execute, Synthesize pass. Failures surface as
// the reply and status; the returned error is only set when the turn graph
// itself could not run.
func (o *Orchestrator) HandleTurn(ctx context.Context, utterance string, history statex.History) (TurnResult, error) {
	started := time.Now()
	turnID := uuid.NewString()

	logger := logx.Ctx(ctx).With().Str("turn_id", turnID).Logger()
	ctx = logger.WithContext(ctx)

	window := history.Window(o.window)
	ctx = contractx.WithTurnScope(ctx, contractx.NewTurnScope(utterance, window))

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		TurnID:    turnID,
		Utterance: utterance,
		Window:    window,
	})
	if err != nil {
		logger.Error().Err(err).Msg("turn graph failed")
		out = nodex.GraphOutput{Status: StatusError, Reply: ApologyReply, Err: err}
	}

	result := TurnResult{
		TurnID:      turnID,
		Status:      out.Status,
		Reply:       out.Reply,
		Invocations: out.Invocations,
		Results:     out.Results,
		History:     history,
	}
	if strings.TrimSpace(utterance) != "" {
		now := o.now()
		result.History = history.Append(
			statex.UserTurn(utterance, now),
			statex.AssistantTurn(out.Reply, out.Invocations, out.Results, now),
		)
	}

	o.recorder.ObserveTurn(string(result.Status), time.Since(started))
	logger.Info().
		Str("status", string(result.Status)).
		Int("invocations", len(result.Invocations)).
		Dur("elapsed", time.Since(started)).
		Msg("turn finished")

	return result, err
}
