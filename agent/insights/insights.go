// Package insights produces per-customer coaching notes and email drafts from
// a card in the pipeline.
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	promptx "github.com/tanpawarit/salesops-assistant/agent/prompt"
	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
	openrouterx "github.com/tanpawarit/salesops-assistant/pkg/openrouter"
)

const DefaultEmailType = "follow_up"

var emailTypePattern = regexp.MustCompile(`^[a-z][a-z_]{0,31}$`)

// Completer runs a single system+user completion.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type OpenAICompleter struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewOpenAICompleter returns a nil Completer when the client is nil, which
// the service treats as an unavailable model.
func NewOpenAICompleter(client *openaisdk.Client, cfg openrouterx.Config) Completer {
	if client == nil {
		return nil
	}
	c := &OpenAICompleter{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: float64(cfg.Temperature),
	}
	if cfg.MaxCompletionToken != nil {
		c.maxTokens = int64(*cfg.MaxCompletionToken)
	}
	return c
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	req := openaisdk.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(user),
		},
	}
	if c.maxTokens > 0 {
		req.MaxCompletionTokens = openaisdk.Int(c.maxTokens)
	}
	if c.temperature > 0 {
		req.Temperature = openaisdk.Float(c.temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", contractx.ErrMalformedResponse)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type Service struct {
	llm     Completer
	prompts promptx.PromptSet
	timeout time.Duration
}

func New(llm Completer, prompts promptx.PromptSet, timeout time.Duration) (*Service, error) {
	if err := prompts.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{llm: llm, prompts: prompts, timeout: timeout}, nil
}

type Insight struct {
	Status       string `json:"status"`
	CustomerID   int64  `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Insights     string `json:"insights"`
}

type EmailSuggestion struct {
	Status       string `json:"status"`
	CustomerName string `json:"customer_name"`
	EmailType    string `json:"email_type"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
}

func (s *Service) Insights(ctx context.Context, card cardsx.Card) (Insight, error) {
	text, err := s.complete(ctx, s.prompts.Insights, describeCard(card))
	if err != nil {
		return Insight{}, err
	}
	return Insight{
		Status:       "success",
		CustomerID:   card.ID,
		CustomerName: card.CustomerName,
		Insights:     text,
	}, nil
}

func (s *Service) EmailSuggestion(ctx context.Context, card cardsx.Card, emailType string) (EmailSuggestion, error) {
	emailType = strings.ToLower(strings.TrimSpace(emailType))
	if emailType == "" {
		emailType = DefaultEmailType
	}
	if !emailTypePattern.MatchString(emailType) {
		return EmailSuggestion{}, fmt.Errorf("%w: unsupported email type %q", contractx.ErrValidation, emailType)
	}

	user := fmt.Sprintf("Email type: %s\n\n%s", strings.ReplaceAll(emailType, "_", " "), describeCard(card))
	text, err := s.complete(ctx, s.prompts.EmailSuggestion, user)
	if err != nil {
		return EmailSuggestion{}, err
	}

	subject, body := parseDraft(text)
	return EmailSuggestion{
		Status:       "success",
		CustomerName: card.CustomerName,
		EmailType:    emailType,
		Subject:      subject,
		Body:         body,
	}, nil
}

func (s *Service) complete(ctx context.Context, system, user string) (string, error) {
	if s.llm == nil {
		return "", contractx.ErrAIUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.llm.Complete(ctx, system, user)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("insights completion failed")
		if errors.Is(err, contractx.ErrMalformedResponse) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", contractx.ErrAIUnavailable, err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", contractx.ErrMalformedResponse)
	}
	return text, nil
}

func describeCard(c cardsx.Card) string {
	var b strings.Builder
	line := func(label, v string) {
		if strings.TrimSpace(v) == "" {
			v = "unknown"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, v)
	}
	line("Customer", c.CustomerName)
	line("Company", c.Company)
	line("Email", c.Email)
	line("Status", string(c.Status))
	line("Priority", string(c.Priority))
	line("Assigned to", c.AssignedTo)
	line("Notes", c.Notes)
	line("Last contact", dateOr(c.LastContactDate, "never"))
	line("Next follow-up", dateOr(c.NextFollowupDate, "not scheduled"))
	return strings.TrimSpace(b.String())
}

func dateOr(t *time.Time, fallback string) string {
	if t == nil || t.IsZero() {
		return fallback
	}
	return t.Format("2006-01-02")
}

// parseDraft reads {"subject","body"} from the completion, tolerating code
// fences. Unparseable text becomes the body.
func parseDraft(text string) (string, string) {
	raw := strings.TrimSpace(text)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var draft struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(raw), &draft); err != nil || strings.TrimSpace(draft.Body) == "" {
		return "", strings.TrimSpace(text)
	}
	return strings.TrimSpace(draft.Subject), strings.TrimSpace(draft.Body)
}
