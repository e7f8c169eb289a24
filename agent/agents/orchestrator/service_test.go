package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tanpawarit/salesops-assistant/agent/capability/email"
	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	statex "github.com/tanpawarit/salesops-assistant/agent/state"
	toolx "github.com/tanpawarit/salesops-assistant/agent/tool"
	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
)

type fakeModel struct {
	proposal contractx.Proposal
	err      error
	calls    int
	lastReq  contractx.ModelRequest
	specs    []contractx.ToolSpec
}

func (f *fakeModel) ProposeActions(ctx context.Context, req contractx.ModelRequest, specs []contractx.ToolSpec) (contractx.Proposal, error) {
	f.calls++
	f.lastReq = req
	f.specs = specs
	if f.err != nil {
		return contractx.Proposal{}, f.err
	}
	return f.proposal, nil
}

type callLog struct {
	mu    sync.Mutex
	names []string
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

type fakeRecorder struct {
	tools []string
	turns []string
}

func (f *fakeRecorder) ObserveTool(tool, outcome string, _ time.Duration) {
	f.tools = append(f.tools, tool+":"+outcome)
}

func (f *fakeRecorder) ObserveTurn(status string, _ time.Duration) {
	f.turns = append(f.turns, status)
}

func slotsAction(calls *callLog) contractx.ActionFunc {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		calls.add("getAvailableSlots")
		return contractx.Success(contractx.AvailableSlots{
			Date:            args["date"].(string),
			DurationMinutes: 60,
			Slots:           []string{"09:00", "11:00"},
		}), nil
	}
}

func newTestRegistry(t *testing.T, calls *callLog) *toolx.Registry {
	t.Helper()

	reg := toolx.NewRegistry()
	reg.MustRegister(contractx.ToolSpec{
		Name:   "getAvailableSlots",
		Params: []contractx.ParamSpec{{Name: "date", Type: contractx.ParamString, Required: true}},
	}, slotsAction(calls))
	reg.MustRegister(contractx.ToolSpec{Name: "sendPersonalizedEmail"},
		contractx.ActionFunc(func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			calls.add("sendPersonalizedEmail")
			return contractx.ToolResult{}, errors.New("smtp connection reset")
		}),
	)
	reg.MustRegister(contractx.ToolSpec{Name: "explode"},
		contractx.ActionFunc(func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			calls.add("explode")
			panic("nil map write")
		}),
	)
	reg.MustRegister(contractx.ToolSpec{Name: "hang"},
		contractx.ActionFunc(func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			calls.add("hang")
			time.Sleep(200 * time.Millisecond)
			return contractx.Success(contractx.NoteCreated{NoteID: "late"}), nil
		}),
	)
	return reg
}

func newTestOrchestrator(t *testing.T, model contractx.LanguageModel, reg *toolx.Registry, opts ...Option) *Orchestrator {
	t.Helper()

	opts = append([]Option{WithClock(func() time.Time {
		return time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	})}, opts...)
	o, err := New(model, reg, Config{ToolTimeout: 50 * time.Millisecond}, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestHandleTurnModelUnavailable(t *testing.T) {
	t.Parallel()

	calls := &callLog{}
	model := &fakeModel{err: contractx.ErrAIUnavailable}
	o := newTestOrchestrator(t, model, newTestRegistry(t, calls))

	res, err := o.HandleTurn(context.Background(), "schedule a demo with john@techcorp.com tomorrow", statex.NewHistory(20))
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Status != StatusError {
		t.Fatalf("expected error status, got %s", res.Status)
	}
	if res.Reply != ApologyReply {
		t.Fatalf("unexpected reply: %q", res.Reply)
	}
	if len(calls.list()) != 0 {
		t.Fatalf("no tool may run when the model is down, got %v", calls.list())
	}
	if res.History.Len() != 2 {
		t.Fatalf("expected user and assistant turns appended, got %d", res.History.Len())
	}
}

func TestHandleTurnDirectText(t *testing.T) {
	t.Parallel()

	model := &fakeModel{proposal: contractx.Proposal{Text: "Hi! How can I help?"}}
	o := newTestOrchestrator(t, model, newTestRegistry(t, &callLog{}))

	res, err := o.HandleTurn(context.Background(), "hello", statex.NewHistory(20))
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Status != StatusSuccess || res.Reply != "Hi! How can I help?" {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(model.specs) != 4 {
		t.Fatalf("model should see every registered tool, got %d", len(model.specs))
	}
	if !model.lastReq.Now.Equal(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected request time: %v", model.lastReq.Now)
	}
}

func TestHandleTurnEmptyProposalFallsBack(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &fakeModel{}, newTestRegistry(t, &callLog{}))
	res, err := o.HandleTurn(context.Background(), "hmm", statex.NewHistory(20))
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Reply != "I've executed the requested actions." {
		t.Fatalf("unexpected reply: %q", res.Reply)
	}
}

func TestHandleTurnEmptyUtterance(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	o := newTestOrchestrator(t, model, newTestRegistry(t, &callLog{}))
	res, err := o.HandleTurn(context.Background(), "   ", statex.NewHistory(20))
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Status != StatusError || res.Reply != EmptyUtteranceReply {
		t.Fatalf("unexpected result: %#v", res)
	}
	if model.calls != 0 {
		t.Fatalf("model must not be called for an empty utterance")
	}
	if res.History.Len() != 0 {
		t.Fatalf("history must be unchanged, got %d turns", res.History.Len())
	}
}

func TestHandleTurnPartialFailuresKeepOrder(t *testing.T) {
	t.Parallel()

	calls := &callLog{}
	rec := &fakeRecorder{}
	model := &fakeModel{proposal: contractx.Proposal{Invocations: []contractx.ToolInvocation{
		{Seq: 1, Tool: "getAvailableSlots", Args: map[string]any{"date": "2024-01-15"}},
		{Seq: 2, Tool: "bookFlight", Args: map[string]any{}},
		{Seq: 3, Tool: "sendPersonalizedEmail", Args: map[string]any{}},
		{Seq: 4, Tool: "explode", Args: map[string]any{}},
	}}}
	o := newTestOrchestrator(t, model, newTestRegistry(t, calls), WithRecorder(rec))

	res, err := o.HandleTurn(context.Background(), "do all the things", statex.NewHistory(20))
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("tool failures must not fail the turn, got %s", res.Status)
	}
	if len(res.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(res.Results))
	}

	wantKinds := []contractx.FailureKind{"", contractx.FailureUnknownTool, contractx.FailureDependency, contractx.FailureDependency}
	for i, r := range res.Results {
		if r.Seq != i+1 {
			t.Fatalf("result %d has seq %d", i, r.Seq)
		}
		if wantKinds[i] == "" {
			if !r.OK() {
				t.Fatalf("result %d should succeed: %+v", i, r.Failure)
			}
			continue
		}
		if r.Failure == nil || r.Failure.Kind != wantKinds[i] {
			t.Fatalf("result %d: want %s, got %+v", i, wantKinds[i], r.Failure)
		}
		if r.Payload != nil {
			t.Fatalf("failure %d must not carry a payload", i)
		}
	}
	if !strings.Contains(res.Results[2].Failure.Message, "smtp connection reset") {
		t.Fatalf("dependency failure should carry the cause: %q", res.Results[2].Failure.Message)
	}

	if got := calls.list(); strings.Join(got, ",") != "getAvailableSlots,sendPersonalizedEmail,explode" {
		t.Fatalf("unexpected execution order: %v", got)
	}

	want := "Available 60-minute slots on 2024-01-15: 09:00 and 11:00. " +
		"I don't know how to bookFlight. " +
		"Sorry, I couldn't send the email: smtp connection reset. " +
		"Sorry, explode failed: explode crashed: nil map write."
	if res.Reply != want {
		t.Fatalf("unexpected reply:\n got %q\nwant %q", res.Reply, want)
	}

	if len(rec.tools) != 4 || rec.tools[1] != "bookFlight:UnknownTool" {
		t.Fatalf("unexpected tool observations: %v", rec.tools)
	}
	if len(rec.turns) != 1 || rec.turns[0] != "success" {
		t.Fatalf("unexpected turn observations: %v", rec.turns)
	}
}

func TestHandleTurnToolTimeout(t *testing.T) {
	t.Parallel()

	model := &fakeModel{proposal: contractx.Proposal{Invocations: []contractx.ToolInvocation{
		{Seq: 1, Tool: "hang", Args: map[string]any{}},
	}}}
	o := newTestOrchestrator(t, model, newTestRegistry(t, &callLog{}))

	res, err := o.HandleTurn(context.Background(), "wait", statex.NewHistory(20))
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	r := res.Results[0]
	if r.Failure == nil || r.Failure.Kind != contractx.FailureDependency || !strings.Contains(r.Failure.Message, "timed out") {
		t.Fatalf("expected timeout failure, got %+v", r.Failure)
	}
}

func TestHandleTurnHistoryBoundedAndWindowed(t *testing.T) {
	t.Parallel()

	model := &fakeModel{proposal: contractx.Proposal{Text: "ok"}}
	o, err := New(model, newTestRegistry(t, &callLog{}), Config{HistoryWindow: 3})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	history := statex.NewHistory(4)
	for i := 0; i < 3; i++ {
		res, err := o.HandleTurn(context.Background(), "msg", history)
		if err != nil {
			t.Fatalf("HandleTurn() error = %v", err)
		}
		history = res.History
	}
	if history.Len() != 4 {
		t.Fatalf("history must stay at capacity 4, got %d", history.Len())
	}
	if len(model.lastReq.History) != 3 {
		t.Fatalf("model should see a window of 3 turns, got %d", len(model.lastReq.History))
	}
}

type stubMail struct{ sent []contractx.OutgoingEmail }

func (s *stubMail) Send(_ context.Context, msg contractx.OutgoingEmail) (string, error) {
	s.sent = append(s.sent, msg)
	return "m-1", nil
}

type stubCRM struct{}

func (stubCRM) FindContactByEmail(context.Context, string) (*contractx.Contact, error) { return nil, nil }
func (stubCRM) FindCompany(context.Context, string) (*contractx.Company, error)       { return nil, nil }
func (stubCRM) CreateNote(context.Context, string, string, string) (string, error)    { return "", nil }
func (stubCRM) SearchContacts(_ context.Context, q string, _ int) ([]contractx.Contact, error) {
	if strings.EqualFold(q, "Jane Doe") {
		return []contractx.Contact{{ID: "1", FirstName: "Jane", LastName: "Doe", Email: "jane@acme.com"}}, nil
	}
	return nil, nil
}

type stubCards struct{}

func (stubCards) FindByName(context.Context, string) (*cardsx.Card, error) { return nil, nil }
func (stubCards) AllWithEmail(context.Context) ([]cardsx.Card, error)      { return nil, nil }

func newEmailOrchestrator(t *testing.T, model contractx.LanguageModel, mail *stubMail) *Orchestrator {
	t.Helper()

	c, err := email.New(mail, stubCRM{}, stubCards{}, time.Second)
	if err != nil {
		t.Fatalf("email.New() error = %v", err)
	}
	reg := toolx.NewRegistry()
	if err := c.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return newTestOrchestrator(t, model, reg)
}

func TestNamedSendWithoutLookupIsRefused(t *testing.T) {
	t.Parallel()

	mail := &stubMail{}
	model := &fakeModel{proposal: contractx.Proposal{Invocations: []contractx.ToolInvocation{
		{Seq: 1, Tool: email.ToolSendPersonalized, Args: map[string]any{
			"toEmail": "jane@acme.com", "subject": "Pricing", "body": "Hi",
		}},
	}}}
	o := newEmailOrchestrator(t, model, mail)

	res, err := o.HandleTurn(context.Background(), "email Jane Doe the pricing", statex.NewHistory(20))
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if len(mail.sent) != 0 {
		t.Fatalf("mail must not be sent, got %d", len(mail.sent))
	}
	if f := res.Results[0].Failure; f == nil || f.Kind != contractx.FailureUnauthorized {
		t.Fatalf("expected Unauthorized, got %+v", f)
	}
}

func TestLookupThenConfirmNextTurnSends(t *testing.T) {
	t.Parallel()

	mail := &stubMail{}
	model := &fakeModel{proposal: contractx.Proposal{Invocations: []contractx.ToolInvocation{
		{Seq: 1, Tool: email.ToolLookupAndPrepare, Args: map[string]any{
			"personName": "Jane Doe", "subject": "Pricing", "body": "Hi {{first_name}}",
		}},
	}}}
	o := newEmailOrchestrator(t, model, mail)

	first, err := o.HandleTurn(context.Background(), "email Jane Doe the pricing", statex.NewHistory(20))
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	prepared, ok := first.Results[0].Payload.(contractx.EmailPrepared)
	if !ok || prepared.Status != contractx.LookupReadyToSend {
		t.Fatalf("expected ready_to_send, got %#v", first.Results[0])
	}
	if len(mail.sent) != 0 {
		t.Fatalf("lookup must never send")
	}

	model.proposal = contractx.Proposal{Invocations: []contractx.ToolInvocation{
		{Seq: 1, Tool: email.ToolSendPersonalized, Args: map[string]any{
			"authorization": prepared.Authorization, "subject": prepared.Subject, "body": prepared.Body,
		}},
	}}
	second, err := o.HandleTurn(context.Background(), "yes send it", first.History)
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if !second.Results[0].OK() {
		t.Fatalf("send should succeed: %+v", second.Results[0].Failure)
	}
	if len(mail.sent) != 1 || mail.sent[0].To != "jane@acme.com" || mail.sent[0].Body != "Hi Jane" {
		t.Fatalf("unexpected mail: %#v", mail.sent)
	}
	if second.Reply != `Email sent to Jane Doe (jane@acme.com) with subject "Pricing".` {
		t.Fatalf("unexpected reply: %q", second.Reply)
	}
}
