package contract

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// AuthorizedRecipient is issued by a successful contact lookup and is the only
// way to send mail to a person the user named without giving an address.
type AuthorizedRecipient struct {
	Token   string
	Name    string
	Email   string
	Company string
	Title   string
	Subject string
	Body    string
}

// TurnScope carries per-turn facts that actions need but the model must not be
// able to forge: what the user actually typed and which recipients a lookup
// has authorized. It lives for one turn only.
type TurnScope struct {
	mu         sync.Mutex
	utterances []string
	byToken    map[string]AuthorizedRecipient
	consumed   map[string]bool

	// DirectAddressing marks callers that supply addresses themselves, such as
	// the MCP server, where every address counts as user-provided.
	DirectAddressing bool
}

// NewTurnScope builds the scope for a turn. Authorizations issued during the
// immediately preceding assistant turn are carried over.
func NewTurnScope(utterance string, history []ConversationTurn) *TurnScope {
	s := &TurnScope{
		byToken:  map[string]AuthorizedRecipient{},
		consumed: map[string]bool{},
	}
	s.utterances = append(s.utterances, utterance)
	for _, turn := range history {
		if turn.Role == RoleUser {
			s.utterances = append(s.utterances, turn.Text)
		}
	}

	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != RoleAssistant {
			continue
		}
		for _, res := range history[i].Results {
			prepared, ok := res.Payload.(EmailPrepared)
			if !ok || prepared.Status != LookupReadyToSend || prepared.Contact == nil || prepared.Authorization == "" {
				continue
			}
			s.byToken[prepared.Authorization] = AuthorizedRecipient{
				Token:   prepared.Authorization,
				Name:    prepared.Contact.FullName(),
				Email:   prepared.Contact.Email,
				Company: prepared.Contact.Company,
				Title:   prepared.Contact.JobTitle,
				Subject: prepared.Subject,
				Body:    prepared.Body,
			}
		}
		break
	}
	return s
}

func (s *TurnScope) Issue(r AuthorizedRecipient) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Token = uuid.NewString()
	s.byToken[r.Token] = r
	return r.Token
}

func (s *TurnScope) Redeem(token string) (AuthorizedRecipient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token = strings.TrimSpace(token)
	if s.consumed[token] {
		return AuthorizedRecipient{}, false
	}
	r, ok := s.byToken[token]
	return r, ok
}

// AuthorizedFor finds an unconsumed authorization for the address.
func (s *TurnScope) AuthorizedFor(email string) (AuthorizedRecipient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, r := range s.byToken {
		if !s.consumed[token] && strings.EqualFold(r.Email, strings.TrimSpace(email)) {
			return r, true
		}
	}
	return AuthorizedRecipient{}, false
}

func (s *TurnScope) Consume(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumed[token] = true
}

// MentionsAddress reports whether the user typed the address literally in
// this turn or an earlier one in the window.
func (s *TurnScope) MentionsAddress(email string) bool {
	if s.DirectAddressing {
		return true
	}
	needle := strings.ToLower(strings.TrimSpace(email))
	if needle == "" {
		return false
	}
	for _, u := range s.utterances {
		if strings.Contains(strings.ToLower(u), needle) {
			return true
		}
	}
	return false
}

type turnScopeKey struct{}

func WithTurnScope(ctx context.Context, s *TurnScope) context.Context {
	return context.WithValue(ctx, turnScopeKey{}, s)
}

// TurnScopeFrom returns the scope stored in ctx, or an empty scope that
// authorizes nothing.
func TurnScopeFrom(ctx context.Context) *TurnScope {
	if s, ok := ctx.Value(turnScopeKey{}).(*TurnScope); ok && s != nil {
		return s
	}
	return NewTurnScope("", nil)
}
