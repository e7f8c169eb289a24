package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

const (
	defaultEncoding = "cl100k_base"
	tokensPerTurn   = 4
)

var (
	encodingCache   = make(map[string]*tiktoken.Tiktoken)
	encodingCacheMu sync.Mutex
)

func encodingFor(modelName string) (*tiktoken.Tiktoken, error) {
	encodingCacheMu.Lock()
	defer encodingCacheMu.Unlock()

	if tkm, ok := encodingCache[modelName]; ok {
		return tkm, nil
	}
	tkm, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		// Non-OpenAI models fall back to the GPT-4 encoding.
		tkm, err = tiktoken.GetEncoding(defaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer: %w", err)
		}
	}
	encodingCache[modelName] = tkm
	return tkm, nil
}

// TokenBudget trims a history window so its estimated size stays under Max.
type TokenBudget struct {
	Max   int
	count func(string) int
}

func NewTokenBudget(max int, modelName string) (*TokenBudget, error) {
	if max <= 0 {
		return nil, nil
	}
	tkm, err := encodingFor(modelName)
	if err != nil {
		return nil, err
	}
	return &TokenBudget{
		Max: max,
		count: func(s string) int {
			return len(tkm.Encode(s, nil, nil))
		},
	}, nil
}

// Trim drops the oldest turns until the rest fit. The newest turn is always
// kept.
func (b *TokenBudget) Trim(turns []contractx.ConversationTurn) []contractx.ConversationTurn {
	if b == nil || b.Max <= 0 || b.count == nil || len(turns) == 0 {
		return turns
	}

	total := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		cost := b.count(renderTurn(turns[i])) + tokensPerTurn
		if total+cost > b.Max && start < len(turns) {
			break
		}
		total += cost
		start = i
	}
	return turns[start:]
}
