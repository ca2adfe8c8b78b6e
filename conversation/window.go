package conversation

import (
	"context"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultWindowTokens = 2000
	charsPerToken       = 4

	// Budget overhead per message in the structured window, covering
	// role and framing.
	listEntryOverhead = 50
	// Token overhead per message when counting exactly.
	messageTokenOverhead = 3
)

// Window returns recent turns as prompt text, one `ROLE: content` line
// per turn separated by blank lines. It walks newest-first until the
// budget runs out, then returns the kept turns in chronological order.
// maxTokens <= 0 means the 2000-token default; without an exact
// tokenizer the budget is approximated as four characters per token.
func (s *Store) Window(ctx context.Context, id string, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = defaultWindowTokens
	}
	msgs := s.History(ctx, id, 0)

	budget := s.windowBudget(maxTokens)
	used := 0
	var lines []string
	for i := len(msgs) - 1; i >= 0; i-- {
		line := strings.ToUpper(msgs[i].Role) + ": " + msgs[i].Content + "\n"
		cost := s.lineCost(line)
		if used+cost > budget {
			break
		}
		lines = append(lines, line)
		used += cost
	}
	slices.Reverse(lines)
	return strings.Join(lines, "\n")
}

// WindowMessages is Window for structured consumers: the same
// newest-first budget walk, returning the kept turns themselves.
func (s *Store) WindowMessages(ctx context.Context, id string, maxTokens int) []Message {
	if maxTokens <= 0 {
		maxTokens = defaultWindowTokens
	}
	msgs := s.History(ctx, id, 0)

	budget := s.windowBudget(maxTokens)
	used := 0
	var kept []Message
	for i := len(msgs) - 1; i >= 0; i-- {
		cost := s.messageCost(msgs[i])
		if used+cost > budget {
			break
		}
		kept = append(kept, msgs[i])
		used += cost
	}
	slices.Reverse(kept)
	return kept
}

func (s *Store) windowBudget(maxTokens int) int {
	if s.counter != nil {
		return maxTokens
	}
	return maxTokens * charsPerToken
}

func (s *Store) lineCost(line string) int {
	if s.counter != nil {
		return s.counter.count(line)
	}
	return utf8.RuneCountInString(line)
}

func (s *Store) messageCost(msg Message) int {
	if s.counter != nil {
		return s.counter.count(msg.Role) + s.counter.count(msg.Content) + messageTokenOverhead
	}
	return utf8.RuneCountInString(msg.Content) + listEntryOverhead
}

// tokenCounter wraps a shared cl100k_base encoding. Claude has no
// public tokenizer, so the OpenAI encoding stands in as a close
// approximation.
type tokenCounter struct {
	enc *tiktoken.Tiktoken
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

func newTokenCounter() (*tokenCounter, error) {
	encodingOnce.Do(func() {
		encoding, encodingErr = tiktoken.GetEncoding("cl100k_base")
	})
	if encodingErr != nil {
		return nil, encodingErr
	}
	return &tokenCounter{enc: encoding}, nil
}

func (t *tokenCounter) count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
