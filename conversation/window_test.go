package conversation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamadze/tamada/config"
)

func TestWindowFormat(t *testing.T) {
	s := newTestStore(t, config.ConversationConfig{})
	ctx := context.Background()
	id := "conv_w00000000001"

	s.Append(ctx, id, "user", "Привет", MessageMetadata{})
	s.Append(ctx, id, "assistant", "Здравствуйте!", MessageMetadata{})

	got := s.Window(ctx, id, 2000)

	assert.Equal(t, "USER: Привет\n\nASSISTANT: Здравствуйте!\n", got)
}

func TestWindowEmptyConversation(t *testing.T) {
	s := newTestStore(t, config.ConversationConfig{})

	assert.Empty(t, s.Window(context.Background(), "conv_missing00000", 2000))
}

func TestWindowKeepsNewestWithinBudget(t *testing.T) {
	s := newTestStore(t, config.ConversationConfig{})
	ctx := context.Background()
	id := "conv_w00000000002"

	s.Append(ctx, id, "user", strings.Repeat("а", 100), MessageMetadata{})
	s.Append(ctx, id, "assistant", strings.Repeat("б", 100), MessageMetadata{})
	s.Append(ctx, id, "user", "latest question", MessageMetadata{})

	// 15 tokens approximate to 60 characters: only the newest line fits.
	got := s.Window(ctx, id, 15)

	assert.Equal(t, "USER: latest question\n", got)
}

func TestWindowCountsRunesNotBytes(t *testing.T) {
	s := newTestStore(t, config.ConversationConfig{})
	ctx := context.Background()
	id := "conv_w00000000003"

	// 50 Cyrillic runes are 100 bytes; a 15-token budget (60 chars)
	// must still admit the line.
	content := strings.Repeat("я", 50)
	s.Append(ctx, id, "user", content, MessageMetadata{})

	got := s.Window(ctx, id, 15)

	assert.Equal(t, "USER: "+content+"\n", got)
}

func TestWindowMessagesBudget(t *testing.T) {
	s := newTestStore(t, config.ConversationConfig{})
	ctx := context.Background()
	id := "conv_w00000000004"

	s.Append(ctx, id, "user", strings.Repeat("х", 1000), MessageMetadata{})
	s.Append(ctx, id, "assistant", "short one", MessageMetadata{Language: "en"})
	s.Append(ctx, id, "user", "short two", MessageMetadata{Language: "en"})

	// 50 tokens approximate to 200 characters; each short message
	// costs its rune count plus the 50-char entry overhead, so the two
	// short turns fit and the long one does not.
	kept := s.WindowMessages(ctx, id, 50)

	require.Len(t, kept, 2)
	assert.Equal(t, "assistant", kept[0].Role)
	assert.Equal(t, "short one", kept[0].Content)
	assert.Equal(t, "user", kept[1].Role)
	assert.Equal(t, "short two", kept[1].Content)
	assert.Equal(t, "en", kept[1].Metadata.Language)
}

func TestWindowMessagesEmpty(t *testing.T) {
	s := newTestStore(t, config.ConversationConfig{})

	assert.Empty(t, s.WindowMessages(context.Background(), "conv_missing00000", 2000))
}

func TestWindowDefaultBudget(t *testing.T) {
	s := newTestStore(t, config.ConversationConfig{})
	ctx := context.Background()
	id := "conv_w00000000005"

	s.Append(ctx, id, "user", "hello", MessageMetadata{})

	assert.Equal(t, "USER: hello\n", s.Window(ctx, id, 0))
}
