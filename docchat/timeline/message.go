package timeline

import (
	"strconv"
	"time"

	"docchat/docchat/utils/types"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Source string

const (
	SourceText  Source = "text"
	SourceVoice Source = "voice"
)

// State tags a Message snapshot. Only StateStreaming entries may be replaced.
type State string

const (
	StateStreaming State = "streaming"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

type Message struct {
	ID        string    `json:"id"`
	Type      Sender    `json:"type"`
	Content   string    `json:"content"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	State     State     `json:"state"`
}

func (m Message) Final() bool {
	return m.State != StateStreaming
}

// NewUserMessage returns a complete user message.
func NewUserMessage(content string, source Source) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      SenderUser,
		Content:   content,
		Source:    source,
		Timestamp: time.Now().UTC(),
		State:     StateComplete,
	}
}

// NewBotMessage returns a complete bot message.
func NewBotMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      SenderBot,
		Content:   content,
		Source:    SourceText,
		Timestamp: time.Now().UTC(),
		State:     StateComplete,
	}
}

// NewStreamingPlaceholder returns the empty bot message a stream grows into.
func NewStreamingPlaceholder() Message {
	m := NewBotMessage("")
	m.State = StateStreaming
	return m
}

// WithContent returns a copy of m carrying content in the given state.
func (m Message) WithContent(content string, state State) Message {
	m.Content = content
	m.State = state
	return m
}

// FromHistory converts backend history into alternating user/bot messages.
func FromHistory(entries []types.HistoryEntry) []Message {
	out := make([]Message, 0, len(entries)*2)
	for i, e := range entries {
		ts := parseTimestamp(e.Timestamp)
		question := e.Question
		if question == "" {
			question = e.RefinedQuestion
		}
		if question == "" {
			question = "User asked something"
		}
		answer := e.Answer
		if answer == "" {
			answer = "No answer available"
		}
		out = append(out,
			Message{ID: "user-" + strconv.Itoa(i), Type: SenderUser, Content: question, Source: SourceText, Timestamp: ts, State: StateComplete},
			Message{ID: "bot-" + strconv.Itoa(i), Type: SenderBot, Content: answer, Source: SourceText, Timestamp: ts, State: StateComplete},
		)
	}
	return out
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
}

// parseTimestamp accepts RFC3339 and the naive ISO forms the backend emits.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
