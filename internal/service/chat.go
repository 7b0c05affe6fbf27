package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	ccotel "github.com/Strob0t/CogniChat/internal/adapter/otel"
	"github.com/Strob0t/CogniChat/internal/domain/chat"
	"github.com/Strob0t/CogniChat/internal/domain/command"
	"github.com/Strob0t/CogniChat/internal/domain/memory"
	"github.com/Strob0t/CogniChat/internal/port/broadcast"
	"github.com/Strob0t/CogniChat/internal/port/completion"
	"github.com/Strob0t/CogniChat/internal/port/messagequeue"
	"github.com/Strob0t/CogniChat/internal/port/sentiment"
)

// Intent names the branch of the dispatcher that produced a reply.
type Intent string

const (
	IntentJoke     Intent = "joke"
	IntentSummary  Intent = "summary"
	IntentTime     Intent = "time"
	IntentRemember Intent = "remember"
	IntentRecall   Intent = "recall"
	IntentReminder Intent = "reminder"
	IntentChat     Intent = "chat"
)

// Fixed replies.
const (
	JokeReply         = "Why don't skeletons fight each other? Because they don't have the guts!"
	RecallEmptyReply  = "You haven't asked me to remember anything yet. Use 'remember this: [something]' to save info!"
	RememberUsage     = "Tell me what to remember, e.g. 'remember this: my favourite colour is green'."
	ReminderUsage     = "Tell me what to remind you about, e.g. 'remind me to stretch'."
	noMemories        = "No relevant memories."
	summaryMessages   = 5
	summaryPreviewLen = 50
	timeSubstring     = "time"
)

// Warning attached to a turn that ran without the memory store.
const WarningMemoryUnavailable = "memory store unavailable; replying without memories"

// Turn is the outcome of one chat turn.
type Turn struct {
	Reply    string   `json:"reply"`
	Intent   Intent   `json:"intent"`
	Degraded bool     `json:"degraded,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (t *Turn) degrade() {
	t.Degraded = true
	t.Warnings = append(t.Warnings, WarningMemoryUnavailable)
}

// ChatService routes user messages to a command handler or, by default, to
// the memory-augmented completion flow.
type ChatService struct {
	memories    *MemoryService
	llm         completion.Client
	analyzer    sentiment.Analyzer
	model       string
	temperature float64
	now         func() time.Time

	queue   messagequeue.Queue
	hub     broadcast.Broadcaster
	metrics *ccotel.Metrics
}

// NewChatService creates a ChatService.
func NewChatService(memories *MemoryService, llm completion.Client, analyzer sentiment.Analyzer, model string, temperature float64) *ChatService {
	return &ChatService{
		memories:    memories,
		llm:         llm,
		analyzer:    analyzer,
		model:       model,
		temperature: temperature,
		now:         time.Now,
	}
}

// SetQueue enables chat.turns events.
func (s *ChatService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetBroadcaster pushes chat.turn events to the user's other clients.
func (s *ChatService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetMetrics attaches metric instruments.
func (s *ChatService) SetMetrics(m *ccotel.Metrics) { s.metrics = m }

// Dispatch runs one turn for sess. The caller must hold the session lock.
// Store failures never surface as errors; completion failures do, and in
// that case nothing is saved and no reply is appended to the history.
func (s *ChatService) Dispatch(ctx context.Context, sess *chat.Session, message string, tier chat.Length) (turn Turn, err error) {
	ctx, span := ccotel.StartTurnSpan(ctx, sess.ID)
	start := time.Now()
	defer func() {
		ccotel.EndSpan(span, err)
		s.finish(ctx, sess, turn, err, time.Since(start))
	}()

	sess.Append(chat.RoleUser, message)

	normalized := command.Normalize(message)
	turn, err = s.route(ctx, sess, normalized, tier)
	if err != nil {
		return Turn{Intent: IntentChat}, err
	}
	sess.Append(chat.RoleAssistant, turn.Reply)
	return turn, nil
}

func (s *ChatService) route(ctx context.Context, sess *chat.Session, msg string, tier chat.Length) (Turn, error) {
	lower := strings.ToLower(msg)
	userID := sess.User.ID

	switch {
	case strings.HasPrefix(msg, command.JokeSlash):
		return Turn{Reply: JokeReply, Intent: IntentJoke}, nil

	case strings.HasPrefix(msg, command.SummarySlash):
		return Turn{Reply: summarize(sess.Last(summaryMessages)), Intent: IntentSummary}, nil

	case strings.Contains(lower, timeSubstring):
		reply := fmt.Sprintf("The current time is %s.", s.now().Format("15:04:05 2006-01-02"))
		return Turn{Reply: reply, Intent: IntentTime}, nil

	case strings.HasPrefix(msg, command.Remember):
		fact := strings.TrimSpace(msg[len(command.Remember):])
		return s.store(ctx, userID, fact, memory.TagExplicit, memory.PriorityExplicit, IntentRemember,
			RememberUsage, "Got it! I'll remember: '%s'."), nil

	case strings.Contains(lower, command.WhatAsked) || strings.Contains(lower, command.DidIAsk):
		return s.recall(ctx, msg, userID), nil

	case strings.HasPrefix(msg, command.RemindMe):
		reminder := strings.TrimSpace(msg[len(command.RemindMe):])
		return s.store(ctx, userID, reminder, memory.TagReminder, memory.PriorityReminder, IntentReminder,
			ReminderUsage, "I've noted your reminder: '%s'. No timers yet, but it's stored!"), nil
	}

	return s.compose(ctx, userID, msg, tier)
}

// store saves a tagged command memory. The confirmation is sent even when
// the store is down, matching the "degrade silently" policy, but the turn
// is flagged.
func (s *ChatService) store(ctx context.Context, userID, text string, tag memory.Tag, priority float64, intent Intent, usage, confirm string) Turn {
	if text == "" {
		return Turn{Reply: usage, Intent: intent}
	}
	turn := Turn{Reply: fmt.Sprintf(confirm, text), Intent: intent}
	if res := s.memories.Add(ctx, text, userID, memory.NewMetadata(priority, tag, s.now())); res.Err != nil {
		turn.degrade()
	}
	return turn
}

func (s *ChatService) recall(ctx context.Context, msg, userID string) Turn {
	turn := Turn{Intent: IntentRecall}
	res := s.memories.Search(ctx, msg, userID, 0, memory.Filters{Tag: memory.TagExplicit})
	if res.Failed() {
		turn.degrade()
	}
	if len(res.Matches) == 0 {
		turn.Reply = RecallEmptyReply
		return turn
	}

	var b strings.Builder
	b.WriteString("Here's what I remember you asked me to store:")
	for _, m := range res.Matches {
		fmt.Fprintf(&b, "\n- %s (saved %s)", m.Text, m.SavedAt())
	}
	turn.Reply = b.String()
	return turn
}

// compose runs the retrieval-augmented completion flow.
func (s *ChatService) compose(ctx context.Context, userID, msg string, tier chat.Length) (Turn, error) {
	turn := Turn{Intent: IntentChat}

	res := s.memories.Search(ctx, msg, userID, 0, memory.Filters{})
	if res.Failed() {
		turn.degrade()
	}

	polarity := s.analyzer.Polarity(msg)
	req := completion.Request{
		Model:       s.model,
		Temperature: s.temperature,
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Content: SystemPrompt(sentiment.Tone(polarity), s.now(), res.Matches)},
			{Role: chat.RoleUser, Content: msg},
		},
	}

	start := time.Now()
	reply, err := s.llm.Complete(ctx, req)
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.CompletionDuration.Record(ctx, elapsed.Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.CompletionFailures.Add(ctx, 1)
		}
		return turn, fmt.Errorf("completion: %w", err)
	}
	slog.InfoContext(ctx, "completion finished", "model", s.model, "duration", elapsed)

	turn.Reply = chat.Truncate(reply, tier)

	exchange := fmt.Sprintf("User: %s\nAssistant: %s", msg, turn.Reply)
	meta := memory.NewMetadata(memory.DefaultPriority+math.Abs(polarity), memory.TagNone, s.now())
	if add := s.memories.Add(ctx, exchange, userID, meta); add.Err != nil && !turn.Degraded {
		turn.degrade()
	}
	return turn, nil
}

// SystemPrompt builds the system message for the completion call.
func SystemPrompt(tone string, now time.Time, matches []memory.Match) string {
	return fmt.Sprintf("You are CogniChat, a smart AI by HeWhoCodes. Respond in a %s tone. Date: %s\nMemories:\n%s",
		tone, now.Format("2006-01-02"), memoryList(matches))
}

func memoryList(matches []memory.Match) string {
	if len(matches) == 0 {
		return noMemories
	}
	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("- %s (Priority: %.2f)", m.Text, m.Metadata.EffectivePriority())
	}
	return strings.Join(lines, "\n")
}

func summarize(msgs []chat.Message) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = fmt.Sprintf("%s: %s...", m.Role, preview(m.Content, summaryPreviewLen))
	}
	return "Chat summary:\n" + strings.Join(lines, "\n")
}

// preview returns the first n runes of s.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// finish records metrics and emits the chat.turns event.
func (s *ChatService) finish(ctx context.Context, sess *chat.Session, turn Turn, err error, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("intent", string(turn.Intent)),
		attribute.Bool("degraded", turn.Degraded),
		attribute.Bool("error", err != nil),
	)
	if s.metrics != nil {
		s.metrics.Turns.Add(ctx, 1, attrs)
		s.metrics.TurnDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
	if err != nil {
		slog.ErrorContext(ctx, "chat turn failed", "session_id", sess.ID, "duration", elapsed, "error", err)
		return
	}
	slog.InfoContext(ctx, "chat turn", "intent", turn.Intent, "degraded", turn.Degraded, "duration", elapsed)

	payload := messagequeue.ChatTurnPayload{
		SessionID:  sess.ID,
		UserID:     sess.User.ID,
		Intent:     string(turn.Intent),
		Degraded:   turn.Degraded,
		DurationMS: elapsed.Milliseconds(),
	}
	if s.hub != nil {
		s.hub.BroadcastToUser(ctx, sess.User.ID, broadcast.EventTurn, payload)
	}
	if s.queue == nil {
		return
	}
	data, mErr := json.Marshal(payload)
	if mErr != nil {
		slog.ErrorContext(ctx, "marshal turn event", "error", mErr)
		return
	}
	if pErr := s.queue.Publish(ctx, messagequeue.SubjectChatTurn, data); pErr != nil {
		slog.WarnContext(ctx, "publish turn event", "error", pErr)
	}
}
