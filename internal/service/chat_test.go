package service

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/CogniChat/internal/domain/chat"
	"github.com/Strob0t/CogniChat/internal/domain/memory"
	"github.com/Strob0t/CogniChat/internal/domain/user"
	"github.com/Strob0t/CogniChat/internal/port/messagequeue"
)

var fixedNow = time.Date(2024, 5, 6, 14, 3, 9, 0, time.UTC)

type chatFixture struct {
	svc   *ChatService
	store *fakeStore
	emb   *fakeEmbedder
	llm   *fakeLLM
	sess  *chat.Session
}

func newChatFixture(polarity float64) *chatFixture {
	st := &fakeStore{}
	emb := &fakeEmbedder{}
	llm := &fakeLLM{reply: "Sure thing."}
	mem := NewMemoryService(st, emb, 0.8, 5)
	svc := NewChatService(mem, llm, fakeAnalyzer{polarity: polarity}, "deepseek-chat", 0.7)
	svc.now = func() time.Time { return fixedNow }
	return &chatFixture{
		svc:   svc,
		store: st,
		emb:   emb,
		llm:   llm,
		sess:  chat.NewSession("s1", user.User{ID: "u1"}, "tok", chat.LengthMedium, fixedNow),
	}
}

func (f *chatFixture) send(t *testing.T, msg string) Turn {
	t.Helper()
	turn, err := f.svc.Dispatch(context.Background(), f.sess, msg, f.sess.Length)
	if err != nil {
		t.Fatalf("Dispatch(%q): %v", msg, err)
	}
	return turn
}

func TestDispatch_Joke(t *testing.T) {
	f := newChatFixture(0)
	turn := f.send(t, "/joke please")
	if turn.Reply != JokeReply || turn.Intent != IntentJoke {
		t.Fatalf("unexpected turn: %+v", turn)
	}
	if len(f.llm.reqs) != 0 || len(f.store.Records()) != 0 {
		t.Fatal("joke must not touch the model or the store")
	}
}

func TestDispatch_Summary(t *testing.T) {
	f := newChatFixture(0)
	f.sess.Append(chat.RoleUser, strings.Repeat("a", 60))
	f.sess.Append(chat.RoleAssistant, "short")

	turn := f.send(t, "/summary")
	want := "Chat summary:\nuser: " + strings.Repeat("a", 50) + "...\nassistant: short...\nuser: /summary..."
	if turn.Reply != want {
		t.Fatalf("summary =\n%q\nwant\n%q", turn.Reply, want)
	}
}

func TestDispatch_SummaryKeepsLastFive(t *testing.T) {
	f := newChatFixture(0)
	for i := range 8 {
		f.sess.Append(chat.RoleUser, string(rune('a'+i)))
	}
	turn := f.send(t, "/summary")
	lines := strings.Split(turn.Reply, "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header + 5 lines, got %d: %q", len(lines), turn.Reply)
	}
	if lines[1] != "user: e..." {
		t.Errorf("first summarized line = %q", lines[1])
	}
}

func TestDispatch_Time(t *testing.T) {
	f := newChatFixture(0)
	f.store.err = errBoom
	turn := f.send(t, "what is the time")
	if turn.Reply != "The current time is 14:03:09 2024-05-06." {
		t.Fatalf("reply = %q", turn.Reply)
	}
	if !regexp.MustCompile(`\d{2}:\d{2}:\d{2} \d{4}-\d{2}-\d{2}`).MatchString(turn.Reply) {
		t.Fatal("reply does not match HH:MM:SS YYYY-MM-DD")
	}
}

func TestDispatch_TimeWinsOverRemember(t *testing.T) {
	f := newChatFixture(0)
	turn := f.send(t, "remember this: meeting time is 3pm")
	if turn.Intent != IntentTime {
		t.Fatalf("intent = %q, want time", turn.Intent)
	}
	if len(f.store.Records()) != 0 {
		t.Fatal("nothing should be stored")
	}
}

func TestDispatch_RememberMisspelled(t *testing.T) {
	f := newChatFixture(0)
	turn := f.send(t, "remeber this: buy milk")
	if turn.Reply != "Got it! I'll remember: 'buy milk'." {
		t.Fatalf("reply = %q", turn.Reply)
	}
	recs := f.store.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.Text != "buy milk" || r.Metadata.Tag != memory.TagExplicit || r.Metadata.Priority != 2.0 {
		t.Fatalf("unexpected record: %+v", r)
	}
	if math.Abs(r.Metadata.Timestamp-float64(fixedNow.Unix())) > 1e-3 {
		t.Errorf("timestamp = %v", r.Metadata.Timestamp)
	}
}

func TestDispatch_RememberEmpty(t *testing.T) {
	f := newChatFixture(0)
	turn := f.send(t, "remember this:")
	if turn.Reply != RememberUsage {
		t.Fatalf("reply = %q", turn.Reply)
	}
	if len(f.store.Records()) != 0 {
		t.Fatal("empty fact must not be stored")
	}
}

func TestDispatch_RememberStoreDown(t *testing.T) {
	f := newChatFixture(0)
	f.store.err = errBoom
	turn := f.send(t, "remember this: buy milk")
	if turn.Reply != "Got it! I'll remember: 'buy milk'." {
		t.Fatalf("reply = %q", turn.Reply)
	}
	if !turn.Degraded || len(turn.Warnings) != 1 {
		t.Fatalf("expected degraded turn, got %+v", turn)
	}
}

func TestDispatch_Recall(t *testing.T) {
	f := newChatFixture(0)
	f.send(t, "remember this: first")
	f.send(t, "remember this: second")
	calls := f.emb.Calls()

	turn := f.send(t, "wht i asked to remember?")
	if turn.Intent != IntentRecall {
		t.Fatalf("intent = %q", turn.Intent)
	}
	want := "Here's what I remember you asked me to store:\n" +
		"- second (saved 2024-05-01T09:02:00)\n" +
		"- first (saved 2024-05-01T09:01:00)"
	if turn.Reply != want {
		t.Fatalf("reply =\n%s\nwant\n%s", turn.Reply, want)
	}
	if f.emb.Calls() != calls {
		t.Fatal("recall must not embed the query")
	}
}

func TestDispatch_RecallEmptyAndDegraded(t *testing.T) {
	f := newChatFixture(0)
	turn := f.send(t, "Did I ask you to remember anything?")
	if turn.Reply != RecallEmptyReply || turn.Degraded {
		t.Fatalf("unexpected turn: %+v", turn)
	}

	f.store.err = errBoom
	turn = f.send(t, "did i ask you to remember anything?")
	if turn.Reply != RecallEmptyReply || !turn.Degraded {
		t.Fatalf("expected degraded empty recall, got %+v", turn)
	}
}

func TestDispatch_Reminder(t *testing.T) {
	f := newChatFixture(0)
	turn := f.send(t, "REMIND MEEE to stretch")
	if turn.Reply != "I've noted your reminder: 'to stretch'. No timers yet, but it's stored!" {
		t.Fatalf("reply = %q", turn.Reply)
	}
	recs := f.store.Records()
	if len(recs) != 1 || recs[0].Metadata.Tag != memory.TagReminder || recs[0].Metadata.Priority != 1.5 {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestDispatch_ComposeFlow(t *testing.T) {
	f := newChatFixture(-0.5)
	f.store.similar = []memory.Match{
		{Text: "likes green tea", Metadata: memory.Metadata{Priority: 2}},
		{Text: "lives in Lyon"},
	}
	f.llm.reply = strings.Repeat("word ", 80)

	turn := f.send(t, "I feel awful today")
	if turn.Intent != IntentChat || turn.Degraded {
		t.Fatalf("unexpected turn: %+v", turn)
	}
	if n := len(strings.Fields(turn.Reply)); n != chat.MediumWords {
		t.Fatalf("expected %d words, got %d", chat.MediumWords, n)
	}

	if len(f.llm.reqs) != 1 {
		t.Fatalf("expected one completion call, got %d", len(f.llm.reqs))
	}
	req := f.llm.reqs[0]
	if req.Model != "deepseek-chat" || req.Temperature != 0.7 || len(req.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	wantSystem := "You are CogniChat, a smart AI by HeWhoCodes. Respond in a empathetic tone. Date: 2024-05-06\n" +
		"Memories:\n- likes green tea (Priority: 2.00)\n- lives in Lyon (Priority: 1.00)"
	if req.Messages[0].Content != wantSystem {
		t.Fatalf("system prompt =\n%s\nwant\n%s", req.Messages[0].Content, wantSystem)
	}
	if req.Messages[1].Role != chat.RoleUser || req.Messages[1].Content != "I feel awful today" {
		t.Fatalf("user message = %+v", req.Messages[1])
	}

	recs := f.store.Records()
	if len(recs) != 1 {
		t.Fatalf("expected the exchange to be stored, got %d records", len(recs))
	}
	if recs[0].Metadata.Priority != 1.5 || recs[0].Metadata.Tag != memory.TagNone {
		t.Errorf("unexpected exchange metadata: %+v", recs[0].Metadata)
	}
	if !strings.HasPrefix(recs[0].Text, "User: I feel awful today\nAssistant: word") {
		t.Errorf("unexpected exchange text: %q", recs[0].Text)
	}

	if len(f.sess.Messages) != 2 || f.sess.Messages[1].Role != chat.RoleAssistant {
		t.Fatalf("expected user and assistant messages in history, got %+v", f.sess.Messages)
	}
}

func TestDispatch_ComposeNoMemoriesNeutral(t *testing.T) {
	f := newChatFixture(0)
	f.sess.Length = chat.LengthLong
	f.llm.reply = strings.Repeat("w ", 80)

	turn := f.send(t, "tell me about Go")
	if len(strings.Fields(turn.Reply)) != 80 {
		t.Fatal("long tier must not truncate")
	}
	sys := f.llm.reqs[0].Messages[0].Content
	if !strings.Contains(sys, "Respond in a neutral tone.") || !strings.HasSuffix(sys, "Memories:\nNo relevant memories.") {
		t.Fatalf("system prompt = %q", sys)
	}
}

func TestDispatch_ComposeStoreDown(t *testing.T) {
	f := newChatFixture(0.3)
	f.store.err = errBoom

	turn := f.send(t, "hello there")
	if turn.Reply != "Sure thing." {
		t.Fatalf("reply = %q", turn.Reply)
	}
	if !turn.Degraded || len(turn.Warnings) != 1 {
		t.Fatalf("expected one degraded warning, got %+v", turn)
	}
	if !strings.Contains(f.llm.reqs[0].Messages[0].Content, "No relevant memories.") {
		t.Fatal("expected empty memory list in prompt")
	}
}

func TestDispatch_CompletionFailureSavesNothing(t *testing.T) {
	f := newChatFixture(0)
	f.llm.err = errBoom

	_, err := f.svc.Dispatch(context.Background(), f.sess, "hello", chat.LengthShort)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected completion error, got %v", err)
	}
	if len(f.store.Records()) != 0 {
		t.Fatal("failed completion must not persist the exchange")
	}
	if len(f.sess.Messages) != 1 || f.sess.Messages[0].Role != chat.RoleUser {
		t.Fatalf("expected only the user message in history, got %+v", f.sess.Messages)
	}
}

func TestDispatch_PublishesTurnEvent(t *testing.T) {
	f := newChatFixture(0)
	q := &fakeQueue{}
	hub := &fakeBroadcaster{}
	f.svc.SetQueue(q)
	f.svc.SetBroadcaster(hub)

	f.send(t, "/joke")
	if q.Count(messagequeue.SubjectChatTurn) != 1 {
		t.Fatal("expected a chat.turns event")
	}
	if len(hub.events) != 1 || hub.events[0] != "u1:chat.turn" {
		t.Fatalf("unexpected broadcasts: %v", hub.events)
	}
}

func TestSystemPromptFormatsPriority(t *testing.T) {
	got := SystemPrompt("cheerful", fixedNow, []memory.Match{{Text: "x", Metadata: memory.Metadata{Priority: 1.234}}})
	if !strings.HasSuffix(got, "- x (Priority: 1.23)") {
		t.Fatalf("prompt = %q", got)
	}
}
