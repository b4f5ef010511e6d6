package captcha

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GalaxyBotTeam/captcha-gate/internal/domain"
	"github.com/GalaxyBotTeam/captcha-gate/internal/platform"
)

type fakeMember struct {
	mu         sync.Mutex
	id         string
	name       string
	roles      []string
	kicked     bool
	kickReason string
}

func (m *fakeMember) ID() string       { return m.id }
func (m *fakeMember) Username() string { return m.name }
func (m *fakeMember) Mention() string  { return "<@" + m.id + ">" }

func (m *fakeMember) AddRole(_ context.Context, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles = append(m.roles, roleID)
	return nil
}

func (m *fakeMember) Kick(_ context.Context, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kicked = true
	m.kickReason = reason
	return nil
}

func (m *fakeMember) hasRole(roleID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r == roleID {
			return true
		}
	}
	return false
}

func (m *fakeMember) wasKicked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kicked
}

// fakeDest scripts the messages a destination observes. Each AwaitResponse
// call consumes queued messages until one passes the filter; an exhausted
// queue is a timeout.
type fakeDest struct {
	mu      sync.Mutex
	id      string
	queue   []platform.Message
	sent    []platform.Outgoing
	sendErr error
}

func (d *fakeDest) ID() string { return d.id }

func (d *fakeDest) Send(_ context.Context, out platform.Outgoing) (platform.MessageRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return platform.MessageRef{}, d.sendErr
	}
	d.sent = append(d.sent, out)
	return platform.MessageRef{ChannelID: d.id, MessageID: "m1"}, nil
}

func (d *fakeDest) AwaitResponse(_ context.Context, filter platform.MessageFilter, _ time.Duration) (*platform.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.queue) > 0 {
		msg := d.queue[0]
		d.queue = d.queue[1:]
		if filter(msg) {
			return &msg, nil
		}
	}
	return nil, nil
}

func (d *fakeDest) sentMessages() []platform.Outgoing {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]platform.Outgoing, len(d.sent))
	copy(out, d.sent)
	return out
}

// fakeChannel is a fakeDest with edit and delete capabilities, like a
// persistent text channel.
type fakeChannel struct {
	fakeDest
	edited  []platform.Outgoing
	deleted []platform.MessageRef
}

func (c *fakeChannel) EditMessage(_ context.Context, _ platform.MessageRef, out platform.Outgoing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edited = append(c.edited, out)
	return nil
}

func (c *fakeChannel) DeleteMessage(_ context.Context, ref platform.MessageRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, ref)
	return nil
}

type countingPrompter struct {
	mu    sync.Mutex
	count int
	err   error
}

func (p *countingPrompter) Reprompt(context.Context, *Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.count++
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) listen(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (l *eventLog) last() Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

func memberMessage(member *fakeMember, channelID, content string) platform.Message {
	return platform.Message{ChannelID: channelID, AuthorID: member.id, Content: content}
}

func newTestEngine(cfg Config, answer string, dest platform.Destination, member *fakeMember) (*engine, *eventLog, *countingPrompter) {
	log := &eventLog{}
	n := &notifier{}
	n.subscribe(log.listen)
	p := &countingPrompter{}
	eng := &engine{
		cfg:       cfg,
		challenge: &domain.Challenge{Image: []byte{1}, Answer: answer},
		member:    member,
		dest:      dest,
		events:    n,
		prompt:    p,
	}
	return eng, log, p
}

func TestEngine_ExhaustsAttempts(t *testing.T) {
	member := &fakeMember{id: "u1", name: "alice"}
	dest := &fakeDest{id: "c1"}
	dest.queue = []platform.Message{
		memberMessage(member, "c1", "nope1"),
		memberMessage(member, "c1", "nope2"),
		memberMessage(member, "c1", "nope3"),
	}

	cfg := DefaultConfig()
	cfg.AddRoleOnSuccess = false
	cfg.Attempts = 3
	eng, log, prompter := newTestEngine(cfg, "K7TPLX", dest, member)

	sess, err := eng.run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if sess.Outcome != domain.OutcomeExhausted {
		t.Errorf("Expected outcome exhausted, got %s", sess.Outcome)
	}
	if sess.AttemptsTaken != 3 {
		t.Errorf("Expected 3 attempts taken, got %d", sess.AttemptsTaken)
	}
	if len(sess.Responses) != 3 {
		t.Errorf("Expected 3 responses in history, got %d", len(sess.Responses))
	}
	if prompter.count != 2 {
		t.Errorf("Expected 2 re-prompts, got %d", prompter.count)
	}

	want := []EventKind{EventPrompt, EventAnswer, EventAnswer, EventAnswer, EventFailure}
	got := log.kinds()
	if len(got) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestEngine_TimeoutIsTerminal(t *testing.T) {
	member := &fakeMember{id: "u1", name: "alice"}
	dest := &fakeDest{id: "c1"} // no responses queued

	cfg := DefaultConfig()
	cfg.AddRoleOnSuccess = false
	cfg.Attempts = 5
	eng, log, prompter := newTestEngine(cfg, "K7TPLX", dest, member)

	sess, err := eng.run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if sess.Outcome != domain.OutcomeTimeout {
		t.Errorf("Expected outcome timeout, got %s", sess.Outcome)
	}
	if len(sess.Responses) != 0 {
		t.Errorf("Expected empty history, got %v", sess.Responses)
	}
	if prompter.count != 0 {
		t.Errorf("Timeout must not re-prompt, got %d re-prompts", prompter.count)
	}

	want := []EventKind{EventPrompt, EventTimeout}
	got := log.kinds()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected events %v, got %v", want, got)
	}
}

func TestEngine_FirstCorrectAnswerWins(t *testing.T) {
	member := &fakeMember{id: "u1", name: "alice"}
	dest := &fakeDest{id: "c1"}
	dest.queue = []platform.Message{memberMessage(member, "c1", "K7TPLX")}

	cfg := DefaultConfig()
	cfg.AddRoleOnSuccess = false
	cfg.Attempts = 5
	eng, log, _ := newTestEngine(cfg, "K7TPLX", dest, member)

	sess, err := eng.run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if sess.Outcome != domain.OutcomeSuccess {
		t.Errorf("Expected outcome success, got %s", sess.Outcome)
	}
	if sess.AttemptsTaken != 1 {
		t.Errorf("Expected 1 attempt taken, got %d", sess.AttemptsTaken)
	}
	if last := log.last(); last.Kind != EventSuccess {
		t.Errorf("Expected terminal success event, got %s", last.Kind)
	}
}

func TestEngine_RetryThenSuccess(t *testing.T) {
	member := &fakeMember{id: "u1", name: "alice"}
	dest := &fakeDest{id: "c1"}
	dest.queue = []platform.Message{
		memberMessage(member, "c1", "wrong1"),
		memberMessage(member, "c1", "K7TPLX"),
	}

	cfg := DefaultConfig()
	cfg.AddRoleOnSuccess = false
	cfg.Attempts = 3
	cfg.CaseSensitive = true
	eng, _, prompter := newTestEngine(cfg, "K7TPLX", dest, member)

	sess, err := eng.run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if sess.Outcome != domain.OutcomeSuccess {
		t.Errorf("Expected outcome success, got %s", sess.Outcome)
	}
	if sess.AttemptsTaken != 2 {
		t.Errorf("Expected 2 attempts taken, got %d", sess.AttemptsTaken)
	}
	if len(sess.Responses) != 2 || sess.Responses[0] != "wrong1" || sess.Responses[1] != "K7TPLX" {
		t.Errorf("Expected history [wrong1 K7TPLX], got %v", sess.Responses)
	}
	if prompter.count != 1 {
		t.Errorf("Expected 1 re-prompt, got %d", prompter.count)
	}
}

func TestEngine_CaseInsensitiveMatch(t *testing.T) {
	member := &fakeMember{id: "u1", name: "alice"}
	dest := &fakeDest{id: "c1"}
	dest.queue = []platform.Message{memberMessage(member, "c1", "ab3f9q")}

	cfg := DefaultConfig()
	cfg.AddRoleOnSuccess = false
	cfg.CaseSensitive = false
	eng, _, _ := newTestEngine(cfg, "AB3F9Q", dest, member)

	sess, err := eng.run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if sess.Outcome != domain.OutcomeSuccess {
		t.Errorf("Expected case-insensitive match to succeed, got %s", sess.Outcome)
	}
	if len(sess.Responses) != 1 || sess.Responses[0] != "ab3f9q" {
		t.Errorf("Expected normalized history [ab3f9q], got %v", sess.Responses)
	}
}

func TestEngine_CaseSensitiveMismatch(t *testing.T) {
	member := &fakeMember{id: "u1", name: "alice"}
	dest := &fakeDest{id: "c1"}
	dest.queue = []platform.Message{memberMessage(member, "c1", "ab3f9q")}

	cfg := DefaultConfig()
	cfg.AddRoleOnSuccess = false
	cfg.CaseSensitive = true
	cfg.Attempts = 1
	eng, _, _ := newTestEngine(cfg, "AB3F9Q", dest, member)

	sess, err := eng.run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if sess.Outcome != domain.OutcomeExhausted {
		t.Errorf("Expected case-sensitive mismatch to exhaust, got %s", sess.Outcome)
	}
}

func TestEngine_SingleAttemptNeverReprompts(t *testing.T) {
	member := &fakeMember{id: "u1", name: "alice"}
	dest := &fakeDest{id: "c1"}
	dest.queue = []platform.Message{memberMessage(member, "c1", "wrong")}

	cfg := DefaultConfig()
	cfg.AddRoleOnSuccess = false
	cfg.Attempts = 1
	eng, log, prompter := newTestEngine(cfg, "K7TPLX", dest, member)

	sess, err := eng.run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if sess.Outcome != domain.OutcomeExhausted {
		t.Errorf("Expected immediate exhaustion, got %s", sess.Outcome)
	}
	if prompter.count != 0 {
		t.Errorf("Single-attempt session must never re-prompt, got %d", prompter.count)
	}
	want := []EventKind{EventPrompt, EventAnswer, EventFailure}
	got := log.kinds()
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("Expected events %v, got %v", want, got)
	}
}

func TestEngine_IgnoresOtherAuthors(t *testing.T) {
	member := &fakeMember{id: "u1", name: "alice"}
	stranger := &fakeMember{id: "u2", name: "mallory"}
	dest := &fakeDest{id: "c1"}
	// The stranger posts the right answer; it must not count.
	dest.queue = []platform.Message{memberMessage(stranger, "c1", "K7TPLX")}

	cfg := DefaultConfig()
	cfg.AddRoleOnSuccess = false
	eng, _, _ := newTestEngine(cfg, "K7TPLX", dest, member)

	sess, err := eng.run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if sess.Outcome != domain.OutcomeTimeout {
		t.Errorf("Stranger's answer must not qualify, got outcome %s", sess.Outcome)
	}
	if len(sess.Responses) != 0 {
		t.Errorf("Expected empty history, got %v", sess.Responses)
	}
}

func TestEngine_IgnoresOtherChannels(t *testing.T) {
	member := &fakeMember{id: "u1", name: "alice"}
	dest := &fakeDest{id: "c1"}
	dest.queue = []platform.Message{memberMessage(member, "c2", "K7TPLX")}

	cfg := DefaultConfig()
	cfg.AddRoleOnSuccess = false
	eng, _, _ := newTestEngine(cfg, "K7TPLX", dest, member)

	sess, err := eng.run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if sess.Outcome != domain.OutcomeTimeout {
		t.Errorf("Message in another channel must not qualify, got %s", sess.Outcome)
	}
}

func TestEngine_RepromptErrorAborts(t *testing.T) {
	member := &fakeMember{id: "u1", name: "alice"}
	dest := &fakeDest{id: "c1"}
	dest.queue = []platform.Message{
		memberMessage(member, "c1", "wrong1"),
		memberMessage(member, "c1", "wrong2"),
	}

	cfg := DefaultConfig()
	cfg.AddRoleOnSuccess = false
	cfg.Attempts = 3
	eng, _, prompter := newTestEngine(cfg, "K7TPLX", dest, member)
	prompter.err = errors.New("channel gone")

	if _, err := eng.run(context.Background()); err == nil {
		t.Fatal("Expected run to fail when re-prompting fails")
	}
}

func TestEngine_NormalizeIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AddRoleOnSuccess = false
	cfg.CaseSensitive = false
	eng, _, _ := newTestEngine(cfg, "AB3F9Q", &fakeDest{id: "c1"}, &fakeMember{id: "u1"})

	inputs := []string{"AB3F9Q", "ab3f9q", "Ab3F9q", ""}
	for _, in := range inputs {
		once := eng.normalize(in)
		twice := eng.normalize(once)
		if once != twice {
			t.Errorf("normalize(%q) not idempotent: %q != %q", in, once, twice)
		}
	}
}
