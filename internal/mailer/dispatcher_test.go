package mailer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeConfigs struct {
	cfg *Config
	err error
}

func (f *fakeConfigs) Get(_ context.Context) (*Config, error) {
	return f.cfg, f.err
}

type fakeRecipients struct {
	emails []string
	err    error
}

func (f *fakeRecipients) ListEmails(_ context.Context) ([]string, error) {
	return f.emails, f.err
}

type fakeSender struct {
	mu      sync.Mutex
	batches [][]Message
	err     error
}

func (f *fakeSender) Send(_ context.Context, _ *Config, msgs []Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, msgs)
	return nil
}

func (f *fakeSender) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func testJob() Job {
	return Job{
		EventName: "Tuesday indoor",
		Date:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		StartTime: "19:00",
		Creator:   "alice",
	}
}

func testConfig() *Config {
	return &Config{Host: "smtp.example.com", Port: 587, Username: "mailer@example.com", Password: "pw"}
}

func newTestDispatcher(c ConfigSource, r RecipientSource, s Sender, queueSize int) *Dispatcher {
	return NewDispatcher(c, r, s, nil, queueSize, time.Second)
}

func TestDispatchNoConfig(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(
		&fakeConfigs{err: ErrNotConfigured},
		&fakeRecipients{emails: []string{"a@example.com"}},
		sender, 1,
	)

	// Must not error, panic, or attempt a send.
	d.dispatch(testJob())

	if sender.batchCount() != 0 {
		t.Errorf("expected no send without mail config, got %d batches", sender.batchCount())
	}
}

func TestDispatchSendsOneMessagePerRecipient(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(
		&fakeConfigs{cfg: testConfig()},
		&fakeRecipients{emails: []string{"a@example.com", "b@example.com", "c@example.com"}},
		sender, 1,
	)

	d.dispatch(testJob())

	if sender.batchCount() != 1 {
		t.Fatalf("expected 1 batch, got %d", sender.batchCount())
	}
	batch := sender.batches[0]
	if len(batch) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(batch))
	}
	if batch[0].To != "a@example.com" || batch[2].To != "c@example.com" {
		t.Errorf("unexpected recipients: %v", batch)
	}
}

func TestDispatchNoRecipients(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(
		&fakeConfigs{cfg: testConfig()},
		&fakeRecipients{},
		sender, 1,
	)

	d.dispatch(testJob())

	if sender.batchCount() != 0 {
		t.Errorf("expected no batch with zero recipients, got %d", sender.batchCount())
	}
}

func TestDispatchSendFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	d := newTestDispatcher(
		&fakeConfigs{cfg: testConfig()},
		&fakeRecipients{emails: []string{"a@example.com"}},
		sender, 1,
	)

	// Failure must be logged only, never propagated.
	d.dispatch(testJob())
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	// No consumer running; capacity 1.
	d := newTestDispatcher(&fakeConfigs{err: ErrNotConfigured}, &fakeRecipients{}, &fakeSender{}, 1)

	if !d.Enqueue(testJob()) {
		t.Fatal("first enqueue should succeed")
	}
	if d.Enqueue(testJob()) {
		t.Error("second enqueue should be dropped when the queue is full")
	}
}

func TestStopDrainsQueue(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(
		&fakeConfigs{cfg: testConfig()},
		&fakeRecipients{emails: []string{"a@example.com"}},
		sender, 4,
	)

	d.Enqueue(testJob())
	d.Enqueue(testJob())

	finished := make(chan struct{})
	go func() {
		d.Start(context.Background())
		close(finished)
	}()

	d.Stop()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	if sender.batchCount() != 2 {
		t.Errorf("expected 2 batches after drain, got %d", sender.batchCount())
	}
}

// blockingSender signals when a send starts and holds it until released.
type blockingSender struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	batches int
}

func newBlockingSender() *blockingSender {
	return &blockingSender{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingSender) Send(_ context.Context, _ *Config, _ []Message) error {
	close(b.started)
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches++
	return nil
}

func (b *blockingSender) batchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.batches
}

func TestStopWaitsForInFlightDispatch(t *testing.T) {
	sender := newBlockingSender()
	d := newTestDispatcher(
		&fakeConfigs{cfg: testConfig()},
		&fakeRecipients{emails: []string{"a@example.com"}},
		sender, 4,
	)

	d.Enqueue(testJob())
	go d.Start(context.Background())

	// Wait until the consumer is mid-send, then ask for shutdown.
	<-sender.started

	stopReturned := make(chan struct{})
	go func() {
		d.Stop()
		close(stopReturned)
	}()

	select {
	case <-stopReturned:
		t.Fatal("Stop returned while a dispatch was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(sender.release)
	select {
	case <-stopReturned:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the dispatch completed")
	}

	if sender.batchCount() != 1 {
		t.Errorf("expected the in-flight batch to complete, got %d batches", sender.batchCount())
	}
}

func TestComposeMessages(t *testing.T) {
	msgs := composeMessages(testJob(), []string{"a@example.com", "b@example.com"})

	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.Subject != notifySubject {
			t.Errorf("unexpected subject %q", m.Subject)
		}
		for _, want := range []string{"Tuesday indoor", "2026-09-01", "19:00", "alice"} {
			if !strings.Contains(m.Body, want) {
				t.Errorf("body missing %q:\n%s", want, m.Body)
			}
		}
	}
	if msgs[0].Body != msgs[1].Body {
		t.Error("all recipients should get the same body")
	}
}
