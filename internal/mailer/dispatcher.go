package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is one notification request: an event was created and every known email
// address should hear about it.
type Job struct {
	EventName string
	Date      time.Time
	StartTime string
	Creator   string
}

// Message is a composed notification for a single recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// ConfigSource loads the outgoing-mail configuration. It returns
// ErrNotConfigured when notifications are disabled.
type ConfigSource interface {
	Get(ctx context.Context) (*Config, error)
}

// RecipientSource snapshots the recipient email addresses at dispatch time.
type RecipientSource interface {
	ListEmails(ctx context.Context) ([]string, error)
}

// Sender delivers a batch of messages over one mail-submission connection.
// It exists to allow testing without a real SMTP server.
type Sender interface {
	Send(ctx context.Context, cfg *Config, msgs []Message) error
}

// Metrics is the subset of metric hooks the dispatcher reports into.
type Metrics interface {
	NotifyEnqueued()
	NotifyDropped()
	NotifySent(count int)
	NotifyFailed()
	SetNotifyQueueDepth(depth int)
}

// Dispatcher fans out event notifications in the background. Jobs go through
// a bounded queue drained by a single consumer goroutine, so a slow or hung
// mail server never blocks an HTTP request and concurrent dispatch is capped
// at one batch at a time. Delivery is best-effort: failures are logged and
// never retried.
type Dispatcher struct {
	configs     ConfigSource
	recipients  RecipientSource
	sender      Sender
	metrics     Metrics
	queue       chan Job
	done        chan struct{}
	stopped     chan struct{}
	stopOnce    sync.Once
	sendTimeout time.Duration
}

// NewDispatcher creates a dispatcher with the given queue capacity. metrics
// may be nil.
func NewDispatcher(configs ConfigSource, recipients RecipientSource, sender Sender, metrics Metrics, queueSize int, sendTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		configs:     configs,
		recipients:  recipients,
		sender:      sender,
		metrics:     metrics,
		queue:       make(chan Job, queueSize),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		sendTimeout: sendTimeout,
	}
}

// Enqueue hands a job to the background consumer. It never blocks: when the
// queue is full the job is dropped and logged, and false is returned.
func (d *Dispatcher) Enqueue(job Job) bool {
	select {
	case d.queue <- job:
		if d.metrics != nil {
			d.metrics.NotifyEnqueued()
			d.metrics.SetNotifyQueueDepth(len(d.queue))
		}
		return true
	default:
		slog.Warn("notification queue full, dropping job", "event", job.EventName)
		if d.metrics != nil {
			d.metrics.NotifyDropped()
		}
		return false
	}
}

// Start runs the consumer loop. It blocks until Stop is called or the context
// is cancelled; queued jobs are drained before returning.
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.stopped)

	for {
		select {
		case job := <-d.queue:
			d.dispatch(job)
			if d.metrics != nil {
				d.metrics.SetNotifyQueueDepth(len(d.queue))
			}
		case <-ctx.Done():
			d.drain()
			return
		case <-d.done:
			d.drain()
			return
		}
	}
}

// Stop signals the consumer loop to exit and blocks until it has finished
// draining the queue, including any dispatch in flight. Start must have been
// launched before Stop is called.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.done) })
	<-d.stopped
}

func (d *Dispatcher) drain() {
	for {
		select {
		case job := <-d.queue:
			d.dispatch(job)
		default:
			return
		}
	}
}

// dispatch sends one notification batch. All failures are logged only; the
// triggering request has long since completed.
func (d *Dispatcher) dispatch(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	// Config is read at dispatch time so admin edits take effect from the
	// next notification onward.
	cfg, err := d.configs.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			slog.Info("mail configuration not set, skipping notification", "event", job.EventName)
			return
		}
		slog.Error("failed to load mail configuration", "error", err)
		if d.metrics != nil {
			d.metrics.NotifyFailed()
		}
		return
	}

	emails, err := d.recipients.ListEmails(ctx)
	if err != nil {
		slog.Error("failed to list notification recipients", "error", err)
		if d.metrics != nil {
			d.metrics.NotifyFailed()
		}
		return
	}
	if len(emails) == 0 {
		slog.Info("no notification recipients", "event", job.EventName)
		return
	}

	msgs := composeMessages(job, emails)
	if err := d.sender.Send(ctx, cfg, msgs); err != nil {
		slog.Error("failed to send notification emails",
			"event", job.EventName, "recipients", len(emails), "error", err)
		if d.metrics != nil {
			d.metrics.NotifyFailed()
		}
		return
	}

	slog.Info("notification emails sent", "event", job.EventName, "recipients", len(emails))
	if d.metrics != nil {
		d.metrics.NotifySent(len(emails))
	}
}

const notifySubject = "New session on the calendar!"

// composeMessages builds one plaintext message per recipient from the fixed
// notification template.
func composeMessages(job Job, emails []string) []Message {
	body := fmt.Sprintf(
		"Be there or be square!\n\n"+
			"Session: %s\n"+
			"Date: %s\n"+
			"Time: %s\n"+
			"Booked by: %s\n",
		job.EventName, job.Date.Format("2006-01-02"), job.StartTime, job.Creator,
	)

	msgs := make([]Message, len(emails))
	for i, to := range emails {
		msgs[i] = Message{To: to, Subject: notifySubject, Body: body}
	}
	return msgs
}
