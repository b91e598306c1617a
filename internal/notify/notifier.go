// Package notify announces finished publish runs on NATS.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
	"github.com/fairspec/profilepub/internal/logfields"
	"github.com/fairspec/profilepub/internal/profiles"
	"github.com/fairspec/profilepub/internal/retry"
)

// Message is the JSON body published after a successful run.
type Message struct {
	RunID       string            `json:"run_id"`
	Version     string            `json:"version"`
	Tags        []string          `json:"tags"`
	URLs        map[string]string `json:"urls"`
	Commit      string            `json:"commit,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
}

// NewMessage builds the notification for a finished run. URLs maps each tag
// to the base URL of its published copy.
func NewMessage(rep *profiles.Report, baseURL string) Message {
	tags := rep.TagNames()
	urls := make(map[string]string, len(tags))
	base := strings.TrimRight(baseURL, "/")
	for _, tag := range tags {
		urls[tag] = base + "/" + tag + "/"
	}
	return Message{
		RunID:       rep.RunID,
		Version:     rep.Version,
		Tags:        tags,
		URLs:        urls,
		Commit:      rep.Commit,
		PublishedAt: rep.StartedAt.Add(rep.Duration).UTC(),
	}
}

// Notifier publishes Messages on a NATS subject. A connection is opened per
// message.
type Notifier struct {
	url     string
	subject string
	timeout time.Duration
	baseURL string
	policy  retry.Policy
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithRetry retries failed sends according to p. An invalid policy is
// logged and the default policy is kept.
func WithRetry(p retry.Policy) Option {
	return func(n *Notifier) {
		if err := p.Validate(); err != nil {
			slog.Warn("Ignoring invalid notification retry policy", logfields.Error(err))
			return
		}
		n.policy = p
	}
}

// New creates a Notifier. baseURL is used to build the per-tag URLs.
func New(natsURL, subject string, timeout time.Duration, baseURL string, opts ...Option) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	n := &Notifier{
		url:     natsURL,
		subject: subject,
		timeout: timeout,
		baseURL: baseURL,
		policy:  retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subject returns the subject messages are published on.
func (n *Notifier) Subject() string { return n.subject }

// Send publishes msg and waits for the server to acknowledge the flush.
// Failed attempts are retried per the notifier's retry policy.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return ferrors.NotifyError("failed to marshal notification").WithCause(err).Build()
	}

	err = n.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 0 {
			slog.Debug("Retrying profiles notification", logfields.RunID(msg.RunID), slog.Int("attempt", attempt))
		}
		return n.send(ctx, data)
	})
	if err != nil {
		return err
	}

	slog.Info("Published profiles notification",
		logfields.RunID(msg.RunID),
		logfields.Version(msg.Version),
		slog.String("subject", n.subject))
	return nil
}

func (n *Notifier) send(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	conn, err := nats.Connect(n.url,
		nats.Name("profilepub"),
		nats.Timeout(n.timeout),
		nats.NoReconnect())
	if err != nil {
		return ferrors.NotifyError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", n.url).
			Build()
	}
	defer conn.Close()

	if err := conn.Publish(n.subject, data); err != nil {
		return ferrors.NotifyError("failed to publish notification").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		return ferrors.NotifyError("failed to flush notification").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}
	return nil
}

// Observer returns a profiles.Observer that sends a message after every
// successful run. Sends, retries included, are bound to ctx. Failures are
// logged as warnings.
func (n *Notifier) Observer(ctx context.Context) profiles.Observer {
	return &runObserver{n: n, ctx: ctx}
}

type runObserver struct {
	profiles.NoopObserver
	n   *Notifier
	ctx context.Context
}

func (o *runObserver) OnRunComplete(rep *profiles.Report, err error) {
	if err != nil {
		return
	}
	if sendErr := o.n.Send(o.ctx, NewMessage(rep, o.n.baseURL)); sendErr != nil {
		slog.Warn("Profiles notification failed",
			logfields.RunID(rep.RunID),
			logfields.Error(sendErr))
	}
}
