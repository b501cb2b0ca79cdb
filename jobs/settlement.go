package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	streamName = "ARENA_SETTLEMENT"

	subjectDistribute = "arena.settlement.distribute"
	subjectRefund     = "arena.settlement.refund"
	subjectNotify     = "arena.settlement.notify"
)

// settlementJob is the wire format of one queued settlement task.
type settlementJob struct {
	TournamentID int       `json:"tournament_id"`
	Event        string    `json:"event,omitempty"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Publisher enqueues settlement work onto the durable JetStream stream.
// Lifecycle transitions commit first and publish after; a failed publish is
// logged by the caller and recovered through the manual trigger endpoints.
type Publisher struct {
	js     jetstream.JetStream
	logger *slog.Logger
}

func NewPublisher(nc *nats.Conn, logger *slog.Logger) (*Publisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &Publisher{js: js, logger: logger}, nil
}

// EnsureStream creates or updates the settlement stream. Jobs survive
// restarts on file storage; a week is plenty for any redelivery window.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"arena.settlement.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure settlement stream: %w", err)
	}
	return nil
}

func (p *Publisher) PublishDistribute(ctx context.Context, tournamentID int) error {
	return p.publish(ctx, subjectDistribute, settlementJob{TournamentID: tournamentID, EnqueuedAt: time.Now()})
}

func (p *Publisher) PublishRefund(ctx context.Context, tournamentID int) error {
	return p.publish(ctx, subjectRefund, settlementJob{TournamentID: tournamentID, EnqueuedAt: time.Now()})
}

func (p *Publisher) PublishNotify(ctx context.Context, tournamentID int, event string) error {
	return p.publish(ctx, subjectNotify, settlementJob{TournamentID: tournamentID, Event: event, EnqueuedAt: time.Now()})
}

func (p *Publisher) publish(ctx context.Context, subject string, job settlementJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement job: %w", err)
	}
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	p.logger.Debug("settlement job published",
		slog.String("subject", subject), slog.Int("tournament_id", job.TournamentID))
	return nil
}
