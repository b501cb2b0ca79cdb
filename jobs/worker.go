package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenaforge/esports-platform/services"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	consumerName = "settlement-worker"

	jobAckWait    = 30 * time.Second
	jobMaxDeliver = 5
)

// Worker consumes settlement jobs and executes them against the escrow
// service. The escrow layer's conditional status flips make every job safe
// to redeliver: a second distribution attempt fails with a settled-pool
// conflict, which the worker treats as success.
type Worker struct {
	js       jetstream.JetStream
	escrow   *services.EscrowService
	notifier *services.EmailService
	logger   *slog.Logger

	consumeCtx jetstream.ConsumeContext
}

func NewWorker(nc *nats.Conn, escrow *services.EscrowService, notifier *services.EmailService, logger *slog.Logger) (*Worker, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &Worker{js: js, escrow: escrow, notifier: notifier, logger: logger}, nil
}

// Start creates the durable consumer and begins processing. Explicit acks;
// a failed job is redelivered up to jobMaxDeliver times.
func (w *Worker) Start(ctx context.Context) error {
	consumer, err := w.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: "arena.settlement.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       jobAckWait,
		MaxDeliver:    jobMaxDeliver,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create settlement consumer: %w", err)
	}

	w.consumeCtx, err = consumer.Consume(func(msg jetstream.Msg) {
		w.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start settlement consumer: %w", err)
	}

	w.logger.Info("settlement worker started", slog.String("consumer", consumerName))
	return nil
}

func (w *Worker) Stop() {
	if w.consumeCtx != nil {
		w.consumeCtx.Stop()
	}
}

func (w *Worker) handle(ctx context.Context, msg jetstream.Msg) {
	var job settlementJob
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		w.logger.Error("discarding malformed settlement job",
			slog.String("subject", msg.Subject()), slog.Any("error", err))
		_ = msg.Ack()
		return
	}

	var err error
	switch msg.Subject() {
	case subjectDistribute:
		err = w.escrow.DistributePool(ctx, job.TournamentID, 0)
	case subjectRefund:
		err = w.escrow.RefundPool(ctx, job.TournamentID, 0)
	case subjectNotify:
		err = w.notifier.NotifyTournamentSettled(ctx, job.TournamentID, job.Event)
	default:
		w.logger.Warn("unknown settlement subject", slog.String("subject", msg.Subject()))
		_ = msg.Ack()
		return
	}

	switch {
	case err == nil:
		_ = msg.Ack()
	case w.isTerminal(err):
		// Already settled or gone; redelivery cannot change the outcome.
		w.logger.Info("settlement job resolved without action",
			slog.String("subject", msg.Subject()),
			slog.Int("tournament_id", job.TournamentID),
			slog.Any("reason", err))
		_ = msg.Ack()
	default:
		w.logger.Error("settlement job failed, will be redelivered",
			slog.String("subject", msg.Subject()),
			slog.Int("tournament_id", job.TournamentID),
			slog.Any("error", err))
		_ = msg.Nak()
	}
}

func (w *Worker) isTerminal(err error) bool {
	return errors.Is(err, services.ErrAlreadyDistributed) ||
		errors.Is(err, services.ErrTournamentNotFound) ||
		errors.Is(err, services.ErrPoolNotFound)
}
