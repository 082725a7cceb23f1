package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"aisocial/internal/domain"
	"aisocial/internal/sqlinline"
)

// notifyTimeout bounds the pg_notify round trip so a slow database cannot
// stall a run.
const notifyTimeout = time.Second

// envelope tags an event with the process that produced it.
type envelope struct {
	Origin string               `json:"origin"`
	Event  domain.ProgressEvent `json:"event"`
}

type execer interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

// Publisher forwards events to other processes through Postgres NOTIFY.
type Publisher struct {
	sql    execer
	origin string
	logger zerolog.Logger
}

func NewPublisher(sql execer, origin string, logger zerolog.Logger) *Publisher {
	return &Publisher{sql: sql, origin: origin, logger: logger}
}

func (p *Publisher) Notify(ev domain.ProgressEvent) {
	payload, err := json.Marshal(envelope{Origin: p.origin, Event: ev})
	if err != nil {
		p.logger.Error().Err(err).Str("run_id", ev.RunID).Msg("encode progress event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if _, err := p.sql.Exec(ctx, sqlinline.QNotifyRunProgress, string(payload)); err != nil {
		p.logger.Warn().Err(err).Str("run_id", ev.RunID).Str("stage", string(ev.Stage)).Msg("publish progress event")
	}
}

type notificationSource interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
}

// Listener relays progress published by other processes into a local
// notifier, typically the API's Hub. Events from its own origin are skipped
// because they were delivered locally.
type Listener struct {
	pool   *pgxpool.Pool
	origin string
	sink   Notifier
	logger zerolog.Logger
	retry  time.Duration
}

func NewListener(pool *pgxpool.Pool, origin string, sink Notifier, logger zerolog.Logger) *Listener {
	return &Listener{pool: pool, origin: origin, sink: sink, logger: logger, retry: 2 * time.Second}
}

// Run listens until ctx is done, reconnecting after connection errors.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn().Err(err).Dur("retry_in", l.retry).Msg("progress listener disconnected")
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	// a LISTENing session must not go back to the pool
	conn := pooled.Hijack()
	defer conn.Close(context.WithoutCancel(ctx))

	if _, err := conn.Exec(ctx, sqlinline.QListenRunProgress); err != nil {
		return fmt.Errorf("listen %s: %w", sqlinline.RunProgressChannel, err)
	}
	l.logger.Info().Str("channel", sqlinline.RunProgressChannel).Msg("progress listener connected")
	return l.relay(ctx, conn)
}

func (l *Listener) relay(ctx context.Context, src notificationSource) error {
	for {
		n, err := src.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Channel != sqlinline.RunProgressChannel {
			continue
		}
		l.deliver(n.Payload)
	}
}

func (l *Listener) deliver(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		l.logger.Warn().Err(err).Msg("decode progress notification")
		return
	}
	if env.Origin == l.origin {
		return
	}
	l.sink.Notify(env.Event)
}
