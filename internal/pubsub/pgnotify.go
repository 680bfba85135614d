package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Con7105/fantasy-valo/internal/logger"
)

// DefaultNotifyChannel is the Postgres LISTEN channel change events travel on.
const DefaultNotifyChannel = "fantasy_changes"

// PGNotifyPubSub carries change events over Postgres LISTEN/NOTIFY, so a
// deployment that already has the database needs no broker.
type PGNotifyPubSub struct {
	broadcaster
	pool    *pgxpool.Pool
	channel string
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewPGNotifyPubSub(ctx context.Context, databaseURL, channel string) (*PGNotifyPubSub, error) {
	if channel == "" {
		channel = DefaultNotifyChannel
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	p := &PGNotifyPubSub{
		broadcaster: broadcaster{name: "PGNotify"},
		pool:        pool,
		channel:     channel,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	// LISTEN is issued before returning so nothing published afterwards is missed.
	conn, err := p.listen(ctx)
	if err != nil {
		cancel()
		pool.Close()
		return nil, err
	}
	go p.run(listenCtx, conn)
	return p, nil
}

func (p *PGNotifyPubSub) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{p.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", p.channel, err)
	}
	logger.Debug("Listening for Postgres notifications", "channel", p.channel)
	return conn, nil
}

// run receives notifications until ctx is cancelled, re-listening with a
// short backoff when the connection drops.
func (p *PGNotifyPubSub) run(ctx context.Context, conn *pgxpool.Conn) {
	defer close(p.done)

	for {
		err := p.receive(ctx, conn)
		conn.Release()
		if ctx.Err() != nil {
			return
		}
		logger.Warn("Postgres listener lost connection", "error", err)

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			if conn, err = p.listen(ctx); err == nil {
				break
			}
			logger.Warn("Postgres listener reconnect failed", "error", err)
		}
	}
}

func (p *PGNotifyPubSub) receive(ctx context.Context, conn *pgxpool.Conn) error {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var event Event
		if err := json.Unmarshal([]byte(n.Payload), &event); err != nil {
			logger.Error("Failed to unmarshal notification", "error", err, "channel", n.Channel)
			continue
		}
		p.broadcast(event)
	}
}

// Publish sends the event through pg_notify. Payloads over the server limit
// (8000 bytes) are rejected by Postgres and logged.
func (p *PGNotifyPubSub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "table", event.Table)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := p.pool.Exec(ctx, "SELECT pg_notify($1, $2)", p.channel, string(data)); err != nil {
		logger.Error("Failed to publish notification", "error", err, "channel", p.channel, "table", event.Table)
		return
	}
	logger.Debug("Published event via pg_notify", "channel", p.channel, "table", event.Table, "id", event.ID)
}

func (p *PGNotifyPubSub) Close() {
	p.cancel()
	<-p.done
	p.closeAll()
	p.pool.Close()
}
