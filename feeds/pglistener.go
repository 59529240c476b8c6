package feeds

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/kendall-kelly/nafs-essence-api/logging"
)

// DefaultNotifyChannel is the PostgreSQL channel document writes are announced on
const DefaultNotifyChannel = "storefront_documents"

// PGListener forwards PostgreSQL NOTIFY payloads (collection names) into a Hub,
// so writes made by other processes reach this process's push feeds.
type PGListener struct {
	connString string
	channel    string
	hub        *Hub
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

// NewPGListener creates a listener for channel on the database at connString
func NewPGListener(connString, channel string, hub *Hub, logger *slog.Logger) *PGListener {
	if logger == nil {
		logger = logging.Discard()
	}
	return &PGListener{
		connString: connString,
		channel:    channel,
		hub:        hub,
		logger:     logger,
		newBackOff: defaultBackOff,
	}
}

// Run listens until ctx is cancelled, reconnecting with backoff after failures.
// After every (re)connect all feeds are invalidated since notifications may have been missed.
func (l *PGListener) Run(ctx context.Context) error {
	bo := l.newBackOff()
	for {
		err := l.listen(ctx, bo)
		if ctx.Err() != nil {
			return nil
		}

		delay := bo.NextBackOff()
		l.logger.Warn("change listener disconnected", "channel", l.channel, "error", err, "retry_in", delay)

		timer := backoffTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (l *PGListener) listen(ctx context.Context, bo backoff.BackOff) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}

	bo.Reset()
	l.logger.Info("listening for document changes", "channel", l.channel)
	l.hub.NotifyAll()

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.hub.Notify(notification.Payload)
	}
}
