package broadcast

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/housecup/backend/internal/database"
)

// Postgres rejects NOTIFY payloads of 8000 bytes or more
const maxNotifyPayload = 7999

// Relay joins the buses of several server instances through Postgres
// LISTEN/NOTIFY. Events this instance publishes are forwarded with
// pg_notify; notifications from other instances are re-published locally.
type Relay struct {
	bus      *Bus
	db       *sql.DB
	listener *pq.Listener
	channel  string
	logger   *logrus.Entry
}

func NewRelay(bus *Bus, db *sql.DB, dsn, channel string, logger *logrus.Logger) *Relay {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Relay{
		bus:     bus,
		db:      db,
		channel: channel,
		logger:  logger.WithFields(logrus.Fields{"component": "relay", "channel": channel}),
	}
	r.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, r.onListenerEvent)
	return r
}

func (r *Relay) onListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
		r.logger.WithError(err).Warn("relay listener lost its connection")
	case pq.ListenerEventReconnected:
		// notifications sent while disconnected are gone; clients re-fetch on their own reconnect
		r.logger.Info("relay listener reconnected")
	}
}

// Run relays events until ctx is cancelled
func (r *Relay) Run(ctx context.Context) error {
	if err := r.listener.Listen(r.channel); err != nil {
		return fmt.Errorf("error listening on %s: %w", r.channel, err)
	}
	defer r.listener.Close()

	subID, local := r.bus.Subscribe()
	defer r.bus.Unsubscribe(subID)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case evt, ok := <-local:
				if !ok {
					return nil
				}
				if evt.Origin != r.bus.Origin() {
					continue
				}
				r.forward(ctx, evt)
			}
		}
	})
	g.Go(func() error {
		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case n := <-r.listener.Notify:
				// nil means the connection was re-established
				if n == nil {
					continue
				}
				r.receive(n.Extra)
			case <-ping.C:
				if err := r.listener.Ping(); err != nil {
					r.logger.WithError(err).Warn("relay listener ping failed")
				}
			}
		}
	})

	r.logger.Info("relay started")
	return g.Wait()
}

func (r *Relay) forward(ctx context.Context, evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		r.logger.WithError(err).WithField("type", evt.Type).Error("error encoding event for relay")
		return
	}
	if len(payload) > maxNotifyPayload {
		r.logger.WithFields(logrus.Fields{"type": evt.Type, "size": len(payload)}).Warn("event too large to relay")
		return
	}

	err = database.Retry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", r.channel, string(payload))
		return err
	})
	if err != nil {
		// delivery is best effort; the write that caused the event has committed
		r.logger.WithError(err).WithField("type", evt.Type).Warn("error relaying event")
	}
}

func (r *Relay) receive(payload string) {
	evt, ok, err := decodeRemote(payload, r.bus.Origin())
	if err != nil {
		r.logger.WithError(err).Warn("error decoding relayed event")
		return
	}
	if ok {
		r.bus.Publish(evt)
	}
}

// decodeRemote parses a relayed event. Events that originated here are
// reported as not ok so they are not delivered twice.
func decodeRemote(payload, origin string) (Event, bool, error) {
	var wire struct {
		ID        string          `json:"id"`
		Type      EventType       `json:"type"`
		Origin    string          `json:"origin"`
		Timestamp time.Time       `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Event{}, false, err
	}
	if wire.Origin == "" || wire.Type == "" {
		return Event{}, false, fmt.Errorf("relayed event %q is missing origin or type", wire.ID)
	}
	if wire.Origin == origin {
		return Event{}, false, nil
	}
	return Event{
		ID:        wire.ID,
		Type:      wire.Type,
		Origin:    wire.Origin,
		Timestamp: wire.Timestamp,
		Data:      wire.Data,
	}, true, nil
}
