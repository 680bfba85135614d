package pubsub

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/Con7105/fantasy-valo/internal/logger"
)

// NATSPubSub carries change events over a NATS JetStream subject so every
// instance sees every write.
type NATSPubSub struct {
	broadcaster
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
}

// NewNATSPubSub connects to natsURL, ensures the stream exists and starts
// delivering new messages on subject to local subscribers.
func NewNATSPubSub(natsURL, subject, streamName string) (*NATSPubSub, error) {
	nc, err := nats.Connect(natsURL, nats.Name("fantasy-valo"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(streamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
		logger.Info("JetStream stream created", "stream", streamName, "subject", subject)
	}

	p := &NATSPubSub{
		broadcaster: broadcaster{name: "NATS"},
		nc:          nc,
		js:          js,
		subject:     subject,
	}
	if p.sub, err = subscribeJetStream(js, subject, p.broadcast); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

// subscribeJetStream delivers only messages published after the call.
func subscribeJetStream(js nats.JetStreamContext, subject string, deliver func(Event)) (*nats.Subscription, error) {
	sub, err := js.Subscribe(subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to unmarshal event from JetStream", "error", err)
			msg.Term()
			return
		}
		deliver(event)
		msg.Ack()
	}, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	logger.Debug("Subscribed to JetStream", "subject", subject)
	return sub, nil
}

func publishJetStream(js nats.JetStreamContext, subject string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "table", event.Table)
		return
	}
	if _, err := js.Publish(subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", subject, "table", event.Table)
		return
	}
	logger.Debug("Published event to NATS", "subject", subject, "table", event.Table, "id", event.ID)
}

// Publish publishes an event to NATS JetStream
func (p *NATSPubSub) Publish(event Event) {
	publishJetStream(p.js, p.subject, event)
}

// Close closes the NATS connection
func (p *NATSPubSub) Close() {
	if p.sub != nil {
		p.sub.Unsubscribe()
	}
	p.closeAll()
	if p.nc != nil {
		p.nc.Close()
	}
}
