package pubsub

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/Con7105/fantasy-valo/internal/logger"
)

// EmbeddedNATSPubSub runs a NATS server in-process so development gets the
// same JetStream path as production without external infrastructure.
type EmbeddedNATSPubSub struct {
	broadcaster
	server  *server.Server
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
}

// EmbeddedNATSOptions configures the embedded NATS server
type EmbeddedNATSOptions struct {
	Port       int // 0 or -1 picks a free port
	Subject    string
	StreamName string
	StoreDir   string // empty keeps JetStream in memory
}

func DefaultEmbeddedNATSOptions() EmbeddedNATSOptions {
	return EmbeddedNATSOptions{
		Port:       -1,
		Subject:    "fantasy.changes",
		StreamName: "FANTASY_CHANGES",
	}
}

func NewEmbeddedNATSPubSub(opts EmbeddedNATSOptions) (*EmbeddedNATSPubSub, error) {
	port := opts.Port
	if port == 0 {
		port = -1
	}
	if opts.Subject == "" {
		opts.Subject = DefaultEmbeddedNATSOptions().Subject
	}
	if opts.StreamName == "" {
		opts.StreamName = DefaultEmbeddedNATSOptions().StreamName
	}

	serverOpts := &server.Options{
		Port:      port,
		JetStream: true,
		NoSigs:    true,
		StoreDir:  opts.StoreDir,
	}

	ns, err := server.NewServer(serverOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
	}
	ns.SetLogger(&natsLogger{}, false, false)

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
	}

	clientURL := ns.ClientURL()
	logger.Info("Embedded NATS server started", "url", clientURL)

	nc, err := nats.Connect(clientURL, nats.Name("fantasy-valo-embedded"))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	fail := func(err error) (*EmbeddedNATSPubSub, error) {
		nc.Close()
		ns.Shutdown()
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		return fail(fmt.Errorf("failed to create JetStream context: %w", err))
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     opts.StreamName,
		Subjects: []string{opts.Subject},
		Storage:  nats.MemoryStorage,
		MaxAge:   time.Hour,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to create JetStream stream: %w", err))
	}
	logger.Info("JetStream stream created", "stream", opts.StreamName, "subject", opts.Subject)

	ps := &EmbeddedNATSPubSub{
		broadcaster: broadcaster{name: "Embedded NATS"},
		server:      ns,
		nc:          nc,
		js:          js,
		subject:     opts.Subject,
	}
	if ps.sub, err = subscribeJetStream(js, opts.Subject, ps.broadcast); err != nil {
		return fail(err)
	}
	return ps, nil
}

func (p *EmbeddedNATSPubSub) Publish(event Event) {
	publishJetStream(p.js, p.subject, event)
}

// Close shuts down the embedded NATS server
func (p *EmbeddedNATSPubSub) Close() {
	logger.Info("Shutting down embedded NATS server")

	if p.sub != nil {
		p.sub.Unsubscribe()
	}
	p.closeAll()
	if p.nc != nil {
		p.nc.Close()
	}
	if p.server != nil {
		p.server.Shutdown()
		p.server.WaitForShutdown()
	}
}

// ServerURL is the client URL of the embedded server.
func (p *EmbeddedNATSPubSub) ServerURL() string {
	return p.server.ClientURL()
}

// natsLogger adapts our logger to the NATS server logger interface
type natsLogger struct{}

func (l *natsLogger) Noticef(format string, v ...any) {
	logger.Info(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Warnf(format string, v ...any) {
	logger.Warn(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Fatalf(format string, v ...any) {
	logger.Error(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Errorf(format string, v ...any) {
	logger.Error(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Debugf(format string, v ...any) {
	logger.Debug(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Tracef(format string, v ...any) {
	logger.Debug(fmt.Sprintf("[NATS TRACE] "+format, v...))
}
