// Package events publishes traversal events so other processes (the gallery
// indexer, a publisher) can react to new slides without polling the disk.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"storysnap/pkg/logger"
	"storysnap/pkg/traversal"
)

// DefaultSubject prefixes every event subject
const DefaultSubject = "storysnap.slides"

// Publisher is a traversal.Notifier that holds a connection
type Publisher interface {
	traversal.Notifier
	Close() error
}

// conn is the part of *nats.Conn the publisher uses
type conn interface {
	Publish(subject string, data []byte) error
	Flush() error
	Close()
}

// NATSPublisher sends each event as JSON to <subject>.<kind>
type NATSPublisher struct {
	nc      conn
	subject string
	logger  logger.Logger
}

// Connect dials the NATS server at url
func Connect(url, subject string, log logger.Logger) (*NATSPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("storysnap"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return newNATSPublisher(nc, subject, log), nil
}

func newNATSPublisher(nc conn, subject string, log logger.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &NATSPublisher{
		nc:      nc,
		subject: strings.TrimSuffix(subject, "."),
		logger:  log.WithField("component", "events"),
	}
}

// Subject returns the subject an event of kind is published on
func (p *NATSPublisher) Subject(kind traversal.EventKind) string {
	return Subject(p.subject, kind)
}

// Notify publishes e. Failures are logged and never interrupt the traversal.
func (p *NATSPublisher) Notify(e traversal.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to encode event")
		return
	}
	if err := p.nc.Publish(p.Subject(e.Kind), data); err != nil {
		p.logger.WithError(err).Warn("Failed to publish event")
		return
	}
	if e.Kind == traversal.EventDone {
		if err := p.nc.Flush(); err != nil {
			p.logger.WithError(err).Warn("Failed to flush events")
		}
	}
}

// Close flushes pending events and closes the connection
func (p *NATSPublisher) Close() error {
	err := p.nc.Flush()
	p.nc.Close()
	return err
}

// Subject joins a prefix and an event kind
func Subject(prefix string, kind traversal.EventKind) string {
	if prefix == "" {
		prefix = DefaultSubject
	}
	return strings.TrimSuffix(prefix, ".") + "." + string(kind)
}

// Listen subscribes to every event kind under subject and calls handler until
// ctx is done. Undecodable messages are skipped.
func Listen(ctx context.Context, url, subject string, handler func(traversal.Event), log logger.Logger) error {
	if url == "" {
		url = nats.DefaultURL
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	nc, err := nats.Connect(url, nats.Name("storysnap-listener"), nats.MaxReconnects(-1))
	if err != nil {
		return fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe(Subject(subject, "*"), func(msg *nats.Msg) {
		e, err := Decode(msg.Data)
		if err != nil {
			log.WithError(err).Debug("Skipping undecodable event")
			return
		}
		handler(e)
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	<-ctx.Done()
	return sub.Drain()
}

// Decode parses one published event
func Decode(data []byte) (traversal.Event, error) {
	var e traversal.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

// Nop discards every event
type Nop struct{}

func (Nop) Notify(traversal.Event) {}
func (Nop) Close() error           { return nil }

// New returns a NATS publisher when url is set and Nop otherwise
func New(url, subject string, log logger.Logger) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}
	return Connect(url, subject, log)
}
