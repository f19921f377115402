// Package casting implements the casting-app side of a TV casting session:
// choosing an endpoint on a remote player, sending cluster commands to it and
// managing attribute subscriptions.
//
// A Session is created with Connect once a Transport to the player exists.
// Connect enumerates the player's endpoints; selection then uses a Selector:
//
//	s, err := casting.Connect(ctx, casting.SessionConfig{Player: p, Transport: t})
//	ep, err := s.Endpoint(casting.ByVendorID(65521))
//	res, err := s.Dispatcher().Invoke(ctx, ep, 0x0506, 0x00, datamodel.Struct(nil)).Await(ctx)
//	defer s.Close()
package casting

import (
	"context"
	"sync"
	"time"

	"github.com/backkem/matter-tv/pkg/worker"
	"github.com/google/uuid"
	"github.com/pion/logging"
)

// DefaultEnumerateTimeout bounds endpoint enumeration in Connect when the
// context has no deadline.
const DefaultEnumerateTimeout = 10 * time.Second

// SessionConfig configures a Session.
type SessionConfig struct {
	// Player is the remote player. Required.
	Player *Player

	// Transport carries requests to the player. Required. The session owns
	// it and closes it on Close.
	Transport Transport

	// EnumerateTimeout bounds endpoint enumeration.
	// Defaults to DefaultEnumerateTimeout.
	EnumerateTimeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration.
func (c *SessionConfig) Validate() error {
	if c.Player == nil {
		return ErrNoPlayer
	}
	if c.Transport == nil {
		return ErrNoTransport
	}
	return nil
}

func (c *SessionConfig) applyDefaults() {
	if c.EnumerateTimeout <= 0 {
		c.EnumerateTimeout = DefaultEnumerateTimeout
	}
}

// Session is a connection to one casting player. It owns the transport, the
// worker that serializes outbound requests, the dispatcher and the
// subscription set.
type Session struct {
	id        string
	player    *Player
	transport Transport
	queue     *worker.Queue
	log       logging.LeveledLogger

	dispatcher    *Dispatcher
	subscriptions *SubscriptionManager

	mu     sync.Mutex
	closed bool
}

// Connect enumerates the endpoints of the configured player and returns a
// ready session. On failure the transport is closed.
func Connect(ctx context.Context, config SessionConfig) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	s := &Session{
		id:        uuid.New().String(),
		transport: config.Transport,
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("casting")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.EnumerateTimeout)
		defer cancel()
	}

	endpoints, err := config.Transport.Endpoints(ctx)
	if err != nil {
		config.Transport.Close()
		return nil, wrapTransportError("enumerate endpoints", err)
	}
	s.player = config.Player.WithEndpoints(endpoints)

	s.queue = worker.New(worker.Config{
		Name:          "casting-worker",
		LoggerFactory: config.LoggerFactory,
	})
	s.dispatcher = newDispatcher(s.transport, s.queue, s.log)
	s.subscriptions = newSubscriptionManager(s.transport, s.queue, s.log)

	if s.log != nil {
		s.log.Infof("session %s connected to %s with %d endpoints", s.id, s.player, len(endpoints))
	}
	return s, nil
}

// ID returns the unique session identifier.
func (s *Session) ID() string {
	return s.id
}

// Player returns the player with its enumerated endpoints.
func (s *Session) Player() *Player {
	return s.player
}

// Endpoint selects an endpoint of the player.
func (s *Session) Endpoint(sel Selector) (*Endpoint, error) {
	return Resolve(s.player, sel)
}

// Dispatcher returns the session's command dispatcher.
func (s *Session) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Subscriptions returns the session's subscription set.
func (s *Session) Subscriptions() *SubscriptionManager {
	return s.subscriptions
}

// Close cancels all subscriptions, drains the worker and closes the
// transport. Calling Close again returns ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.subscriptions.ShutdownAll()
	s.queue.Close()

	err := s.transport.Close()
	if s.log != nil {
		s.log.Infof("session %s closed", s.id)
	}
	return err
}
