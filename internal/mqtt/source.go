package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/rzbill/mqtap/internal/session"
	logpkg "github.com/rzbill/mqtap/pkg/log"
)

// Options configures the broker connection.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	// Topics are the subscription filters; all share QoS.
	Topics    []string
	QoS       byte
	KeepAlive time.Duration

	Logger logpkg.Logger
}

// Source is the connection to the tapped broker.
type Source struct {
	opts   Options
	mgr    *session.Manager
	logger logpkg.Logger

	mu     sync.Mutex
	client paho.Client
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSource builds a Source feeding mgr. Start must be called to connect.
func NewSource(opts Options, mgr *session.Manager) *Source {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	return &Source{opts: opts, mgr: mgr, logger: logger.With(logpkg.Component("mqtt"))}
}

// subscriptions maps every configured topic filter to the shared QoS.
func subscriptions(topics []string, qos byte) map[string]byte {
	subs := make(map[string]byte, len(topics))
	for _, t := range topics {
		if t != "" {
			subs[t] = qos
		}
	}
	if len(subs) == 0 {
		subs["#"] = qos
	}
	return subs
}

// Start connects to the broker. Reconnects are automatic; every successful
// (re)connect begins a fresh session and every loss ends the current one.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)

	co := paho.NewClientOptions().
		AddBroker(s.opts.BrokerURL).
		SetClientID(s.opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOrderMatters(true)
	if s.opts.Username != "" {
		co.SetUsername(s.opts.Username)
		co.SetPassword(s.opts.Password)
	}
	if s.opts.KeepAlive > 0 {
		co.SetKeepAlive(s.opts.KeepAlive)
	}
	co.SetOnConnectHandler(s.onConnect)
	co.SetConnectionLostHandler(s.onConnectionLost)

	client := paho.NewClient(co)
	s.client = client
	s.mu.Unlock()

	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect %s: %w", s.opts.BrokerURL, err)
	}
	return nil
}

// sessionCtx is the context sessions run under; nil before Start.
func (s *Source) sessionCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *Source) onConnect(c paho.Client) {
	s.logger.Info("broker connected", logpkg.Str("broker", s.opts.BrokerURL))
	s.mgr.Begin(s.sessionCtx())

	subs := subscriptions(s.opts.Topics, s.opts.QoS)
	token := c.SubscribeMultiple(subs, s.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Error("subscribe failed", logpkg.Err(err))
	}
}

func (s *Source) onConnectionLost(_ paho.Client, err error) {
	s.logger.Warn("broker connection lost", logpkg.Err(err))
	s.mgr.End()
}

func (s *Source) onMessage(_ paho.Client, m paho.Message) {
	sess := s.mgr.Current()
	if sess == nil {
		return
	}
	if err := sess.Offer(s.sessionCtx(), m.Topic(), m.Payload(), m.Qos(), m.Retained()); err != nil {
		// cancellation and completion are lifecycle, not faults
		s.logger.Debug("offer rejected", logpkg.Err(err))
	}
}

// Close disconnects from the broker and ends the session.
func (s *Source) Close() {
	s.mu.Lock()
	cancel, client := s.cancel, s.client
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
	s.mgr.End()
}
