package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultNATSSubject is where an external recognizer publishes transcript updates.
const DefaultNATSSubject = "readaloud.transcripts"

// NATSConfig configures the NATS transcript source.
type NATSConfig struct {
	URL     string
	Subject string
	Name    string
}

// transcriptMessage is the JSON payload published by the recognizer. A message
// carries either a transcript, an error name, or the end-of-capture marker.
type transcriptMessage struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
	Error string `json:"error,omitempty"`
	End   bool   `json:"end,omitempty"`
}

// NATSCapture consumes transcript updates published on a NATS subject by an
// external speech recognizer.
type NATSCapture struct {
	listeners

	cfg    NATSConfig
	logger *zap.Logger

	mu   sync.Mutex
	conn *nats.Conn
	sub  *nats.Subscription
}

// NewNATSCapture returns an idle NATS source. Empty fields take defaults.
func NewNATSCapture(cfg NATSConfig, logger *zap.Logger) *NATSCapture {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultNATSSubject
	}
	if cfg.Name == "" {
		cfg.Name = "readaloud"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSCapture{cfg: cfg, logger: logger.Named("nats")}
}

// Start implements Capture. The connection is opened on first use and kept
// across restarts; only the subscription follows Start/Stop.
func (c *NATSCapture) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return ErrAlreadyStarted
	}
	if c.conn == nil {
		conn, err := nats.Connect(c.cfg.URL, c.options(ctx)...)
		if err != nil {
			return &CaptureError{Kind: KindUnsupported, Err: fmt.Errorf("failed to connect to NATS: %w", err)}
		}
		c.conn = conn
		c.logger.Info("connected", zap.String("url", conn.ConnectedUrl()))
	}
	sub, err := c.conn.Subscribe(c.cfg.Subject, func(msg *nats.Msg) {
		c.handle(msg.Data)
	})
	if err != nil {
		return &CaptureError{Kind: KindTransient, Err: fmt.Errorf("failed to subscribe to %s: %w", c.cfg.Subject, err)}
	}
	c.sub = sub
	c.logger.Debug("subscribed", zap.String("subject", c.cfg.Subject))
	return nil
}

func (c *NATSCapture) options(ctx context.Context) []nats.Option {
	opts := []nats.Option{
		nats.Name(c.cfg.Name),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err == nil {
				return
			}
			c.logger.Warn("disconnected", zap.Error(err))
			c.fail(&CaptureError{Kind: KindTransient, Err: err})
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}
	return opts
}

// Stop implements Capture.
func (c *NATSCapture) Stop() error {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub == nil {
		return ErrNotStarted
	}
	err := sub.Unsubscribe()
	c.end()
	if err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

// Close stops capture and closes the connection.
func (c *NATSCapture) Close() {
	_ = c.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *NATSCapture) handle(data []byte) {
	msg, err := decodeTranscript(data)
	if err != nil {
		c.logger.Warn("dropping malformed transcript message", zap.Error(err))
		return
	}
	switch {
	case msg.Error != "":
		c.fail(&CaptureError{Kind: ParseErrorKind(msg.Error), Err: errors.New(msg.Error)})
	case msg.End:
		c.end()
	default:
		c.transcript(Update{Text: msg.Text, Final: msg.Final})
	}
}

func decodeTranscript(data []byte) (transcriptMessage, error) {
	var msg transcriptMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return transcriptMessage{}, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return msg, nil
}
