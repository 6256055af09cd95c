package push

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"social-sync/internal/domain"
)

const sourceWebsocket = "websocket"

// WebsocketChannel push-канал поверх websocket. Подключается с id пользователя в запросе.
type WebsocketChannel struct {
	*channel
	url    *url.URL
	dialer *websocket.Dialer
}

// Option настраивает WebsocketChannel.
type Option func(*WebsocketChannel)

// WithDialer задаёт собственный dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *WebsocketChannel) {
		if d != nil {
			c.dialer = d
		}
	}
}

// NewWebsocketChannel создаёт канал. Соединение открывается только после SetUser.
func NewWebsocketChannel(rawURL string, settings Settings, logger zerolog.Logger, opts ...Option) (*WebsocketChannel, error) {
	if rawURL == "" {
		return nil, errors.New("push url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse push url: %w", err)
	}
	base := newChannel(sourceWebsocket, settings, logger.With().Str("source", sourceWebsocket).Logger())
	c := &WebsocketChannel{
		channel: base,
		url:     u,
		dialer:  &websocket.Dialer{HandshakeTimeout: base.settings.HandshakeTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	base.session = c.serve
	return c, nil
}

func (c *WebsocketChannel) serve(ctx context.Context, userID string, established func()) error {
	target := *c.url
	q := target.Query()
	q.Set("userId", userID)
	target.RawQuery = q.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial push socket: %w (HTTP %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial push socket: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	established()
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read push socket: %w", err)
		}
		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			if len(message) == 0 {
				continue
			}
			c.handleFrame(message)
		}
	}
}

var _ domain.PushChannel = (*WebsocketChannel)(nil)
