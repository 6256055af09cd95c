package push

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"social-sync/internal/domain"
	"social-sync/internal/infra/metrics"
)

// Settings политика переподключения.
type Settings struct {
	MaxAttempts      int
	Backoff          time.Duration
	HandshakeTimeout time.Duration
	// PingInterval тишина, после которой источник проверяет соединение пингом.
	PingInterval time.Duration
}

// DefaultSettings пять попыток с паузой в секунду.
func DefaultSettings() Settings {
	return Settings{
		MaxAttempts:      5,
		Backoff:          time.Second,
		HandshakeTimeout: 5 * time.Second,
		PingInterval:     15 * time.Second,
	}
}

// session держит одно подключение до ошибки или отмены ctx.
// established вызывается, как только подключение готово принимать события.
type session func(ctx context.Context, userID string, established func()) error

// channel общий жизненный цикл источника событий: подписки, смена пользователя, переподключение.
type channel struct {
	source   string
	settings Settings
	log      zerolog.Logger
	session  session

	handlersMu sync.RWMutex
	handlers   map[string]domain.EventHandler
	onConnect  func()

	mu     sync.Mutex
	userID string
	cancel context.CancelFunc
	done   chan struct{}
	closed bool

	connected atomic.Bool
}

func newChannel(source string, settings Settings, logger zerolog.Logger) *channel {
	defaults := DefaultSettings()
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = defaults.MaxAttempts
	}
	if settings.Backoff <= 0 {
		settings.Backoff = defaults.Backoff
	}
	if settings.HandshakeTimeout <= 0 {
		settings.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if settings.PingInterval <= 0 {
		settings.PingInterval = defaults.PingInterval
	}
	return &channel{
		source:   source,
		settings: settings,
		log:      logger,
		handlers: make(map[string]domain.EventHandler),
	}
}

// Subscribe регистрирует обработчик. Повторная подписка заменяет прежний.
func (c *channel) Subscribe(event string, handler domain.EventHandler) {
	c.handlersMu.Lock()
	c.handlers[event] = handler
	c.handlersMu.Unlock()
}

// Unsubscribe снимает обработчик события.
func (c *channel) Unsubscribe(event string) {
	c.handlersMu.Lock()
	delete(c.handlers, event)
	c.handlersMu.Unlock()
}

func (c *channel) OnConnect(fn func()) {
	c.handlersMu.Lock()
	c.onConnect = fn
	c.handlersMu.Unlock()
}

// Connected сообщает, открыто ли соединение сейчас.
func (c *channel) Connected() bool {
	return c.connected.Load()
}

// SetUser переподключает канал под нового пользователя. Пустой id закрывает соединение.
func (c *channel) SetUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if userID == c.userID && c.runningLocked() {
		return
	}

	prevCancel, prevDone := c.cancel, c.done
	c.userID = userID
	c.cancel, c.done = nil, nil
	if prevCancel != nil {
		prevCancel()
	}
	if userID == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	go func() {
		if prevDone != nil {
			<-prevDone
		}
		c.run(ctx, userID, done)
	}()
}

// Close закрывает соединение и ждёт завершения цикла.
func (c *channel) Close() {
	c.mu.Lock()
	c.closed = true
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (c *channel) runningLocked() bool {
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *channel) run(ctx context.Context, userID string, done chan struct{}) {
	defer close(done)
	defer c.setConnected(false)

	log := c.log.With().Str("user_id", userID).Logger()
	failures := 0
	for {
		established := false
		err := c.session(ctx, userID, func() {
			established = true
			failures = 0
			metrics.ObservePushAttempt(c.source, nil)
			c.setConnected(true)
			log.Info().Msg("push: подключено")
			if hook := c.connectHook(); hook != nil {
				hook()
			}
		})
		c.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		if !established {
			failures++
			metrics.ObservePushAttempt(c.source, err)
			log.Warn().Err(err).Int("attempt", failures).Msg("push: не удалось подключиться")
			if failures >= c.settings.MaxAttempts {
				log.Error().Int("attempts", failures).Msg("push: попытки исчерпаны, канал отключён")
				return
			}
		} else {
			log.Warn().Err(err).Msg("push: соединение потеряно")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.settings.Backoff):
		}
	}
}

// dispatch передаёт событие подписчику. Неподписанные события отбрасываются.
func (c *channel) dispatch(ev domain.PushEvent) {
	c.handlersMu.RLock()
	handler := c.handlers[ev.Name]
	c.handlersMu.RUnlock()
	if handler == nil {
		c.log.Debug().Str("event", ev.Name).Msg("push: событие без подписчика")
		return
	}
	metrics.ObservePushEvent(c.source, ev.Name)
	handler(ev)
}

// handleFrame разбирает сырой кадр. Битые кадры пропускаются.
func (c *channel) handleFrame(raw []byte) {
	ev, err := DecodeEvent(raw)
	if err != nil {
		c.log.Debug().Err(err).Msg("push: кадр пропущен")
		return
	}
	c.dispatch(ev)
}

func (c *channel) connectHook() func() {
	c.handlersMu.RLock()
	defer c.handlersMu.RUnlock()
	return c.onConnect
}

func (c *channel) setConnected(v bool) {
	c.connected.Store(v)
	metrics.SetPushConnected(v)
}
