package alerts

import (
	"context"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultThrottle is the minimum gap between two alerts with the same key.
	DefaultThrottle = 30 * time.Minute
	// SendTimeout bounds each Bot API request.
	SendTimeout = 15 * time.Second
)

// Sender is the subset of *tgbotapi.BotAPI used for alerts.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends operator alerts to a fixed list of chats.
type Telegram struct {
	sender   Sender
	chatIDs  []int64
	throttle time.Duration
	now      func() time.Time
	log      logrus.FieldLogger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

type Option func(*Telegram)

func WithThrottle(d time.Duration) Option {
	return func(t *Telegram) { t.throttle = d }
}

func WithClock(now func() time.Time) Option {
	return func(t *Telegram) { t.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Telegram) { t.log = l }
}

func NewTelegram(sender Sender, chatIDs []int64, opts ...Option) *Telegram {
	t := &Telegram{
		sender:   sender,
		chatIDs:  append([]int64(nil), chatIDs...),
		throttle: DefaultThrottle,
		now:      time.Now,
		log:      logrus.StandardLogger(),
		lastSent: map[string]time.Time{},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Notify sends text to every alert chat unless key fired within the throttle.
func (t *Telegram) Notify(ctx context.Context, key, text string) {
	if !t.allow(key) {
		return
	}
	for _, id := range t.chatIDs {
		if ctx.Err() != nil {
			return
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := t.sender.Send(msg); err != nil {
			t.log.WithFields(logrus.Fields{
				"chat_id": id,
				"key":     key,
			}).WithError(err).Warn("Error sending alert")
		}
	}
}

func (t *Telegram) allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.throttle {
		return false
	}
	t.lastSent[key] = now
	return true
}

// Nop discards every alert.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) {}

// Dial connects to the Bot API. An empty token yields (nil, nil).
func Dial(token string, debug bool) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, nil
	}
	b, err := dial(token, tgbotapi.APIEndpoint, SendTimeout)
	if err != nil {
		return nil, err
	}
	b.Debug = debug
	return b, nil
}

func dial(token, endpoint string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
}
