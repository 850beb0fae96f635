package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"upbit_bot/internal/infra"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// dialer creates the bot. It may touch the network.
type dialer func() (botAPI, error)

// Notifier forwards messages to one telegram chat. Notify never blocks:
// messages are queued and sent by Run, and dropped when the queue is full.
// Connect and send failures are logged and swallowed.
type Notifier struct {
	dial    dialer
	bot     botAPI
	chatID  int64
	queue   chan string
	clock   infra.Clock
	metrics *infra.Metrics
	logger  *slog.Logger
}

// NewNotifier prepares a notifier for the bot with token. The bot is
// connected by Run, so an unreachable telegram never blocks startup.
func NewNotifier(token string, chatID int64, queueSize int, metrics *infra.Metrics) *Notifier {
	dial := func() (botAPI, error) {
		bot, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			return nil, fmt.Errorf("error creating bot: %w", err)
		}
		bot.Buffer = 0
		return bot, nil
	}
	return newNotifier(dial, chatID, queueSize, metrics, nil)
}

func newNotifier(dial dialer, chatID int64, queueSize int, metrics *infra.Metrics, clock infra.Clock) *Notifier {
	if queueSize <= 0 {
		queueSize = 100
	}
	if clock == nil {
		clock = infra.SystemClock{}
	}
	return &Notifier{
		dial:    dial,
		chatID:  chatID,
		queue:   make(chan string, queueSize),
		clock:   clock,
		metrics: metrics,
		logger:  slog.Default().With("module", "telegram"),
	}
}

// Notify queues message for delivery.
func (n *Notifier) Notify(message string) {
	select {
	case n.queue <- message:
	default:
		n.metrics.RecordNotifyDropped()
		n.logger.Warn("notification dropped, queue full")
	}
}

// Run connects the bot, retrying with backoff, then sends queued messages
// until ctx is done. Messages still queued at that point are sent before it
// returns.
func (n *Notifier) Run(ctx context.Context) error {
	if !n.connect(ctx) {
		n.logger.Warn("telegram never connected, discarding queue", slog.Int("queued", len(n.queue)))
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			n.drain()
			return nil
		case msg := <-n.queue:
			n.send(msg)
		}
	}
}

// connect reports false when ctx ends before the bot is created.
func (n *Notifier) connect(ctx context.Context) bool {
	for retry := 0; n.bot == nil; retry++ {
		bot, err := n.dial()
		if err == nil {
			n.bot = bot
			n.logger.Info("telegram connected")
			break
		}
		n.logger.Warn("telegram connect failed", slog.Any("error", err), slog.Int("retry", retry))
		if n.clock.Sleep(ctx, infra.CalculateBackoff(retry)) != nil {
			return false
		}
	}
	return true
}

func (n *Notifier) drain() {
	for {
		select {
		case msg := <-n.queue:
			n.send(msg)
		default:
			return
		}
	}
}

func (n *Notifier) send(msg string) {
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, msg)); err != nil {
		n.logger.Warn("telegram send failed", slog.Any("error", err))
	}
}
