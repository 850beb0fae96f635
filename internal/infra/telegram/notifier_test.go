package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"upbit_bot/internal/infra"
	apptest "upbit_bot/internal/testutil"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBot struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}
	return tgbotapi.Message{}, m.err
}

func (m *mockBot) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, msg := range m.sent {
		out[i] = msg.Text
	}
	return out
}

func static(bot botAPI) dialer {
	return func() (botAPI, error) { return bot, nil }
}

func TestNotifier_SendsInOrder(t *testing.T) {
	bot := &mockBot{}
	n := newNotifier(static(bot), 42, 10, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, n.Run(ctx))
	}()

	n.Notify("first")
	n.Notify("second")

	assert.Eventually(t, func() bool { return len(bot.texts()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, bot.texts())

	bot.mu.Lock()
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	bot.mu.Unlock()

	cancel()
	<-done
}

func TestNotifier_DropsWhenFull(t *testing.T) {
	metrics := infra.NewMetrics()
	n := newNotifier(static(&mockBot{}), 1, 2, metrics, nil)

	// Run is not started, so the queue only fills up.
	n.Notify("a")
	n.Notify("b")
	n.Notify("c")

	assert.Len(t, n.queue, 2)
	expected := `
# HELP upbit_bot_notifications_dropped_total Notifications dropped because the queue was full or delivery failed.
# TYPE upbit_bot_notifications_dropped_total counter
upbit_bot_notifications_dropped_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected),
		"upbit_bot_notifications_dropped_total"))
}

func TestNotifier_SwallowsSendErrors(t *testing.T) {
	bot := &mockBot{err: errors.New("telegram down")}
	n := newNotifier(static(bot), 1, 4, nil, nil)

	n.Notify("x")
	n.Notify("y")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, n.Run(ctx), "queued messages are drained on shutdown")
	assert.Equal(t, []string{"x", "y"}, bot.texts())
}

func TestNotifier_RetriesConnectInRun(t *testing.T) {
	bot := &mockBot{}
	attempts := 0
	dial := func() (botAPI, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("getMe: connection refused")
		}
		return bot, nil
	}
	clock := apptest.NewFakeClock(time.Unix(0, 0))
	n := newNotifier(dial, 1, 4, nil, clock)

	// queued before the bot exists
	n.Notify("started")
	assert.Zero(t, attempts, "nothing is dialed before Run")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, n.Run(ctx))
	}()

	assert.Eventually(t, func() bool { return len(bot.texts()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
	assert.Equal(t, []string{"started"}, bot.texts())
}

func TestNotifier_GivesUpOnShutdown(t *testing.T) {
	dial := func() (botAPI, error) { return nil, errors.New("unreachable") }
	n := newNotifier(dial, 1, 4, nil, nil)
	n.Notify("lost")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, n.Run(ctx))
}
