package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	healthsvc "lsr_dashboard/internal/modules/health/service"
)

type recordingNotifier struct {
	msgs []string
}

func (r *recordingNotifier) Send(_ context.Context, msg string) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestOutageWatcher_Transitions(t *testing.T) {
	n := &recordingNotifier{}
	w := NewOutageWatcher(n, zap.NewNop())
	w.async = false

	h := healthsvc.NewBridgeHealth()
	h.Subscribe(w.OnTransition)

	for _, ok := range []bool{false, true, false, false, false, false, true} {
		h.RecordOutcome(ok)
	}

	// degraded -> healthy без offline не шумим
	require.Len(t, n.msgs, 2)
	assert.Contains(t, n.msgs[0], "offline")
	assert.Contains(t, n.msgs[0], "3 consecutive")
	assert.Contains(t, n.msgs[1], "recovered")
}

type fakeBot struct {
	sent []tgbot.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbot.Chattable) (tgbot.Message, error) {
	f.sent = append(f.sent, c)
	return tgbot.Message{}, f.err
}

func TestTelegram_Send(t *testing.T) {
	bot := &fakeBot{}
	tg := NewTelegram(bot, 42)

	require.NoError(t, tg.Send(context.Background(), "hello"))
	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbot.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "hello", msg.Text)

	bot.err = errors.New("429")
	assert.Error(t, tg.Send(context.Background(), "again"))
}

func TestTelegram_NoChatIsNoop(t *testing.T) {
	bot := &fakeBot{}
	require.NoError(t, NewTelegram(bot, 0).Send(context.Background(), "x"))
	assert.Empty(t, bot.sent)
}

// gatedNotifier держит первую отправку, пока не откроют gate.
type gatedNotifier struct {
	gate chan struct{}
	once sync.Once

	mu   sync.Mutex
	msgs []string
}

func (g *gatedNotifier) Send(_ context.Context, msg string) error {
	g.once.Do(func() { <-g.gate })
	g.mu.Lock()
	g.msgs = append(g.msgs, msg)
	g.mu.Unlock()
	return nil
}

func (g *gatedNotifier) sent() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.msgs...)
}

func TestOutageWatcher_AsyncKeepsOrder(t *testing.T) {
	n := &gatedNotifier{gate: make(chan struct{})}
	w := NewOutageWatcher(n, zap.NewNop())

	w.OnTransition(healthsvc.Degraded, healthsvc.Offline, 3)
	w.OnTransition(healthsvc.Offline, healthsvc.Healthy, 0)
	close(n.gate)

	require.Eventually(t, func() bool { return len(n.sent()) == 2 }, time.Second, 5*time.Millisecond)
	msgs := n.sent()
	assert.Contains(t, msgs[0], "offline")
	assert.Contains(t, msgs[1], "recovered")
}
