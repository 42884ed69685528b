package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"coursewatch/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeTelegram struct {
	mutex    sync.Mutex
	paths    []string
	messages []sendMessageRequest
	fail     bool
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.paths = append(f.paths, r.URL.Path)
	var req sendMessageRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.messages = append(f.messages, req)

	w.Header().Set("content-type", "application/json")
	if f.fail {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
		return
	}
	w.Write([]byte(`{"ok":true,"result":{}}`))
}

func TestTelegramSend(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	telegram := NewTelegram(TelegramOptions{
		BotToken: "123:abc",
		ChatId:   "-1001",
		ApiUrl:   srv.URL,
	}, telemetry.NewMemoryAPI())

	ok := telegram.Send(context.Background(), "<b>課程報名開放通知！</b>")
	require.True(t, ok)

	require.Equal(t, []string{"/bot123:abc/sendMessage"}, fake.paths)
	require.Equal(t, []sendMessageRequest{{
		ChatId:    "-1001",
		Text:      "<b>課程報名開放通知！</b>",
		ParseMode: "HTML",
	}}, fake.messages)
}

func TestTelegramSendsShareRateLimit(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	telegram := NewTelegram(TelegramOptions{BotToken: "123:abc", ChatId: "-1001", ApiUrl: srv.URL}, telemetry.NewMemoryAPI())

	start := time.Now()
	require.True(t, telegram.Send(context.Background(), "first"))
	require.True(t, telegram.Send(context.Background(), "second"))
	// the second send waited for the limiter the first one drained
	require.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)
	require.Len(t, fake.messages, 2)
	require.Equal(t, "second", fake.messages[1].Text)
}

func TestTelegramFailureIsReported(t *testing.T) {
	fake := &fakeTelegram{fail: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	tel := telemetry.NewMemoryAPI()
	telegram := NewTelegram(TelegramOptions{BotToken: "123:abc", ChatId: "nope", ApiUrl: srv.URL}, tel)

	require.False(t, telegram.Send(context.Background(), "hello"))
	require.True(t, tel.Has(telemetry.KindBroken, report_telegram_send))
}

func TestTelegramUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tel := telemetry.NewMemoryAPI()
	telegram := NewTelegram(TelegramOptions{BotToken: "123:abc", ChatId: "1", ApiUrl: url}, tel)
	require.False(t, telegram.Send(context.Background(), "hello"))
	require.True(t, tel.Has(telemetry.KindBroken, report_telegram_send))
}

type recordingNotifier struct {
	ok    bool
	texts []string
}

func (r *recordingNotifier) Send(_ context.Context, text string) bool {
	r.texts = append(r.texts, text)
	return r.ok
}

func TestMulti(t *testing.T) {
	a := &recordingNotifier{ok: true}
	b := &recordingNotifier{ok: false}

	require.True(t, Multi{a}.Send(context.Background(), "x"))
	require.False(t, Multi{a, b}.Send(context.Background(), "y"))
	require.Equal(t, []string{"x", "y"}, a.texts)
	require.Equal(t, []string{"y"}, b.texts)
}

func TestStripTags(t *testing.T) {
	require.Equal(t, "課程報名開放通知！\n快去報名吧！", stripTags("<b>課程報名開放通知！</b>\n快去報名吧！"))
}
