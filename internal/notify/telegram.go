package notify

import (
	"context"
	"fmt"
	"time"

	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const report_telegram_send = "telegram.send"

const DefaultTelegramApi = "https://api.telegram.org"

type TelegramOptions struct {
	BotToken string
	ChatId   string
	// ApiUrl defaults to DefaultTelegramApi.
	ApiUrl string
}

type Telegram struct {
	baseUrl string
	chatId  string
	// shared by every send, each of which gets its own client
	limiter *rate.Limiter
	tel     telemetry.API
}

type sendMessageRequest struct {
	ChatId    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewTelegram(opts TelegramOptions, tel telemetry.API) Telegram {
	assert.NotEmptyStr(opts.BotToken)
	assert.NotEmptyStr(opts.ChatId)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("notify", tel)

	apiUrl := opts.ApiUrl
	if apiUrl == "" {
		apiUrl = DefaultTelegramApi
	}

	return Telegram{
		baseUrl: fmt.Sprintf("%s/bot%s", apiUrl, opts.BotToken),
		chatId:  opts.ChatId,
		// telegram allows about one message per second to the same chat
		limiter: rate.NewLimiter(1, 1),
		tel:     tel,
	}
}

func (t Telegram) newClient() *resty.Client {
	client := resty.New()
	client.SetBaseURL(t.baseUrl)
	client.SetTimeout(time.Second * 10)
	client.SetHeader("content-type", "application/json")
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return t.limiter.Wait(req.Context())
	})
	telemetry.InstrumentResty(client, t.tel)
	return client
}

func (t Telegram) Send(ctx context.Context, text string) bool {
	var result telegramResponse
	res, err := t.newClient().R().
		SetContext(ctx).
		SetBody(sendMessageRequest{
			ChatId:    t.chatId,
			Text:      text,
			ParseMode: "HTML",
		}).
		SetResult(&result).
		SetError(&result).
		Post("/sendMessage")
	if err != nil {
		t.tel.ReportBroken(report_telegram_send, err)
		return false
	}
	if res.IsError() || !result.Ok {
		t.tel.ReportBroken(
			report_telegram_send,
			fmt.Errorf("telegram responded %s: %s", res.Status(), result.Description),
		)
		return false
	}
	return true
}
