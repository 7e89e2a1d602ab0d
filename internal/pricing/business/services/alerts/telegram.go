package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pricewatch_api/internal/pricing/business/models"
	"pricewatch_api/metrics"
	"pricewatch_api/pkg/logger"
)

// Dispatcher рассылает уведомления о нарушениях. Любая ошибка отправки
// остаётся внутри: вызывающий код (движок обновления) из-за неё не падает.
type Dispatcher interface {
	NotifyViolations(ctx context.Context, sellers []models.ViolatingSeller)
	NotifyDailySummary(ctx context.Context, sellers []models.ViolatingSeller) (okCount, failCount int)
}

// AdminSource отдаёт chat_id получателей.
type AdminSource interface {
	ListChatIDs(ctx context.Context) ([]int64, error)
}

const telegramAPIBase = "https://api.telegram.org"

// TelegramDispatcher шлёт sendMessage напрямую в Bot API.
type TelegramDispatcher struct {
	token   string
	baseURL string
	admins  AdminSource
	client  *http.Client
	log     logger.Logger
}

func NewTelegramDispatcher(token string, baseURL string, admins AdminSource, log logger.Logger) *TelegramDispatcher {
	if baseURL == "" {
		baseURL = telegramAPIBase
	}
	return &TelegramDispatcher{
		token:   token,
		baseURL: baseURL,
		admins:  admins,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type sendMessagePayload struct {
	ChatID                int64           `json:"chat_id"`
	Text                  string          `json:"text"`
	ParseMode             string          `json:"parse_mode"`
	DisableWebPagePreview bool            `json:"disable_web_page_preview"`
	ReplyMarkup           *inlineKeyboard `json:"reply_markup,omitempty"`
}

func (d *TelegramDispatcher) sendTo(ctx context.Context, chatID int64, text string, keyboard *inlineKeyboard) error {
	payload := sendMessagePayload{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyMarkup:           keyboard,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", d.baseURL, d.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %s", resp.Status)
	}
	return nil
}

// NotifyViolations — по сообщению на каждого селлера-нарушителя каждому
// админу, с кнопкой «Отправить артикулы».
func (d *TelegramDispatcher) NotifyViolations(ctx context.Context, sellers []models.ViolatingSeller) {
	if d.token == "" || len(sellers) == 0 {
		return
	}

	chatIDs, err := d.admins.ListChatIDs(ctx)
	if err != nil {
		d.log.Log("violation alert: list admins: %v", err)
		return
	}
	if len(chatIDs) == 0 {
		// админов нет — тихо выходим
		return
	}

	for _, seller := range sellers {
		sellerLink := fmt.Sprintf("https://www.wildberries.ru/seller/%d", seller.SellerID)
		title := fmt.Sprintf("ID %d", seller.SellerID)
		if seller.SellerName != nil && *seller.SellerName != "" {
			title = *seller.SellerName
		}

		text := fmt.Sprintf(
			"<b>Нарушение цен</b>\nСеллер: <a href=\"%s\">%s</a>\nНажмите кнопку ниже, чтобы получить артикулы.",
			sellerLink, title)
		keyboard := &inlineKeyboard{
			InlineKeyboard: [][]inlineButton{{
				{Text: "Отправить артикулы", CallbackData: fmt.Sprintf("send_articles:%d", seller.SellerID)},
			}},
		}

		for _, chatID := range chatIDs {
			if err := d.sendTo(ctx, chatID, text, keyboard); err != nil {
				metrics.RecordAlertDispatch("fail")
				d.log.Log("violation alert: send to %d: %v", chatID, err)
				continue
			}
			metrics.RecordAlertDispatch("ok")
		}
	}
}

// NotifyDailySummary — один свод по всем нарушителям каждому админу.
func (d *TelegramDispatcher) NotifyDailySummary(ctx context.Context, sellers []models.ViolatingSeller) (int, int) {
	if d.token == "" {
		return 0, 0
	}

	chatIDs, err := d.admins.ListChatIDs(ctx)
	if err != nil {
		d.log.Log("daily summary: list admins: %v", err)
		return 0, 0
	}

	var text string
	if len(sellers) == 0 {
		text = "Нарушений РРЦ за сутки не найдено ✅"
	} else {
		var buf bytes.Buffer
		buf.WriteString("<b>Сводка нарушений РРЦ</b>\n")
		for _, s := range sellers {
			name := fmt.Sprintf("ID %d", s.SellerID)
			if s.SellerName != nil && *s.SellerName != "" {
				name = *s.SellerName
			}
			fmt.Fprintf(&buf, "%s — %d шт.\n", name, s.ViolationCount)
		}
		text = buf.String()
	}

	okCount, failCount := 0, 0
	for _, chatID := range chatIDs {
		if err := d.sendTo(ctx, chatID, text, nil); err != nil {
			failCount++
			metrics.RecordAlertDispatch("fail")
			d.log.Log("daily summary: send to %d: %v", chatID, err)
			continue
		}
		okCount++
		metrics.RecordAlertDispatch("ok")
	}
	return okCount, failCount
}
