package alerts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pricewatch_api/internal/pricing/business/models"
	"pricewatch_api/pkg/logger"
)

type staticAdmins struct {
	ids []int64
	err error
}

func (a *staticAdmins) ListChatIDs(context.Context) ([]int64, error) { return a.ids, a.err }

func testLog() logger.Logger { return logger.NewLogger(io.Discard, "[test]") }

func violating(sellerID int64, name string, count int) models.ViolatingSeller {
	s := models.ViolatingSeller{SellerID: sellerID, ViolationCount: count}
	if name != "" {
		s.SellerName = &name
	}
	return s
}

func TestNotifyViolationsSendsPerSellerPerAdmin(t *testing.T) {
	type captured struct {
		path    string
		payload map[string]interface{}
	}
	var sent []captured

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		sent = append(sent, captured{path: r.URL.Path, payload: payload})
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := NewTelegramDispatcher("TOKEN", srv.URL, &staticAdmins{ids: []int64{10, 20}}, testLog())
	d.NotifyViolations(context.Background(),
		[]models.ViolatingSeller{violating(77, "Seller", 3)})

	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want one per admin", len(sent))
	}
	for _, c := range sent {
		if c.path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %q", c.path)
		}
		text, _ := c.payload["text"].(string)
		if !strings.Contains(text, "Seller") || !strings.Contains(text, "seller/77") {
			t.Errorf("text = %q, want seller name and link", text)
		}
		markup, _ := c.payload["reply_markup"].(map[string]interface{})
		raw, _ := json.Marshal(markup)
		if !strings.Contains(string(raw), "send_articles:77") {
			t.Errorf("reply_markup = %s, want send_articles:77 callback", raw)
		}
	}

	chats := map[float64]bool{}
	for _, c := range sent {
		id, _ := c.payload["chat_id"].(float64)
		chats[id] = true
	}
	if !chats[10] || !chats[20] {
		t.Errorf("messages went to %v, want chats 10 and 20", chats)
	}
}

func TestNotifyViolationsNoopWithoutToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	d := NewTelegramDispatcher("", srv.URL, &staticAdmins{ids: []int64{10}}, testLog())
	d.NotifyViolations(context.Background(), []models.ViolatingSeller{violating(1, "", 1)})
	if called {
		t.Error("dispatcher without token hit the API")
	}
}

func TestNotifyDailySummaryCountsFailures(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var payload sendMessagePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		// Второй чат «сломан».
		if payload.ChatID == 20 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := NewTelegramDispatcher("TOKEN", srv.URL, &staticAdmins{ids: []int64{10, 20}}, testLog())
	okCount, failCount := d.NotifyDailySummary(context.Background(),
		[]models.ViolatingSeller{violating(77, "Seller", 3)})

	if requests != 2 {
		t.Fatalf("requests = %d, want 2", requests)
	}
	if okCount != 1 || failCount != 1 {
		t.Errorf("ok=%d fail=%d, want 1/1", okCount, failCount)
	}
}

func TestNotifyDailySummaryEmptyViolations(t *testing.T) {
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload sendMessagePayload
		json.NewDecoder(r.Body).Decode(&payload)
		text = payload.Text
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := NewTelegramDispatcher("TOKEN", srv.URL, &staticAdmins{ids: []int64{10}}, testLog())
	okCount, failCount := d.NotifyDailySummary(context.Background(), nil)

	if okCount != 1 || failCount != 0 {
		t.Fatalf("ok=%d fail=%d", okCount, failCount)
	}
	if !strings.Contains(text, "не найдено") {
		t.Errorf("text = %q, want empty-summary wording", text)
	}
}
