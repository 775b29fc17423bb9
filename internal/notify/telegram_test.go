package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	mu       sync.Mutex
	methods  []string
	caption  string
	filename string
	content  string
}

func (f *fakeBotAPI) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	f.methods = append(f.methods, method)

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"offerwatch","username":"offerwatch_bot"}}`)
	case "sendDocument":
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			f.caption = r.FormValue("caption")
			if file, hdr, err := r.FormFile("document"); err == nil {
				b, _ := io.ReadAll(file)
				f.filename = hdr.Filename
				f.content = string(b)
			}
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
	default:
		_, _ = io.WriteString(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
	}
}

func TestTelegram_SendsDocument(t *testing.T) {
	api := &fakeBotAPI{}
	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{Token: "T", ChatID: 42, APIEndpoint: srv.URL + "/bot%s/%s"})
	require.NoError(t, err)

	msg := BuildMessage("data", 2, writeStore(t))
	require.NoError(t, tg.Send(context.Background(), "ignored", msg))

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"getMe", "sendDocument"}, api.methods)
	assert.Equal(t, msg.Subject, api.caption)
	assert.Equal(t, "offres-data.csv", api.filename)
	assert.Equal(t, storeBody, api.content)
}

func TestNewTelegram_RequiresTokenAndChat(t *testing.T) {
	_, err := NewTelegram(TelegramConfig{Token: "T"})
	assert.Error(t, err)
	_, err = NewTelegram(TelegramConfig{ChatID: 1})
	assert.Error(t, err)
}
