package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func payload() domain.NotifyPayload {
	prob := 85.0
	return domain.NotifyPayload{
		Area:      "Kukatpally",
		Scope:     domain.ScopeToday,
		SourceTag: "Model",
		Metro:     true,
		Today: &domain.TodayBlock{
			MaxProb12h:  &prob,
			Intensity:   domain.BucketModerate,
			ThreeMmLow:  6,
			ThreeMmHigh: 12,
			WindowLabel: "1 pm – 4 pm",
		},
	}
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func TestFormatSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Kukatpally")

		_, _ = w.Write([]byte(chatReply(`{"en":"Kukatpally: moderate rain 1 pm – 4 pm.","te":"కూకట్‌పల్లి: మోస్తరు వర్షం."}`)))
	}))
	defer srv.Close()

	c := NewClient("test-key", "gpt-4o-mini", srv.URL, 2*time.Second, discardLogger())
	text, err := c.Format(context.Background(), payload())
	require.NoError(t, err)

	assert.Equal(t, "Kukatpally: moderate rain 1 pm – 4 pm.", text.En)
	assert.Equal(t, "కూకట్‌పల్లి: మోస్తరు వర్షం.", text.Te)
	assert.Equal(t, []string{"#TelanganaWeather", "#HyderabadRains"}, text.Hashtags)
}

func TestFormatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key", "gpt-4o-mini", srv.URL, 2*time.Second, discardLogger())
	_, err := c.Format(context.Background(), payload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestFormatEmptyLinesRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatReply(`{"en":"","te":""}`)))
	}))
	defer srv.Close()

	c := NewClient("test-key", "gpt-4o-mini", srv.URL, 2*time.Second, discardLogger())
	_, err := c.Format(context.Background(), payload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty lines")
}

func TestFormatMalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatReply("not json at all")))
	}))
	defer srv.Close()

	c := NewClient("test-key", "gpt-4o-mini", srv.URL, 2*time.Second, discardLogger())
	_, err := c.Format(context.Background(), payload())
	require.Error(t, err)
}
