package xpost

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() Credentials {
	return Credentials{
		APIKey:       "consumer-key",
		APISecret:    "consumer-secret",
		AccessToken:  "access-token",
		AccessSecret: "access-secret",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewClient(testCreds(), 2*time.Second, logger)
	c.baseURL = srv.URL
	return c
}

func TestPostReturnsTweetID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "OAuth "))
		assert.Contains(t, auth, `oauth_consumer_key="consumer-key"`)
		assert.Contains(t, auth, `oauth_token="access-token"`)
		assert.Contains(t, auth, `oauth_signature_method="HMAC-SHA1"`)
		assert.Contains(t, auth, "oauth_signature=")

		var req tweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Kukatpally: heavy rain in 40–60 min.", req.Text)
		assert.Nil(t, req.Reply)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1800000000000000001"}}`))
	})

	id, err := c.Post(context.Background(), "Kukatpally: heavy rain in 40–60 min.", "")
	require.NoError(t, err)
	assert.Equal(t, "1800000000000000001", id)
}

func TestPostThreadsReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req tweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Reply)
		assert.Equal(t, "1799999999999999999", req.Reply.InReplyToTweetID)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1800000000000000002"}}`))
	})

	id, err := c.Post(context.Background(), "Update: very heavy rain now.", "1799999999999999999")
	require.NoError(t, err)
	assert.Equal(t, "1800000000000000002", id)
}

func TestPostAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"title":"Forbidden"}`, http.StatusForbidden)
	})

	_, err := c.Post(context.Background(), "text", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestPostMissingID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	_, err := c.Post(context.Background(), "text", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tweet id")
}

func TestSignatureDeterministicForFixedInputs(t *testing.T) {
	c := NewClient(testCreds(), time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	params := map[string]string{
		"oauth_consumer_key":     "consumer-key",
		"oauth_nonce":            "fixed-nonce",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1752400000",
		"oauth_token":            "access-token",
		"oauth_version":          "1.0",
	}

	sig1 := c.sign(http.MethodPost, tweetsURL, params)
	sig2 := c.sign(http.MethodPost, tweetsURL, params)
	assert.Equal(t, sig1, sig2)
	assert.NotEmpty(t, sig1)
}

func TestPercentEncode(t *testing.T) {
	assert.Equal(t, "a%20b", percentEncode("a b"))
	assert.Equal(t, "https%3A%2F%2Fapi.twitter.com%2F2%2Ftweets", percentEncode(tweetsURL))
	assert.Equal(t, "x-y_z.~", percentEncode("x-y_z.~"))
}
