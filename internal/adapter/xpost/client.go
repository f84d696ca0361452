// Package xpost publishes notifications to the X API v2 tweets endpoint,
// signed with OAuth 1.0a user context.
package xpost

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const tweetsURL = "https://api.twitter.com/2/tweets"

// Credentials is the OAuth 1.0a user-context key set.
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Client posts to the X API. It implements governor.Poster.
type Client struct {
	creds      Credentials
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an X posting client.
func NewClient(creds Credentials, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		creds: creds,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: tweetsURL,
		logger:  logger,
	}
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Reply *tweetReply `json:"reply,omitempty"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Post submits one tweet, optionally as a reply, and returns the created
// tweet id.
func (c *Client) Post(ctx context.Context, text, replyToID string) (string, error) {
	reqBody := tweetRequest{Text: text}
	if replyToID != "" {
		reqBody.Reply = &tweetReply{InReplyToTweetID: replyToID}
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	auth, err := c.authorizationHeader(http.MethodPost, c.baseURL)
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("Authorization", auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post tweet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("x API error: status %d: %s", resp.StatusCode, b)
	}

	var tr tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if tr.Data.ID == "" {
		return "", fmt.Errorf("x API returned no tweet id")
	}
	return tr.Data.ID, nil
}

// authorizationHeader builds the OAuth 1.0a header for a JSON-body request.
// Only the oauth_* parameters enter the signature base string; JSON bodies
// are excluded per the 1.0a spec.
func (c *Client) authorizationHeader(method, rawURL string) (string, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", err
	}
	params := map[string]string{
		"oauth_consumer_key":     c.creds.APIKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
		"oauth_token":            c.creds.AccessToken,
		"oauth_version":          "1.0",
	}

	params["oauth_signature"] = c.sign(method, rawURL, params)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, percentEncode(k), percentEncode(params[k])))
	}
	return "OAuth " + strings.Join(parts, ", "), nil
}

func (c *Client) sign(method, rawURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}

	base := strings.Join([]string{
		method,
		percentEncode(rawURL),
		percentEncode(strings.Join(pairs, "&")),
	}, "&")

	key := percentEncode(c.creds.APISecret) + "&" + percentEncode(c.creds.AccessSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode applies RFC 3986 encoding as OAuth 1.0a requires: spaces
// become %20, not +.
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
