// Package telegram is a small client for the Bot API methods the bot needs.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JuniorJPDJ/telegram-rss/internal/chattarget"
	"github.com/JuniorJPDJ/telegram-rss/internal/chunk"
)

const DefaultBaseURL = "https://api.telegram.org"

type Client struct {
	http    *http.Client
	baseURL string
	token   string

	mu   sync.RWMutex
	self *User
}

func New(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

type Update struct {
	UpdateID      int64    `json:"update_id"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
	ChannelPost   *Message `json:"channel_post,omitempty"`
}

// Incoming returns the message carried by the update, if any.
func (u Update) Incoming() *Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.ChannelPost != nil:
		return u.ChannelPost
	default:
		return nil
	}
}

type Message struct {
	MessageID int64    `json:"message_id"`
	Date      int64    `json:"date,omitempty"`
	Chat      *Chat    `json:"chat,omitempty"`
	From      *User    `json:"from,omitempty"`
	Entities  []Entity `json:"entities,omitempty"`
	Text      string   `json:"text,omitempty"`
}

type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type,omitempty"` // private|group|supergroup|channel
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// Entity offsets and lengths are in UTF-16 code units.
type Entity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	URL    string `json:"url,omitempty"`  // for text_link
	User   *User  `json:"user,omitempty"` // for text_mention
}

type response[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// RequestError is a non-2xx or ok=false answer from the Bot API.
type RequestError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
	Body        string
}

func (e *RequestError) Error() string {
	if e == nil {
		return "telegram request failed"
	}
	prefix := "telegram"
	if e.Method != "" {
		prefix += " " + e.Method
	}
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		desc = strings.TrimSpace(e.Body)
	}
	switch {
	case e.StatusCode > 0 && desc != "":
		return fmt.Sprintf("%s: http %d: %s", prefix, e.StatusCode, desc)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: http %d", prefix, e.StatusCode)
	case desc != "":
		return prefix + ": " + desc
	default:
		return prefix + ": request failed"
	}
}

// Start fetches the bot's own identity. Later calls reuse the cached value.
func (c *Client) Start(ctx context.Context) (*User, error) {
	if me := c.Self(); me != nil {
		return me, nil
	}
	var me User
	if err := c.call(ctx, http.MethodGet, "getMe", nil, nil, &me); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.self == nil {
		c.self = &me
	}
	return c.self, nil
}

// Self is the identity cached by Start, or nil before it.
func (c *Client) Self() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self
}

func (c *Client) Username() string {
	if me := c.Self(); me != nil {
		return me.Username
	}
	return ""
}

// GetUpdates long-polls for updates and returns the offset to ask for next.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, int64, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	q := url.Values{}
	q.Set("timeout", strconv.Itoa(secs))
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()
	var updates []Update
	if err := c.call(reqCtx, http.MethodGet, "getUpdates", q, nil, &updates); err != nil {
		return nil, offset, err
	}
	next := offset
	for _, u := range updates {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return updates, next, nil
}

// GetChat accepts a numeric chat id or an "@username".
func (c *Client) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("missing chat_id")
	}
	q := url.Values{}
	q.Set("chat_id", chatID)
	var chat Chat
	if err := c.call(ctx, http.MethodGet, "getChat", q, nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// ResolveChat looks ref up with getChat.
func (c *Client) ResolveChat(ctx context.Context, ref chattarget.Ref) (chattarget.Chat, error) {
	chat, err := c.GetChat(ctx, ref.String())
	if err != nil {
		return chattarget.Chat{}, err
	}
	return chattarget.Chat{ID: chat.ID, Type: chat.Type, Title: chat.Title, Username: chat.Username}, nil
}

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	ReplyToMessageID      int64  `json:"reply_to_message_id,omitempty"`
}

// SendMessage sends plain text. A zero replyTo sends a standalone message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) (*Message, error) {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		DisableWebPagePreview: true,
		ReplyToMessageID:      replyTo,
	})
	if err != nil {
		return nil, err
	}
	var sent Message
	if err := c.call(ctx, http.MethodPost, "sendMessage", nil, body, &sent); err != nil {
		return nil, err
	}
	return &sent, nil
}

// Reply sends text split into chunks the API accepts, in order. Only the
// first chunk is attached to replyTo.
func (c *Client) Reply(ctx context.Context, chatID, replyTo int64, text string) error {
	_, err := c.SendChunks(ctx, chatID, replyTo, chunk.Split(text, chunk.DefaultMaxLength))
	return err
}

// SendChunks sends parts in order and stops at the first failure. sent
// counts the parts delivered, so a caller can resume with parts[sent:].
// Blank parts are skipped and count as sent.
func (c *Client) SendChunks(ctx context.Context, chatID, replyTo int64, parts []string) (sent int, err error) {
	first := true
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			sent++
			continue
		}
		to := int64(0)
		if first {
			to = replyTo
		}
		if _, err := c.SendMessage(ctx, chatID, part, to); err != nil {
			return sent, err
		}
		first = false
		sent++
	}
	return sent, nil
}

func (c *Client) call(ctx context.Context, httpMethod, method string, q url.Values, body []byte, out any) error {
	u := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, httpMethod, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	var env response[json.RawMessage]
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			ErrorCode:   env.ErrorCode,
			Description: env.Description,
			Body:        strings.TrimSpace(string(raw)),
		}
	}
	if decodeErr != nil {
		return fmt.Errorf("telegram %s: decode response: %w", method, decodeErr)
	}
	if !env.OK {
		return &RequestError{Method: method, ErrorCode: env.ErrorCode, Description: env.Description, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

// IsPollTimeout reports whether err is a long-poll request running out of
// time, which is not worth logging as a failure.
func IsPollTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "client.timeout exceeded")
}

// IsRetryable reports whether sending again later may succeed: rate limits,
// server errors and transport failures. Canceled requests are not retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode == http.StatusTooManyRequests || reqErr.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)
}
