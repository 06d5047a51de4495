package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/JRI98/clutch/client/history"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	DefaultMaxResults = 75
	DefaultTimeout    = 30 * time.Second

	RequestIDHeader = "X-Request-Id"

	maxErrorBody = 512
)

// Error is returned for any failed gateway call.
type Error struct {
	Op        string
	Status    int
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status code %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Options struct {
	Origin     string
	Token      string
	MaxResults int
	HTTPClient *http.Client
}

// Client talks to a HipChat v2 compatible room API.
type Client struct {
	origin     *url.URL
	token      string
	maxResults int
	httpClient *http.Client
}

func New(options Options) (*Client, error) {
	origin, err := url.Parse(strings.TrimRight(options.Origin, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse origin: %w", err)
	}
	if origin.Scheme != "http" && origin.Scheme != "https" {
		return nil, fmt.Errorf("unsupported origin scheme %q", origin.Scheme)
	}

	maxResults := options.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		origin:     origin,
		token:      options.Token,
		maxResults: maxResults,
		httpClient: httpClient,
	}, nil
}

func (c *Client) roomURL(room string, parts ...string) string {
	segments := append([]string{c.origin.String(), "v2", "room", url.PathEscape(room)}, parts...)
	return strings.Join(segments, "/")
}

func (c *Client) do(ctx context.Context, op string, method string, requestURL string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	requestID := uuid.NewString()
	request.Header.Set(RequestIDHeader, requestID)
	request.Header.Set("Authorization", "Bearer "+c.token)
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, &Error{Op: op, RequestID: requestID, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &Error{Op: op, RequestID: requestID, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &Error{
			Op:        op,
			Status:    response.StatusCode,
			RequestID: requestID,
			Err:       errors.New(excerpt(responseBody)),
		}
	}

	return responseBody, nil
}

// FetchRecentMessages returns the latest room history, oldest first.
func (c *Client) FetchRecentMessages(ctx context.Context, room string) ([]history.Message, error) {
	const op = "fetch history"

	requestURL := c.roomURL(room, "history", "latest") + "?max-results=" + strconv.Itoa(c.maxResults)
	body, err := c.do(ctx, op, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, &Error{Op: op, Err: errors.New("invalid JSON in response body")}
	}

	items := gjson.GetBytes(body, "items")
	if !items.IsArray() {
		return nil, &Error{Op: op, Err: errors.New("response has no items array")}
	}

	messages := make([]history.Message, 0, len(items.Array()))
	items.ForEach(func(_, item gjson.Result) bool {
		messages = append(messages, parseMessage(item))
		return true
	})

	return messages, nil
}

// parseMessage accepts both user messages, whose "from" is an object, and
// notifications, whose "from" is the plain sender label.
func parseMessage(item gjson.Result) history.Message {
	from := item.Get("from")

	var sender string
	switch {
	case from.IsObject():
		sender = from.Get("name").String()
	case from.Type == gjson.String:
		sender = from.String()
	}

	return history.Message{
		Date: item.Get("date").String(),
		From: sender,
		Body: item.Get("message").String(),
	}
}

type sendMessageData struct {
	Message string `json:"message"`
}

func (c *Client) SendMessage(ctx context.Context, room string, text string) error {
	const op = "send message"

	dataBytes, err := json.Marshal(sendMessageData{Message: text})
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("failed to marshal data: %w", err)}
	}

	_, err = c.do(ctx, op, http.MethodPost, c.roomURL(room, "message"), dataBytes)
	return err
}

func excerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response body"
	}
	if message := gjson.Get(text, "error.message"); message.Exists() {
		text = message.String()
	}
	text = printable(text)
	if runes := []rune(text); len(runes) > maxErrorBody {
		text = string(runes[:maxErrorBody]) + "..."
	}
	return text
}

// printable drops escape sequences and control characters so server text is
// safe to show on a raw terminal.
func printable(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, strings.ToValidUTF8(ansi.Strip(text), string(utf8.RuneError)))
}
