// Package gateway - REST-клиент к шлюзу чат-платформы. Шлюз держит websocket-сессию бота,
// а мы только отправляем ему команды.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"taskBot/internal/logger"
	"taskBot/internal/messenger"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type Options struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type Client struct {
	http            *http.Client
	baseURL         string
	token           string
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

var _ messenger.Messenger = (*Client)(nil)

func New(opts Options) *Client {
	c := &Client{
		http:            &http.Client{Timeout: 10 * time.Second},
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		token:           opts.Token,
		maxRetries:      3,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     5 * time.Second,
	}
	if opts.Timeout > 0 {
		c.http.Timeout = opts.Timeout
	}
	if opts.MaxRetries > 0 {
		c.maxRetries = opts.MaxRetries
	}
	if opts.InitialInterval > 0 {
		c.initialInterval = opts.InitialInterval
	}
	if opts.MaxInterval > 0 {
		c.maxInterval = opts.MaxInterval
	}
	return c
}

type component struct {
	Type        string                   `json:"type"`
	CustomID    string                   `json:"custom_id"`
	Label       string                   `json:"label,omitempty"`
	Placeholder string                   `json:"placeholder,omitempty"`
	Options     []messenger.SelectOption `json:"options,omitempty"`
}

type messageBody struct {
	Content    string           `json:"content,omitempty"`
	Embed      *messenger.Embed `json:"embed,omitempty"`
	Components []component      `json:"components,omitempty"`
	Pin        bool             `json:"pin,omitempty"`
}

func toMessageBody(msg messenger.Message) messageBody {
	body := messageBody{Content: msg.Content, Embed: msg.Embed, Pin: msg.Pin}
	if msg.Button != nil {
		body.Components = append(body.Components, component{
			Type:     "button",
			CustomID: msg.Button.CustomID,
			Label:    msg.Button.Label,
		})
	}
	if msg.Select != nil {
		body.Components = append(body.Components, component{
			Type:        "select",
			CustomID:    msg.Select.CustomID,
			Placeholder: msg.Select.Placeholder,
			Options:     msg.Select.Options,
		})
	}
	return body
}

func (c *Client) SendMessage(ctx context.Context, channelID int64, msg messenger.Message) (*messenger.MessageRef, error) {
	ref := &messenger.MessageRef{}
	err := c.do(ctx, http.MethodPost, "/channels/"+id(channelID)+"/messages", toMessageBody(msg), ref)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (c *Client) CreateThread(ctx context.Context, parentID int64, name string) (*messenger.Channel, error) {
	body := map[string]any{"name": name, "type": "public_thread"}
	ch := &messenger.Channel{}
	if err := c.do(ctx, http.MethodPost, "/channels/"+id(parentID)+"/threads", body, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *Client) ArchiveThread(ctx context.Context, threadID int64) error {
	body := map[string]any{"archived": true, "locked": true}
	return c.do(ctx, http.MethodPatch, "/channels/"+id(threadID), body, nil)
}

func (c *Client) DeleteThread(ctx context.Context, threadID int64) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+id(threadID), nil, nil)
}

func (c *Client) FetchChannel(ctx context.Context, channelID int64) (*messenger.Channel, error) {
	ch := &messenger.Channel{}
	if err := c.do(ctx, http.MethodGet, "/channels/"+id(channelID), nil, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *Client) ResolveMember(ctx context.Context, guildID, userID int64) (*messenger.Member, error) {
	m := &messenger.Member{}
	if err := c.do(ctx, http.MethodGet, "/guilds/"+id(guildID)+"/members/"+id(userID), nil, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Client) RegisterPersistentControl(ctx context.Context, control messenger.CheckinControl) error {
	body := map[string]any{
		"custom_id": messenger.CheckinButtonID(control.TaskID),
		"task_id":   control.TaskID,
		"label":     control.TaskName,
	}
	return c.do(ctx, http.MethodPost, "/components/persistent", body, nil)
}

// do выполняет запрос с повторами: повторяются только временные ошибки
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("кодирование запроса %s %s: %w", method, path, err)
		}
	}

	operation := func() error {
		err := c.once(ctx, method, path, payload, out)
		if err != nil && !errors.Is(err, messenger.ErrTransient) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Gateway: Повтор запроса",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	return backoff.RetryNotify(operation, c.policy(ctx), notify)
}

func (c *Client) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialInterval
	exp.MaxInterval = c.maxInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxRetries)), ctx)
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("создание запроса %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", messenger.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	if time.Since(start) > time.Second {
		logger.Warn("Gateway: Медленный ответ", zap.String("path", path), zap.Duration("ms", time.Since(start)))
	}

	if err := statusError(resp, method, path); err != nil {
		return err
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("декодирование ответа %s %s: %w", method, path, err)
	}
	return nil
}

func statusError(resp *http.Response, method, path string) error {
	if resp.StatusCode < 300 {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(detail))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", messenger.ErrNotFound, method, path)
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s %s: %s", messenger.ErrForbidden, method, path, msg)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: статус %d", messenger.ErrTransient, method, path, resp.StatusCode)
	default:
		return fmt.Errorf("gateway %s %s: статус %d: %s", method, path, resp.StatusCode, msg)
	}
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}
