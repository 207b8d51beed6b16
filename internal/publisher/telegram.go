package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"feedmirror/internal/config"
	"feedmirror/internal/media"
)

const userAgent = "feedmirror/0.1.0"

// New builds a publisher from configuration. When no bot token is set a noop
// publisher is returned.
func New(cfg *config.Config) Publisher {
	token := strings.TrimSpace(cfg.Target.BotToken)
	if token == "" {
		return Noop{}
	}

	timeout := time.Duration(cfg.Target.PublishTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BotAPI{
		baseURL: cfg.Target.APIBaseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// BotAPI publishes media through the Telegram Bot API. The HTTP timeout
// bounds a stalled upload; expiry surfaces as a publish failure, not a hang.
type BotAPI struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewBotAPI constructs a publisher against an explicit endpoint. Tests use
// this with a local HTTP server.
func NewBotAPI(baseURL, token string, client *http.Client) *BotAPI {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &BotAPI{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Publish uploads the item to the target chat, picking the API method by
// media kind.
func (b *BotAPI) Publish(ctx context.Context, item media.Item, targetChatID string) (Result, error) {
	if strings.TrimSpace(targetChatID) == "" {
		return Result{}, errors.New("target chat is not configured")
	}

	method, field := uploadMethod(item.Kind())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", targetChatID); err != nil {
		return Result{}, fmt.Errorf("write chat_id field: %w", err)
	}
	fileName := item.FileName
	if fileName == "" {
		fileName = "upload.bin"
	}
	part, err := writer.CreateFormFile(field, fileName)
	if err != nil {
		return Result{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(item.Payload); err != nil {
		return Result{}, fmt.Errorf("write payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return Result{}, fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send publish request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read publish response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode publish response (status %d): %w", resp.StatusCode, err)
	}
	if !parsed.OK {
		desc := strings.TrimSpace(parsed.Description)
		if desc == "" {
			desc = "unknown error"
		}
		return Result{}, fmt.Errorf("publish rejected (%d): %s", parsed.ErrorCode, desc)
	}
	return Result{TargetMessageID: parsed.Result.MessageID}, nil
}

func uploadMethod(kind media.Kind) (method, field string) {
	switch kind {
	case media.KindPhoto:
		return "sendPhoto", "photo"
	case media.KindVideo:
		return "sendVideo", "video"
	default:
		return "sendDocument", "document"
	}
}
