package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CommandHandler answers one operator command. An empty reply sends nothing.
type CommandHandler func(command string) string

type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

type updatesResponse struct {
	OK          bool             `json:"ok"`
	Description string           `json:"description"`
	Result      []telegramUpdate `json:"result"`
}

const pollRetryDelay = 5 * time.Second

// StartPolling long-polls for operator commands and replies with the
// handler's answer. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: 35 * time.Second, Transport: t.Client.Transport}
	offset := 0
	for ctx.Err() == nil {
		next, err := t.pollOnce(ctx, client, offset, 30, handler)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			t.Log.Warn("telegram polling failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		offset = next
	}
	t.Log.Info("telegram polling stopped")
}

// pollOnce fetches one page of updates after offset, dispatches every
// command in it and returns the offset to ask for next.
func (t *TelegramNotifier) pollOnce(ctx context.Context, client *http.Client, offset, timeoutSec int, handler CommandHandler) (int, error) {
	url := fmt.Sprintf("%s?offset=%d&timeout=%d", t.endpoint("getUpdates"), offset, timeoutSec)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return offset, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return offset, fmt.Errorf("get updates: %w", err)
	}
	defer resp.Body.Close()

	var page updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return offset, fmt.Errorf("decode updates: %w", err)
	}
	if !page.OK {
		return offset, fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, page.Description)
	}

	for _, u := range page.Result {
		if u.UpdateID >= offset {
			offset = u.UpdateID + 1
		}
		if u.Message == nil {
			continue
		}
		cmd := strings.TrimSpace(u.Message.Text)
		if cmd == "" {
			continue
		}
		t.Log.Info("received command", zap.String("command", cmd))
		reply := handler(cmd)
		if reply == "" {
			continue
		}
		if err := t.Send(ctx, reply); err != nil {
			t.Log.Error("send reply", zap.String("command", cmd), zap.Error(err))
		}
	}
	return offset, nil
}
