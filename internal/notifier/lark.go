// Package notifier 外部即时通讯通知
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/pkg/logger"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// larkTextMessageContent 飞书文本消息内容结构
type larkTextMessageContent struct {
	Text string `json:"text"`
}

// larkMessage 飞书机器人消息结构
type larkMessage struct {
	MsgType string                 `json:"msg_type"`
	Content larkTextMessageContent `json:"content"`
}

// larkResponse 飞书机器人响应结构 (用于检查错误)
type larkResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// SendToLark 发送文本消息到指定的飞书 Webhook URL
func SendToLark(ctx context.Context, messageText string, webhookURL string) error {
	if webhookURL == "" {
		return errors.New("飞书 Webhook URL 为空")
	}
	if messageText == "" {
		logger.Warn("尝试发送空消息到飞书，已跳过")
		return nil
	}

	payload, err := json.Marshal(larkMessage{
		MsgType: "text",
		Content: larkTextMessageContent{Text: messageText},
	})
	if err != nil {
		return errors.Wrap(err, "序列化飞书消息失败")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "创建飞书请求失败")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "发送飞书消息失败")
	}
	defer resp.Body.Close()

	var larkResp larkResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&larkResp)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil {
			return errors.Errorf("飞书返回错误状态码 %d, Code: %d, Msg: %s", resp.StatusCode, larkResp.Code, larkResp.Msg)
		}
		return errors.Errorf("飞书返回错误状态码 %d, 无法解析响应体", resp.StatusCode)
	}

	// 状态码 200 时 code 非 0 也算失败
	if decodeErr != nil {
		logger.Warn("发送飞书消息成功，但无法解析响应体")
		return nil
	}
	if larkResp.Code != 0 {
		return errors.Errorf("飞书API返回错误 Code: %d, Msg: %s", larkResp.Code, larkResp.Msg)
	}
	return nil
}
