package push

import (
	"Milestone/internal/api/config"
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// MessagePayload 新消息推送载荷，字段编号与客户端约定一致
type MessagePayload struct {
	ID                  int    `json:"id"`
	RoomID              uint64 `json:"roomId"`
	RoomName            string `json:"roomName"`
	SenderID            uint64 `json:"senderId"`
	SenderName          string `json:"senderName"`
	SenderProfilePicURL string `json:"senderProfilePicUrl"`
}

// Notifier 推送网关契约：尽力而为，调用方不依赖其结果
type Notifier interface {
	Send(ctx context.Context, tokens []string, data interface{}) error
}

type pushyClient struct {
	client *resty.Client
	apiKey string
}

// NewPushyClient 构造 Pushy 协议的推送客户端
func NewPushyClient(cfg config.PushConfig) Notifier {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout)

	return &pushyClient{client: client, apiKey: cfg.ApiKey}
}

type pushRequest struct {
	To   []string    `json:"to"`
	Data interface{} `json:"data"`
}

func (s *pushyClient) Send(ctx context.Context, tokens []string, data interface{}) error {
	if len(tokens) == 0 {
		return nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("api_key", s.apiKey).
		SetBody(&pushRequest{To: tokens, Data: data}).
		Post("/push")
	if err != nil {
		return errors.Wrap(err, "推送网关请求失败")
	}
	if resp.IsError() {
		return errors.Errorf("推送网关返回异常状态: %d", resp.StatusCode())
	}
	return nil
}
