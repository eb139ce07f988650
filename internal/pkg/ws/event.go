package ws

import (
	"github.com/goccy/go-json"
)

// 入站事件名，与客户端约定保持一致
const (
	EventEnterChat        = "enterChat"
	EventOnline           = "clientStatusOnline"
	EventTyping           = "typing"
	EventMessage          = "message"
	EventBeforeDisconnect = "beforeDisconnect"
)

// 出站事件名
const (
	EventRoom       = "room"
	EventLastOnline = "lastOnline"
	EventStatus     = "status"
	EventIsTyping   = "isTyping"
	EventError      = "errorEvent"
)

// 在线状态取值
const (
	StatusOnline  = 1
	StatusOffline = 0
)

// Frame Websocket 消息帧
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame 构造出站消息帧
func NewFrame(event string, v interface{}) (Frame, error) {
	if v == nil {
		return Frame{Event: event}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: data}, nil
}
