package service

import (
	"Milestone/internal/api/config"
	"Milestone/internal/api/dto"
	"Milestone/internal/model"
	"Milestone/internal/pkg/consts"
	"Milestone/internal/pkg/push"
	"Milestone/internal/pkg/security"
	"Milestone/internal/pkg/ws"
	"Milestone/internal/repository"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

type pushCall struct {
	tokens []string
	data   interface{}
}

type fakeNotifier struct {
	calls chan pushCall
}

func (s *fakeNotifier) Send(ctx context.Context, tokens []string, data interface{}) error {
	s.calls <- pushCall{tokens: tokens, data: data}
	return nil
}

type chatEnv struct {
	db       *gorm.DB
	roomRepo repository.RoomRepo
	hub      *ws.Hub
	notifier *fakeNotifier
	srv      *httptest.Server
}

func newChatEnv(t *testing.T) *chatEnv {
	t.Helper()

	db := newTestDB(t)
	roomRepo := repository.NewRoomRepo(db)
	userRepo := repository.NewUserRepo(db)
	hub := ws.NewHub()
	notifier := &fakeNotifier{calls: make(chan pushCall, 4)}

	roomSvc := NewRoomService(roomRepo, userRepo, hub)
	chatSvc := NewChatService(roomSvc, roomRepo, userRepo, hub, notifier)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sess := ws.NewSession(conn, hub, chatSvc, config.WSConfig{})
		sess.Run(r.Context())
	}))
	t.Cleanup(srv.Close)

	return &chatEnv{db: db, roomRepo: roomRepo, hub: hub, notifier: notifier, srv: srv}
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (e *chatEnv) dial(t *testing.T) *wsClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(event string, v interface{}) {
	c.t.Helper()

	frame, err := ws.NewFrame(event, v)
	if err != nil {
		c.t.Fatalf("build frame: %v", err)
	}
	data, err := json.Marshal(frame)
	if err != nil {
		c.t.Fatalf("marshal frame: %v", err)
	}
	if err = c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.t.Fatalf("write frame: %v", err)
	}
}

// read 读取下一个匹配事件，中途的其他事件被跳过
func (c *wsClient) read(wantEvent string) json.RawMessage {
	c.t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = c.conn.SetReadDeadline(deadline)
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.t.Fatalf("read frame (waiting for %q): %v", wantEvent, err)
		}
		var frame ws.Frame
		if err = json.Unmarshal(data, &frame); err != nil {
			c.t.Fatalf("unmarshal frame: %v", err)
		}
		if frame.Event == wantEvent {
			return frame.Data
		}
	}
}

// expectClosed 断言服务端已主动断开连接
func (c *wsClient) expectClosed() {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := c.conn.ReadMessage(); err == nil {
		c.t.Fatal("expected connection to be closed by server")
	}
}

func (c *wsClient) enter(token string, receiverID uint64) dto.RoomResolvedEvent {
	c.t.Helper()

	c.send(ws.EventEnterChat, &dto.EnterChatReq{Token: token, ReceiverID: receiverID})
	var ev dto.RoomResolvedEvent
	if err := json.Unmarshal(c.read(ws.EventRoom), &ev); err != nil {
		c.t.Fatalf("unmarshal room event: %v", err)
	}
	return ev
}

func tokenFor(t *testing.T, userID uint64) string {
	t.Helper()

	token, err := security.GenerateToken(userID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func TestEnterChatResolvesRoom(t *testing.T) {
	env := newChatEnv(t)
	seedUser(t, env.db, 1, "alice", "")
	seedUser(t, env.db, 2, "bob", "")

	c := env.dial(t)
	ev := c.enter(tokenFor(t, 1), 2)
	if ev.RoomName != "1#2" || ev.RoomID == 0 {
		t.Fatalf("unexpected room event: %+v", ev)
	}

	// 对端从未在线
	var last dto.LastOnlineEvent
	if err := json.Unmarshal(c.read(ws.EventLastOnline), &last); err != nil {
		t.Fatalf("unmarshal lastOnline: %v", err)
	}
	if last.LastOnline != 0 {
		t.Fatalf("expected last online 0, got %d", last.LastOnline)
	}

	room, err := env.roomRepo.GetRoomByName(context.Background(), "1#2")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room == nil || room.ID != ev.RoomID {
		t.Fatalf("expected room persisted, got %+v", room)
	}
}

func TestEnterChatRejectsInvalidToken(t *testing.T) {
	env := newChatEnv(t)

	c := env.dial(t)
	c.send(ws.EventEnterChat, &dto.EnterChatReq{Token: "not-a-token", ReceiverID: 2})
	c.expectClosed()
}

func TestEnterChatRejectsUnknownUser(t *testing.T) {
	env := newChatEnv(t)

	c := env.dial(t)
	c.send(ws.EventEnterChat, &dto.EnterChatReq{Token: tokenFor(t, 99), ReceiverID: 2})
	c.expectClosed()
}

func TestEventsBeforeAuthDropped(t *testing.T) {
	env := newChatEnv(t)
	seedUser(t, env.db, 1, "alice", "")
	seedUser(t, env.db, 2, "bob", "")

	c := env.dial(t)

	// 未鉴权的消息被静默丢弃，连接保持可用
	c.send(ws.EventMessage, &dto.ChatMessageReq{Text: "sneak"})
	ev := c.enter(tokenFor(t, 1), 2)
	if ev.RoomName != "1#2" {
		t.Fatalf("unexpected room event: %+v", ev)
	}

	count, err := env.roomRepo.CountMessages(context.Background(), ev.RoomID)
	if err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no messages stored, got %d", count)
	}
}

func TestMessageDeliveredLiveWhenPeerPresent(t *testing.T) {
	env := newChatEnv(t)
	seedUser(t, env.db, 1, "alice", "")
	seedUser(t, env.db, 2, "bob", "tok-bob")

	a := env.dial(t)
	roomEv := a.enter(tokenFor(t, 1), 2)
	b := env.dial(t)
	b.enter(tokenFor(t, 2), 1)

	a.send(ws.EventMessage, &dto.ChatMessageReq{Text: "hello bob"})

	var msg dto.MessageEvent
	if err := json.Unmarshal(b.read(ws.EventMessage), &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if msg.Text != "hello bob" || msg.SenderID != 1 || msg.RoomID != roomEv.RoomID {
		t.Fatalf("unexpected message event: %+v", msg)
	}

	// 实时送达：已落库、无未读标记、无离线推送
	count, err := env.roomRepo.CountMessages(context.Background(), roomEv.RoomID)
	if err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stored message, got %d", count)
	}
	peer, err := env.roomRepo.GetOtherMember(context.Background(), roomEv.RoomID, 1)
	if err != nil {
		t.Fatalf("get other member: %v", err)
	}
	if peer.HasUnread {
		t.Fatal("expected no unread flag for live delivery")
	}
	select {
	case call := <-env.notifier.calls:
		t.Fatalf("unexpected push for live delivery: %+v", call)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMessageFallsBackToPushWhenPeerAbsent(t *testing.T) {
	env := newChatEnv(t)
	seedUser(t, env.db, 1, "alice", "")
	seedUser(t, env.db, 2, "bob", "tok-bob")

	a := env.dial(t)
	roomEv := a.enter(tokenFor(t, 1), 2)

	a.send(ws.EventMessage, &dto.ChatMessageReq{Text: "are you there"})

	select {
	case call := <-env.notifier.calls:
		if len(call.tokens) != 1 || call.tokens[0] != "tok-bob" {
			t.Fatalf("unexpected push tokens: %v", call.tokens)
		}
		payload, ok := call.data.(*push.MessagePayload)
		if !ok {
			t.Fatalf("unexpected push payload type: %T", call.data)
		}
		if payload.ID != consts.NotificationNewMessage || payload.RoomID != roomEv.RoomID || payload.SenderName != "alice" {
			t.Fatalf("unexpected push payload: %+v", payload)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected offline push, got none")
	}

	count, err := env.roomRepo.CountMessages(context.Background(), roomEv.RoomID)
	if err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected message persisted before push, got %d", count)
	}
	peer, err := env.roomRepo.GetOtherMember(context.Background(), roomEv.RoomID, 1)
	if err != nil {
		t.Fatalf("get other member: %v", err)
	}
	if !peer.HasUnread {
		t.Fatal("expected unread flag for absent peer")
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	env := newChatEnv(t)
	seedUser(t, env.db, 1, "alice", "")
	seedUser(t, env.db, 2, "bob", "")

	c := env.dial(t)
	roomEv := c.enter(tokenFor(t, 1), 2)

	c.send(ws.EventMessage, &dto.ChatMessageReq{Text: "   "})

	var errEv dto.ErrorEvent
	if err := json.Unmarshal(c.read(ws.EventError), &errEv); err != nil {
		t.Fatalf("unmarshal error event: %v", err)
	}
	if errEv.Message == "" {
		t.Fatal("expected error message")
	}

	count, err := env.roomRepo.CountMessages(context.Background(), roomEv.RoomID)
	if err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected blank message dropped, got %d stored", count)
	}
}

func TestMessagePersistenceFailureNotifiesSender(t *testing.T) {
	env := newChatEnv(t)
	seedUser(t, env.db, 1, "alice", "")
	seedUser(t, env.db, 2, "bob", "tok-bob")

	c := env.dial(t)
	c.enter(tokenFor(t, 1), 2)

	// 落库必然失败：消息表已不存在
	if err := env.db.Migrator().DropTable(&model.ChatMessage{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	c.send(ws.EventMessage, &dto.ChatMessageReq{Text: "lost"})

	var errEv dto.ErrorEvent
	if err := json.Unmarshal(c.read(ws.EventError), &errEv); err != nil {
		t.Fatalf("unmarshal error event: %v", err)
	}
	if errEv.Message == "" {
		t.Fatal("expected error message for failed persistence")
	}

	// 发送中止：不回退到离线推送
	select {
	case call := <-env.notifier.calls:
		t.Fatalf("unexpected push after persistence failure: %+v", call)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMessagesArriveInSendOrder(t *testing.T) {
	env := newChatEnv(t)
	seedUser(t, env.db, 1, "alice", "")
	seedUser(t, env.db, 2, "bob", "")

	a := env.dial(t)
	a.enter(tokenFor(t, 1), 2)
	b := env.dial(t)
	b.enter(tokenFor(t, 2), 1)

	texts := []string{"m1", "m2", "m3"}
	for _, text := range texts {
		a.send(ws.EventMessage, &dto.ChatMessageReq{Text: text})
	}

	// 同一发送方的消息按发出顺序到达观察者
	for _, want := range texts {
		var msg dto.MessageEvent
		if err := json.Unmarshal(b.read(ws.EventMessage), &msg); err != nil {
			t.Fatalf("unmarshal message: %v", err)
		}
		if msg.Text != want {
			t.Fatalf("expected %q next, got %q", want, msg.Text)
		}
	}
}

func TestUnreadClearedWhenPeerEnters(t *testing.T) {
	env := newChatEnv(t)
	seedUser(t, env.db, 1, "alice", "")
	seedUser(t, env.db, 2, "bob", "tok-bob")

	a := env.dial(t)
	roomEv := a.enter(tokenFor(t, 1), 2)

	a.send(ws.EventMessage, &dto.ChatMessageReq{Text: "unread for bob"})

	// 推送已发出 ⇒ 未读标记此前已落库
	select {
	case <-env.notifier.calls:
	case <-time.After(3 * time.Second):
		t.Fatal("expected offline push")
	}
	peer, err := env.roomRepo.GetOtherMember(context.Background(), roomEv.RoomID, 1)
	if err != nil {
		t.Fatalf("get other member: %v", err)
	}
	if !peer.HasUnread {
		t.Fatal("expected unread flag before peer enters")
	}

	// 对端进入房间即视为已读
	b := env.dial(t)
	b.enter(tokenFor(t, 2), 1)

	peer, err = env.roomRepo.GetOtherMember(context.Background(), roomEv.RoomID, 1)
	if err != nil {
		t.Fatalf("get other member: %v", err)
	}
	if peer.HasUnread {
		t.Fatal("expected unread flag cleared on room entry")
	}
}

func TestPresenceSignalsRelayed(t *testing.T) {
	env := newChatEnv(t)
	seedUser(t, env.db, 1, "alice", "")
	seedUser(t, env.db, 2, "bob", "")

	a := env.dial(t)
	a.enter(tokenFor(t, 1), 2)
	b := env.dial(t)
	b.enter(tokenFor(t, 2), 1)

	a.send(ws.EventOnline, &dto.RoomSignalReq{})
	var status dto.StatusEvent
	if err := json.Unmarshal(b.read(ws.EventStatus), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Status != ws.StatusOnline {
		t.Fatalf("expected online status, got %d", status.Status)
	}

	a.send(ws.EventTyping, &dto.RoomSignalReq{})
	b.read(ws.EventIsTyping)
}

func TestDisconnectBroadcastsOfflineAndRecordsLastOnline(t *testing.T) {
	env := newChatEnv(t)
	seedUser(t, env.db, 1, "alice", "")
	seedUser(t, env.db, 2, "bob", "")

	a := env.dial(t)
	roomEv := a.enter(tokenFor(t, 1), 2)
	b := env.dial(t)
	b.enter(tokenFor(t, 2), 1)

	_ = b.conn.Close()

	var status dto.StatusEvent
	if err := json.Unmarshal(a.read(ws.EventStatus), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Status != ws.StatusOffline {
		t.Fatalf("expected offline status, got %d", status.Status)
	}

	// 最后在线时间异步落库，轮询等待
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := env.roomRepo.GetLastOnline(context.Background(), roomEv.RoomID, 2)
		if err != nil {
			t.Fatalf("get last online: %v", err)
		}
		if got != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected last online recorded after disconnect")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
