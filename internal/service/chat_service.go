package service

import (
	"Milestone/internal/api/dto"
	"Milestone/internal/model"
	"Milestone/internal/pkg/consts"
	"Milestone/internal/pkg/push"
	"Milestone/internal/pkg/security"
	"Milestone/internal/pkg/ws"
	"Milestone/internal/repository"
	"context"
	log "log/slog"
	"strings"
	"time"
)

const (
	storeTimeout = 2 * time.Second
	pushTimeout  = 3 * time.Second
)

// ChatService 实时聊天路由：鉴权进入、消息分发、在场判定与离线推送回退
type ChatService interface {
	ws.Router
}

type chatServiceImpl struct {
	roomService RoomService
	roomRepo    repository.RoomRepo
	userRepo    repository.UserRepo
	hub         *ws.Hub
	notifier    push.Notifier
}

func NewChatService(roomService RoomService, roomRepo repository.RoomRepo,
	userRepo repository.UserRepo, hub *ws.Hub, notifier push.Notifier) ChatService {
	return &chatServiceImpl{
		roomService: roomService,
		roomRepo:    roomRepo,
		userRepo:    userRepo,
		hub:         hub,
		notifier:    notifier,
	}
}

// EnterChat 鉴权并绑定房间。
// 凭证无法解析为已注册用户时返回错误，会话层据此终止连接；
// 房间相关的校验失败只回发 errorEvent，连接保持可用。
func (s *chatServiceImpl) EnterChat(ctx context.Context, sess *ws.Session, req *dto.EnterChatReq) error {
	claims, err := security.ValidateToken(req.Token)
	if err != nil {
		return UnauthorizedError
	}

	user, err := s.userRepo.GetUserById(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if req.SenderID != 0 && req.SenderID != user.ID {
		return UnauthorizedError
	}

	sess.SetIdentity(user.ID)

	// 解析房间：显式 ID 优先，否则按参与者对查找或创建
	var room *model.Room
	if req.RoomID != 0 {
		room, err = s.roomService.ResolveRoomByID(ctx, req.RoomID)
		if err != nil {
			s.sendError(sess, err)
			return nil
		}
		isMember, memberErr := s.roomRepo.IsMember(ctx, room.ID, user.ID)
		if memberErr != nil || !isMember {
			s.sendError(sess, ErrNotRoomMember)
			return nil
		}
	} else {
		if req.ReceiverID == 0 {
			s.sendError(sess, ErrParamInvalid)
			return nil
		}
		room, err = s.roomService.GetOrCreateRoom(ctx, user.ID, req.ReceiverID)
		if err != nil || room == nil {
			log.ErrorContext(ctx, "房间解析失败", "senderID", user.ID, "receiverID", req.ReceiverID, "err", err)
			s.sendError(sess, UnExpectedError)
			return nil
		}
	}

	sess.BindRoom(room.ID)

	// 主动进入房间即视为已读
	if err = s.roomRepo.SetUnread(ctx, room.ID, user.ID, false); err != nil {
		log.WarnContext(ctx, "清除未读标记失败", "roomID", room.ID, "userID", user.ID, "err", err)
	}

	sess.SendEvent(ws.EventRoom, &dto.RoomResolvedEvent{RoomName: room.Name, RoomID: room.ID})

	// 回传对端最后在线时间，从未在线为 0
	var lastOnline int64
	peer, err := s.roomRepo.GetOtherMember(ctx, room.ID, user.ID)
	if err != nil {
		log.WarnContext(ctx, "查询对端成员失败", "roomID", room.ID, "err", err)
	} else if peer != nil && peer.LastOnlineAt != nil {
		lastOnline = peer.LastOnlineAt.Unix()
	}
	sess.SendEvent(ws.EventLastOnline, &dto.LastOnlineEvent{LastOnline: lastOnline})

	log.InfoContext(ctx, "用户进入聊天", "userID", user.ID, "roomID", room.ID, "roomName", room.Name)
	return nil
}

// Online 在线信号透传，无持久化，无对端在场时静默丢弃
func (s *chatServiceImpl) Online(ctx context.Context, sess *ws.Session, req *dto.RoomSignalReq) {
	roomID := sess.RoomID()
	if roomID == 0 {
		return
	}
	frame, err := ws.NewFrame(ws.EventStatus, &dto.StatusEvent{Status: ws.StatusOnline})
	if err != nil {
		return
	}
	s.hub.Broadcast(roomID, sess, frame)
}

// Typing 输入中信号透传
func (s *chatServiceImpl) Typing(ctx context.Context, sess *ws.Session, req *dto.RoomSignalReq) {
	roomID := sess.RoomID()
	if roomID == 0 {
		return
	}
	frame, err := ws.NewFrame(ws.EventIsTyping, nil)
	if err != nil {
		return
	}
	s.hub.Broadcast(roomID, sess, frame)
}

// Message 消息发送：先落库，再依据发送时刻的在场快照选择实时广播或离线推送。
// 在场判定使用会话自身绑定的房间，而非请求携带的房间字段。
func (s *chatServiceImpl) Message(ctx context.Context, sess *ws.Session, req *dto.ChatMessageReq) {
	roomID := sess.RoomID()
	if roomID == 0 {
		s.sendError(sess, ErrNotRoomMember)
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		s.sendError(sess, ErrMessageEmpty)
		return
	}

	senderID := sess.UserID()
	msg := &model.ChatMessage{
		RoomID:    roomID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now(),
	}

	// 落库失败中止本次发送，仅通知发送方，既不广播也不推送
	writeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.roomRepo.AppendMessage(writeCtx, msg); err != nil {
		log.ErrorContext(ctx, "消息落库失败", "roomID", roomID, "senderID", senderID, "err", err)
		s.sendError(sess, UnExpectedError)
		return
	}

	// 发送时刻的实时在场快照决定投递路径
	if s.hub.OthersPresent(roomID, sess) {
		frame, err := ws.NewFrame(ws.EventMessage, &dto.MessageEvent{
			RoomID:    roomID,
			SenderID:  senderID,
			Text:      text,
			Timestamp: msg.CreatedAt.Unix(),
		})
		if err != nil {
			log.ErrorContext(ctx, "构造消息事件失败", "err", err)
			return
		}
		s.hub.Broadcast(roomID, sess, frame)
		return
	}

	// 对端不在场：置未读并回退到离线推送。
	// 未读更新的时限独立计算，不吃落库剩下的余量
	flagCtx, flagCancel := context.WithTimeout(ctx, storeTimeout)
	defer flagCancel()
	if err := s.roomRepo.MarkUnreadExcept(flagCtx, roomID, senderID); err != nil {
		log.ErrorContext(ctx, "标记未读失败", "roomID", roomID, "senderID", senderID, "err", err)
	}
	s.notifyPeer(roomID, senderID)
}

// BeforeDisconnect 断开前显式上报，尽力记录最后在线时间
func (s *chatServiceImpl) BeforeDisconnect(ctx context.Context, sess *ws.Session, req *dto.BeforeDisconnectReq) {
	roomID := sess.RoomID()
	if roomID == 0 {
		return
	}
	if err := s.roomRepo.SetLastOnline(ctx, roomID, sess.UserID(), time.Now()); err != nil {
		log.WarnContext(ctx, "记录最后在线时间失败", "roomID", roomID, "userID", sess.UserID(), "err", err)
	}
}

// Disconnect 连接断开的收敛点：离线广播、释放绑定、落库最后在线。
// 会话层保证无论正常或异常断开都恰好执行一次。
func (s *chatServiceImpl) Disconnect(sess *ws.Session) {
	roomID := sess.UnbindRoom()
	if roomID == 0 || !sess.Authenticated() {
		return
	}

	frame, err := ws.NewFrame(ws.EventStatus, &dto.StatusEvent{Status: ws.StatusOffline})
	if err == nil {
		s.hub.Broadcast(roomID, sess, frame)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err = s.roomRepo.SetLastOnline(ctx, roomID, sess.UserID(), time.Now()); err != nil {
		log.Warn("断开时记录最后在线时间失败", "roomID", roomID, "userID", sess.UserID(), "err", err)
	}
	log.Info("用户离开聊天", "userID", sess.UserID(), "roomID", roomID)
}

// notifyPeer 对端不在场时的离线推送，异步尽力而为，失败只记日志
func (s *chatServiceImpl) notifyPeer(roomID, senderID uint64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()

		room, err := s.roomRepo.GetRoomByID(ctx, roomID)
		if err != nil || room == nil {
			log.Error("推送前查询房间失败", "roomID", roomID, "err", err)
			return
		}
		peer, err := s.roomRepo.GetOtherMember(ctx, roomID, senderID)
		if err != nil || peer == nil {
			log.Error("推送前查询对端失败", "roomID", roomID, "err", err)
			return
		}
		sender, err := s.userRepo.GetUserById(ctx, senderID)
		if err != nil || sender == nil {
			log.Error("推送前查询发送方失败", "senderID", senderID, "err", err)
			return
		}
		receiver, err := s.userRepo.GetUserById(ctx, peer.UserID)
		if err != nil || receiver == nil || receiver.PushyToken == nil || *receiver.PushyToken == "" {
			return
		}

		payload := &push.MessagePayload{
			ID:                  consts.NotificationNewMessage,
			RoomID:              room.ID,
			RoomName:            room.Name,
			SenderID:            sender.ID,
			SenderName:          sender.Name,
			SenderProfilePicURL: sender.AvatarURL,
		}
		if err = s.notifier.Send(ctx, []string{*receiver.PushyToken}, payload); err != nil {
			log.Error("离线推送失败", "roomID", roomID, "receiverID", receiver.ID, "err", err)
		}
	}()
}

func (s *chatServiceImpl) sendError(sess *ws.Session, err error) {
	sess.SendEvent(ws.EventError, &dto.ErrorEvent{Message: err.Error()})
}
