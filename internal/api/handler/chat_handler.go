package handler

import (
	"Milestone/internal/api/dto"
	"Milestone/internal/pkg/response"
	"Milestone/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	roomService service.RoomService
}

func NewChatHandler(roomService service.RoomService) *ChatHandler {
	return &ChatHandler{roomService: roomService}
}

// GetRoomList 获取当前用户的会话列表
func (s *ChatHandler) GetRoomList(c *gin.Context) {
	userID := c.GetUint64("user_id")

	res, err := s.roomService.GetRoomList(c, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetChatHistory 分页获取房间历史消息
func (s *ChatHandler) GetChatHistory(c *gin.Context) {
	userID := c.GetUint64("user_id")
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))

	res, err := s.roomService.GetChatHistory(c, userID, roomID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetChatPageCount 获取房间历史消息总页数
func (s *ChatHandler) GetChatPageCount(c *gin.Context) {
	userID := c.GetUint64("user_id")
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	pages, err := s.roomService.GetChatPageCount(c, userID, roomID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.PageCountDTO{Pages: pages})
}

// DeleteRoom 删除房间并级联成员与消息
func (s *ChatHandler) DeleteRoom(c *gin.Context) {
	userID := c.GetUint64("user_id")
	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err = s.roomService.DeleteRoom(c, userID, roomID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
