package handler

import (
	"Reclaim/internal/api/dto"
	"Reclaim/internal/pkg/response"
	"Reclaim/internal/pkg/util"
	"Reclaim/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatSvc service.ChatService
}

func NewChatHandler(chatSvc service.ChatService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

// StartChat 针对某个物品向对方发起会话，幂等
func (s *ChatHandler) StartChat(c *gin.Context) {
	var startDTO dto.StartChatDTO
	if err := c.ShouldBind(&startDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&startDTO); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	convDTO, err := s.chatSvc.FindOrCreate(c.Request.Context(), userID, &startDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, convDTO)
}

func (s *ChatHandler) GetConversations(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convDTOs, err := s.chatSvc.GetConversations(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, convDTOs)
}

func (s *ChatHandler) SendMessage(c *gin.Context) {
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	var msgDTO dto.SendMessageDTO
	if err := c.ShouldBind(&msgDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&msgDTO); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	msgOut, err := s.chatSvc.SendMessage(c.Request.Context(), userID, convID, &msgDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msgOut)
}

func (s *ChatHandler) ListMessages(c *gin.Context) {
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	userID := c.GetUint64("user_id")
	msgs, pagination, err := s.chatSvc.ListMessages(c.Request.Context(), userID, convID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.PageData{List: msgs, Pagination: pagination})
}

func (s *ChatHandler) MarkRead(c *gin.Context) {
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	userID := c.GetUint64("user_id")
	if err := s.chatSvc.MarkChatRead(c.Request.Context(), userID, convID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// UnreadTotal 小红点：全部会话未读数之和
func (s *ChatHandler) UnreadTotal(c *gin.Context) {
	userID := c.GetUint64("user_id")
	total, err := s.chatSvc.UnreadTotal(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, map[string]int{"unread_total": total})
}

func (s *ChatHandler) Archive(c *gin.Context) {
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	userID := c.GetUint64("user_id")
	if err := s.chatSvc.ArchiveConversation(c.Request.Context(), userID, convID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
