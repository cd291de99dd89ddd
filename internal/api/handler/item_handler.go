package handler

import (
	"Reclaim/internal/api/dto"
	"Reclaim/internal/pkg/response"
	"Reclaim/internal/pkg/util"
	"Reclaim/internal/service"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

type ItemHandler struct {
	itemSvc  service.ItemService
	matchSvc service.MatchService
}

func NewItemHandler(itemSvc service.ItemService, matchSvc service.MatchService) *ItemHandler {
	return &ItemHandler{
		itemSvc:  itemSvc,
		matchSvc: matchSvc,
	}
}

// CreateItem multipart 提交：data 字段携带 JSON，images 字段携带图片文件
func (s *ItemHandler) CreateItem(c *gin.Context) {
	var createDTO dto.CreateItemDTO
	if err := json.Unmarshal([]byte(c.PostForm("data")), &createDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&createDTO); err != nil {
		response.Error(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	files := form.File["images"]
	captions := form.Value["captions"]

	uploads := make([]*service.ItemImageUpload, 0, len(files))
	opened := make([]multipart.File, 0, len(files))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			response.Error(c, err)
			return
		}
		opened = append(opened, f)

		caption := ""
		if i < len(captions) {
			caption = captions[i]
		}
		uploads = append(uploads, &service.ItemImageUpload{
			Reader:  f,
			Size:    fh.Size,
			Caption: caption,
		})
	}

	userID := c.GetUint64("user_id")
	itemDTO, err := s.itemSvc.CreateItem(c.Request.Context(), userID, &createDTO, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, itemDTO)
}

func (s *ItemHandler) GetItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	viewerID := c.GetUint64("user_id")
	itemDTO, err := s.itemSvc.GetItem(c.Request.Context(), id, viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, itemDTO)
}

func (s *ItemHandler) ListItems(c *gin.Context) {
	var listDTO dto.ListItemDTO
	if err := c.ShouldBindQuery(&listDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&listDTO); err != nil {
		response.Error(c, err)
		return
	}

	items, pagination, err := s.itemSvc.ListItems(c.Request.Context(), &listDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.PageData{List: items, Pagination: pagination})
}

func (s *ItemHandler) SearchItems(c *gin.Context) {
	var searchDTO dto.SearchItemDTO
	if err := c.ShouldBindQuery(&searchDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&searchDTO); err != nil {
		response.Error(c, err)
		return
	}

	items, pagination, err := s.itemSvc.SearchItems(c.Request.Context(), &searchDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.PageData{List: items, Pagination: pagination})
}

func (s *ItemHandler) FindNearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	radiusM, _ := strconv.ParseFloat(c.DefaultQuery("radius_m", "0"), 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, err := s.itemSvc.FindNearby(c.Request.Context(), lat, lng, radiusM, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

func (s *ItemHandler) UpdateItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	var upDTO dto.UpdateItemDTO
	if err := c.ShouldBind(&upDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&upDTO); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.itemSvc.UpdateItem(c.Request.Context(), userID, id, &upDTO); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ItemHandler) ResolveItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	var resolveDTO dto.ResolveItemDTO
	if err := c.ShouldBind(&resolveDTO); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.itemSvc.ResolveItem(c.Request.Context(), userID, id, &resolveDTO); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ItemHandler) DeleteItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	userID := c.GetUint64("user_id")
	if err := s.itemSvc.DeleteItem(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetMatches 实时候选匹配
func (s *ItemHandler) GetMatches(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	matches, err := s.matchSvc.FindMatches(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, matches)
}

// RecordMatch 手动确认两件物品相关
func (s *ItemHandler) RecordMatch(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	matchedID, err := strconv.ParseUint(c.Param("matched_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.matchSvc.RecordMatch(c.Request.Context(), userID, id, matchedID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
