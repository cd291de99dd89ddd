package service

import (
	"Reclaim/internal/api/dto"
	"Reclaim/internal/model"
	"Reclaim/internal/pkg/consts"
	"Reclaim/internal/pkg/es"
	"Reclaim/internal/pkg/kafka"
	"Reclaim/internal/pkg/minio"
	"Reclaim/internal/pkg/util"
	"Reclaim/internal/repository"
	"context"
	"errors"
	"io"
	log "log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// ItemImageUpload 待上传的图片文件
type ItemImageUpload struct {
	Reader  io.ReadSeeker
	Size    int64
	Caption string
}

type ItemService interface {
	CreateItem(ctx context.Context, userID uint64, createDTO *dto.CreateItemDTO, uploads []*ItemImageUpload) (*dto.ItemDTO, error)
	GetItem(ctx context.Context, id uint64, viewerID uint64) (*dto.ItemDTO, error)
	ListItems(ctx context.Context, listDTO *dto.ListItemDTO) ([]*dto.ItemDTO, util.Pagination, error)
	SearchItems(ctx context.Context, searchDTO *dto.SearchItemDTO) ([]*dto.ItemDTO, util.Pagination, error)
	FindNearby(ctx context.Context, lat, lng, radiusM float64, limit int) ([]*dto.ItemDTO, error)
	UpdateItem(ctx context.Context, userID, id uint64, upDTO *dto.UpdateItemDTO) error
	ResolveItem(ctx context.Context, userID, id uint64, resolveDTO *dto.ResolveItemDTO) error
	DeleteItem(ctx context.Context, userID, id uint64) error
}

type ItemServiceImpl struct {
	itemRepo     repository.ItemRepo
	userService  UserService
	matchService MatchService
	geocode      GeocodeService
	esRepo       es.ItemRepo
	viewProducer kafka.ViewProducer
}

func NewItemService(
	itemRepo repository.ItemRepo,
	userService UserService,
	matchService MatchService,
	geocode GeocodeService,
	esRepo es.ItemRepo,
	viewProducer kafka.ViewProducer,
) ItemService {
	return &ItemServiceImpl{
		itemRepo:     itemRepo,
		userService:  userService,
		matchService: matchService,
		geocode:      geocode,
		esRepo:       esRepo,
		viewProducer: viewProducer,
	}
}

func (s *ItemServiceImpl) CreateItem(ctx context.Context, userID uint64, createDTO *dto.CreateItemDTO, uploads []*ItemImageUpload) (*dto.ItemDTO, error) {
	if createDTO.Type != consts.ItemTypeLost && createDTO.Type != consts.ItemTypeFound {
		return nil, ErrItemTypeInvalid
	}
	if !IsValidCategory(createDTO.Category) {
		return nil, ErrItemCategoryInvalid
	}
	if len(uploads) > consts.MaxItemImages {
		return nil, ErrItemImageLimit
	}

	dateOccurred, err := time.Parse("2006-01-02", createDTO.DateOccurred)
	if err != nil {
		return nil, ErrParamInvalid
	}

	item := &model.Item{}
	if err := copier.Copy(item, createDTO); err != nil {
		return nil, err
	}
	item.UserID = userID
	item.Tags = util.JoinTags(createDTO.Tags)
	item.DateOccurred = dateOccurred
	item.Status = consts.ItemStatusActive
	item.ExpiresAt = time.Now().Add(consts.ItemTTL)

	// 坐标缺省时走地理编码补全
	if createDTO.Lat != nil && createDTO.Lng != nil {
		item.Lat = *createDTO.Lat
		item.Lng = *createDTO.Lng
	} else {
		lat, lng, err := s.geocode.Forward(ctx, createDTO.Address, createDTO.City, createDTO.State, createDTO.Country)
		if err != nil {
			return nil, err
		}
		item.Lat = lat
		item.Lng = lng
	}

	images, err := s.uploadImages(ctx, uploads)
	if err != nil {
		return nil, err
	}

	if err := s.itemRepo.CreateItem(ctx, item, images); err != nil {
		s.cleanupObjects(ctx, images)
		return nil, err
	}
	item.Images = make([]model.ItemImage, 0, len(images))
	for _, img := range images {
		item.Images = append(item.Images, *img)
	}

	// 发布成功后的副作用：积分、计数、检索索引、候选匹配。
	// 均不回滚主流程，失败只记日志。
	if err := s.userService.AwardPoints(ctx, userID, consts.PointsPostItem, consts.PointsReasonPostItem); err != nil {
		log.ErrorContext(ctx, "award post points error", "userID", userID, "err", err)
	}
	if err := s.userService.RecordItemPosted(ctx, userID); err != nil {
		log.ErrorContext(ctx, "incr items posted error", "userID", userID, "err", err)
	}
	if err := s.esRepo.IndexItem(ctx, toItemES(item)); err != nil {
		log.ErrorContext(ctx, "index item error", "itemID", item.ID, "err", err)
	}
	itemDTO := buildItemDTO(item)
	if n, err := s.matchService.SeedMatches(ctx, item); err != nil {
		log.ErrorContext(ctx, "seed matches error", "itemID", item.ID, "err", err)
	} else {
		itemDTO.PotentialMatches = n
	}

	return itemDTO, nil
}

// GetItem 详情查询并计一次浏览。浏览事件异步进 Kafka 做按天聚合。
func (s *ItemServiceImpl) GetItem(ctx context.Context, id uint64, viewerID uint64) (*dto.ItemDTO, error) {
	item, err := s.itemRepo.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	if err := s.itemRepo.IncrViews(ctx, id); err != nil {
		log.ErrorContext(ctx, "incr views error", "itemID", id, "err", err)
	} else {
		item.Views++
	}
	if s.viewProducer != nil {
		s.viewProducer.PublishView(ctx, &kafka.ViewEvent{ItemID: id, ViewerID: viewerID, At: time.Now()})
	}

	itemDTO := buildItemDTO(item)
	// 详情附带已持久化的候选匹配数
	if matches, err := s.itemRepo.GetMatches(ctx, id); err != nil {
		log.ErrorContext(ctx, "load item matches error", "itemID", id, "err", err)
	} else {
		itemDTO.PotentialMatches = len(matches)
	}
	return itemDTO, nil
}

func (s *ItemServiceImpl) ListItems(ctx context.Context, listDTO *dto.ListItemDTO) ([]*dto.ItemDTO, util.Pagination, error) {
	page, pageSize := normalizePage(listDTO.Page, listDTO.PageSize)

	q := &repository.ItemQuery{
		Type:     listDTO.Type,
		Category: listDTO.Category,
		City:     listDTO.City,
		Lat:      listDTO.Lat,
		Lng:      listDTO.Lng,
		RadiusM:  listDTO.RadiusM,
		Page:     page,
		PageSize: pageSize,
		SortBy:   listDTO.SortBy,
		SortDesc: listDTO.Order != "asc",
	}

	items, total, err := s.itemRepo.ListItems(ctx, q)
	if err != nil {
		return nil, util.Pagination{}, err
	}

	return buildItemDTOs(items), util.NewPagination(page, pageSize, total), nil
}

// SearchItems 全文检索走 ES，命中文档直接出 DTO，不回表
func (s *ItemServiceImpl) SearchItems(ctx context.Context, searchDTO *dto.SearchItemDTO) ([]*dto.ItemDTO, util.Pagination, error) {
	page, pageSize := normalizePage(searchDTO.Page, searchDTO.PageSize)

	docs, total, err := s.esRepo.SearchItems(ctx, searchDTO.Keyword, searchDTO.Type, searchDTO.Category, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, util.Pagination{}, err
	}

	itemDTOs := make([]*dto.ItemDTO, 0, len(docs))
	for _, doc := range docs {
		itemDTOs = append(itemDTOs, &dto.ItemDTO{
			ID:          doc.ID,
			Title:       doc.Title,
			Description: doc.Description,
			Type:        doc.Type,
			Category:    doc.Category,
			Status:      doc.Status,
			Tags:        doc.Tags,
			City:        doc.City,
			Lat:         doc.Lat,
			Lng:         doc.Lng,
			CreatedAt:   doc.CreatedAt,
			Images:      []dto.ItemImageDTO{},
			Owner:       dto.UserSimpleDTO{ID: doc.UserID},
		})
	}

	return itemDTOs, util.NewPagination(page, pageSize, total), nil
}

func (s *ItemServiceImpl) FindNearby(ctx context.Context, lat, lng, radiusM float64, limit int) ([]*dto.ItemDTO, error) {
	if radiusM <= 0 {
		radiusM = consts.NearbyDefaultRadiusM
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	items, err := s.itemRepo.FindNearby(ctx, lat, lng, radiusM, limit)
	if err != nil {
		return nil, err
	}

	itemDTOs := make([]*dto.ItemDTO, 0, len(items))
	for _, item := range items {
		d := util.HaversineMeters(lat, lng, item.Lat, item.Lng)
		itemDTO := buildItemDTO(item)
		itemDTO.DistanceM = &d
		itemDTOs = append(itemDTOs, itemDTO)
	}
	return itemDTOs, nil
}

func (s *ItemServiceImpl) UpdateItem(ctx context.Context, userID, id uint64, upDTO *dto.UpdateItemDTO) error {
	item, err := s.ownedItem(ctx, userID, id)
	if err != nil {
		return err
	}
	if item.Status == consts.ItemStatusResolved {
		return ErrItemResolved
	}

	if upDTO.Title != nil {
		item.Title = *upDTO.Title
	}
	if upDTO.Description != nil {
		item.Description = *upDTO.Description
	}
	if upDTO.Category != nil {
		if !IsValidCategory(*upDTO.Category) {
			return ErrItemCategoryInvalid
		}
		item.Category = *upDTO.Category
	}
	if upDTO.Tags != nil {
		item.Tags = util.JoinTags(upDTO.Tags)
	}
	if upDTO.ContactInfo != nil {
		item.ContactInfo = *upDTO.ContactInfo
	}
	if upDTO.Reward != nil {
		item.Reward = upDTO.Reward
	}

	if err := s.itemRepo.UpdateItem(ctx, item); err != nil {
		return err
	}
	if err := s.esRepo.IndexItem(ctx, toItemES(item)); err != nil {
		log.ErrorContext(ctx, "reindex item error", "itemID", item.ID, "err", err)
	}
	return nil
}

// ResolveItem 标记找回。只有发布者可以操作，重复标记直接报错。
// 发布者得找回积分；若指明了协助者，协助者同样得分并计入归还数。
func (s *ItemServiceImpl) ResolveItem(ctx context.Context, userID, id uint64, resolveDTO *dto.ResolveItemDTO) error {
	item, err := s.ownedItem(ctx, userID, id)
	if err != nil {
		return err
	}
	if item.Status == consts.ItemStatusResolved {
		return ErrItemResolved
	}

	resolvedBy := userID
	if resolveDTO != nil && resolveDTO.ResolvedBy != nil {
		resolvedBy = *resolveDTO.ResolvedBy
	}

	if err := s.itemRepo.ResolveItem(ctx, id, resolvedBy, time.Now()); err != nil {
		return err
	}

	if err := s.userService.AwardPoints(ctx, userID, consts.PointsResolveItem, consts.PointsReasonResolveItem); err != nil {
		log.ErrorContext(ctx, "award resolve points error", "userID", userID, "err", err)
	}
	if resolvedBy != userID {
		if err := s.userService.AwardPoints(ctx, resolvedBy, consts.PointsResolveItem, consts.PointsReasonResolveItem); err != nil {
			log.ErrorContext(ctx, "award helper points error", "userID", resolvedBy, "err", err)
		}
	}
	if err := s.userService.RecordItemReturned(ctx, resolvedBy); err != nil {
		log.ErrorContext(ctx, "incr items returned error", "userID", resolvedBy, "err", err)
	}
	if err := s.esRepo.UpdateStatus(ctx, id, consts.ItemStatusResolved); err != nil {
		log.ErrorContext(ctx, "update es status error", "itemID", id, "err", err)
	}

	return nil
}

func (s *ItemServiceImpl) DeleteItem(ctx context.Context, userID, id uint64) error {
	item, err := s.ownedItem(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.itemRepo.DeleteItem(ctx, id); err != nil {
		return err
	}

	for i := range item.Images {
		if err := minio.DeleteFile(ctx, item.Images[i].ObjectName); err != nil {
			log.ErrorContext(ctx, "delete item image error", "object", item.Images[i].ObjectName, "err", err)
		}
	}
	if err := s.esRepo.DeleteItem(ctx, id); err != nil {
		log.ErrorContext(ctx, "delete es doc error", "itemID", id, "err", err)
	}
	return nil
}

func (s *ItemServiceImpl) ownedItem(ctx context.Context, userID, id uint64) (*model.Item, error) {
	item, err := s.itemRepo.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if item.UserID != userID {
		return nil, ErrNotOwner
	}
	return item, nil
}

// uploadImages 嗅探类型、生成缩略图并双写 MinIO
func (s *ItemServiceImpl) uploadImages(ctx context.Context, uploads []*ItemImageUpload) ([]*model.ItemImage, error) {
	images := make([]*model.ItemImage, 0, len(uploads))
	for i, up := range uploads {
		contentType, err := util.GetSafeContentType(up.Reader)
		if err != nil {
			s.cleanupObjects(ctx, images)
			return nil, err
		}
		if !strings.HasPrefix(contentType, consts.MimePrefixImage) {
			s.cleanupObjects(ctx, images)
			return nil, ErrFileNotSupported
		}

		thumb, err := util.MakeThumbnail(up.Reader)
		if err != nil {
			s.cleanupObjects(ctx, images)
			return nil, err
		}

		objectName := "items/" + uuid.NewString()
		thumbName := objectName + "_thumb"

		if _, err := minio.UploadFile(ctx, objectName, up.Reader, up.Size, contentType); err != nil {
			s.cleanupObjects(ctx, images)
			return nil, err
		}
		if _, err := minio.UploadFile(ctx, thumbName, thumb, int64(thumb.Len()), "image/jpeg"); err != nil {
			_ = minio.DeleteFile(ctx, objectName)
			s.cleanupObjects(ctx, images)
			return nil, err
		}

		images = append(images, &model.ItemImage{
			URL:        minio.GetPublicURL(objectName),
			ThumbURL:   minio.GetPublicURL(thumbName),
			ObjectName: objectName,
			Caption:    up.Caption,
			SortOrder:  i,
		})
	}
	return images, nil
}

func (s *ItemServiceImpl) cleanupObjects(ctx context.Context, images []*model.ItemImage) {
	for _, img := range images {
		_ = minio.DeleteFile(ctx, img.ObjectName)
		_ = minio.DeleteFile(ctx, img.ObjectName+"_thumb")
	}
}

// IsValidCategory 分类闭合校验
func IsValidCategory(category string) bool {
	for _, c := range consts.ItemCategories {
		if c == category {
			return true
		}
	}
	return false
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 50 {
		pageSize = 10
	}
	return page, pageSize
}

func toItemES(item *model.Item) *es.ItemES {
	return &es.ItemES{
		ID:          item.ID,
		UserID:      item.UserID,
		Type:        item.Type,
		Category:    item.Category,
		Status:      item.Status,
		Title:       item.Title,
		Description: item.Description,
		Tags:        util.SplitTags(item.Tags),
		City:        item.City,
		Lat:         item.Lat,
		Lng:         item.Lng,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func buildItemDTO(item *model.Item) *dto.ItemDTO {
	itemDTO := &dto.ItemDTO{
		ID:           item.ID,
		Title:        item.Title,
		Description:  item.Description,
		Type:         item.Type,
		Category:     item.Category,
		Status:       item.Status,
		Tags:         util.SplitTags(item.Tags),
		ContactInfo:  item.ContactInfo,
		Reward:       item.Reward,
		Address:      item.Address,
		City:         item.City,
		State:        item.State,
		Country:      item.Country,
		Lat:          item.Lat,
		Lng:          item.Lng,
		DateOccurred: item.DateOccurred,
		Views:        item.Views,
		IsResolved:   item.IsResolved,
		ResolvedAt:   item.ResolvedAt,
		ExpiresAt:    item.ExpiresAt,
		CreatedAt:    item.CreatedAt,
		Images:       make([]dto.ItemImageDTO, 0, len(item.Images)),
	}

	for _, img := range item.Images {
		itemDTO.Images = append(itemDTO.Images, dto.ItemImageDTO{
			URL:       img.URL,
			ThumbURL:  img.ThumbURL,
			Caption:   img.Caption,
			SortOrder: img.SortOrder,
		})
	}

	itemDTO.Owner = dto.UserSimpleDTO{ID: item.UserID}
	if item.User.ID != 0 {
		itemDTO.Owner.Nickname = item.User.Nickname
		itemDTO.Owner.AvatarURL = minio.GetPublicURL(item.User.AvatarURL)
		itemDTO.Owner.Level = item.User.Level()
	}

	return itemDTO
}

func buildItemDTOs(items []*model.Item) []*dto.ItemDTO {
	itemDTOs := make([]*dto.ItemDTO, 0, len(items))
	for _, item := range items {
		itemDTOs = append(itemDTOs, buildItemDTO(item))
	}
	return itemDTOs
}
