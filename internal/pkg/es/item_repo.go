package es

import (
	"Reclaim/internal/pkg/consts"
	"context"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/goccy/go-json"
)

const MaxSearchDepth = 400

type ItemRepo interface {
	SearchItems(ctx context.Context, keyword string, itemType int8, category string, from, size int) ([]*ItemES, int64, error)
	IndexItem(ctx context.Context, item *ItemES) error
	UpdateStatus(ctx context.Context, id uint64, status int8) error
	DeleteItem(ctx context.Context, id uint64) error
}

type ItemRepoImpl struct {
	client *elasticsearch.TypedClient
}

func NewItemRepo(client *elasticsearch.TypedClient) ItemRepo {
	return &ItemRepoImpl{client: client}
}

// SearchItems 全文检索：标题权重最高，其次描述与标签。
// type/category 为 0/空 时不参与过滤；只检索有效物品。
func (s *ItemRepoImpl) SearchItems(ctx context.Context, keyword string, itemType int8, category string, from, size int) ([]*ItemES, int64, error) {
	if from >= MaxSearchDepth {
		return []*ItemES{}, 0, nil
	}

	filters := []types.Query{{
		Term: map[string]types.TermQuery{
			"status": {Value: consts.ItemStatusActive},
		},
	}}
	if itemType != 0 {
		filters = append(filters, types.Query{
			Term: map[string]types.TermQuery{"type": {Value: itemType}},
		})
	}
	if category != "" {
		filters = append(filters, types.Query{
			Term: map[string]types.TermQuery{"category": {Value: category}},
		})
	}

	boolQuery := &types.BoolQuery{
		Filter: filters,
		Must: []types.Query{{
			MultiMatch: &types.MultiMatchQuery{
				Query:  keyword,
				Fields: []string{"title^3", "description", "tags^2"},
			},
		}},
	}

	res, err := s.client.Search().
		Index(ItemIndex).
		Query(&types.Query{Bool: boolQuery}).
		From(from).
		Size(size).
		Sort(types.SortOptions{SortOptions: map[string]types.FieldSort{
			"_score":     {Order: &sortorder.Desc},
			"created_at": {Order: &sortorder.Desc},
		}}).
		Do(ctx)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*ItemES, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var item ItemES
		if err := json.Unmarshal(hit.Source_, &item); err != nil {
			continue
		}
		items = append(items, &item)
	}

	var total int64
	if res.Hits.Total != nil {
		total = res.Hits.Total.Value
	}
	return items, total, nil
}

// IndexItem 写入或覆盖文档
func (s *ItemRepoImpl) IndexItem(ctx context.Context, item *ItemES) error {
	_, err := s.client.Index(ItemIndex).
		Id(strconv.FormatUint(item.ID, 10)).
		Document(item).
		Do(ctx)
	return err
}

// UpdateStatus 局部更新状态字段
func (s *ItemRepoImpl) UpdateStatus(ctx context.Context, id uint64, status int8) error {
	doc, err := json.Marshal(map[string]int8{"status": status})
	if err != nil {
		return err
	}
	_, err = s.client.Update(ItemIndex, strconv.FormatUint(id, 10)).
		Doc(doc).
		Do(ctx)
	return err
}

// DeleteItem 删除文档，文档不存在不视为错误
func (s *ItemRepoImpl) DeleteItem(ctx context.Context, id uint64) error {
	_, err := s.client.Delete(ItemIndex, strconv.FormatUint(id, 10)).Do(ctx)
	return err
}
