package kafka

import "time"

// ViewEvent 物品浏览事件，由详情接口产出，消费端按天聚合
type ViewEvent struct {
	ItemID   uint64    `json:"item_id"`
	ViewerID uint64    `json:"viewer_id"` // 0 表示匿名访问
	At       time.Time `json:"at"`
}
