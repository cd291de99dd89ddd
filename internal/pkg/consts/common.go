package consts

import "time"

// 物品类型
const (
	ItemTypeLost  int8 = 1
	ItemTypeFound int8 = 2
)

// 物品状态
const (
	ItemStatusActive   int8 = 0
	ItemStatusResolved int8 = 1
	ItemStatusExpired  int8 = 2
)

// ItemCategories 闭合的分类枚举
var ItemCategories = []string{
	"electronics",
	"documents",
	"jewelry",
	"clothing",
	"accessories",
	"keys",
	"bags",
	"pets",
	"other",
}

// 消息类型
const (
	MsgTypeText     = 1
	MsgTypeImage    = 2
	MsgTypeLocation = 3
	MsgTypeSystem   = 4
)

// 积分规则
const (
	PointsPostItem    = 10
	PointsResolveItem = 50
	PointsPerLevel    = 100
)

const (
	PointsReasonPostItem    = "post_item"
	PointsReasonResolveItem = "resolve_item"
)

// 匹配参数
const (
	MatchRadiusMeters    = 50000.0
	MatchLimit           = 10
	MatchSeedConfidence  = 0.7
	NearbyDefaultRadiusM = 10000.0
)

// 物品有效期
const ItemTTL = 30 * 24 * time.Hour

const (
	MimePrefixImage = "image"
)

const (
	MaxItemImages = 5
)

const (
	DefaultAvatarURL = "default_avatar.png"
)
