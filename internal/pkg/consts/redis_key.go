package consts

const (
	// TokenBlacklistKey 登出令牌黑名单，key 追加 token 签名
	TokenBlacklistKey = "auth:token:blacklist:"

	// ChatChannelKey WS 推送频道，key 追加会话 ID
	ChatChannelKey = "chat:channel:"

	// LeaderboardKey 总积分排行榜 ZSET
	LeaderboardKey = "leaderboard:points:all"

	// UserSimpleInfoKey 用户简要信息缓存，key 追加用户 ID
	UserSimpleInfoKey = "user:simple:info:"
)
