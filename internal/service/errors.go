package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrParamInvalid        = errors.New("参数错误")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrUserExist           = errors.New("邮箱已注册")
	ErrPasswordIncorrect   = errors.New("密码错误")
	ErrUserBan             = errors.New("用户已被封禁")
	ErrItemNotFound        = errors.New("物品不存在")
	ErrItemResolved        = errors.New("物品已找回")
	ErrItemCategoryInvalid = errors.New("分类不存在")
	ErrItemTypeInvalid     = errors.New("物品类型无效")
	ErrItemImageLimit      = errors.New("图片数量超过限制")
	ErrNotOwner            = errors.New("只有发布者可以操作")
	ErrNotParticipant      = errors.New("不是会话成员")
	ErrChatNotFound        = errors.New("会话不存在")
	ErrChatSelf            = errors.New("不能和自己开启会话")
	ErrChatConflict        = errors.New("会话已存在，请重试")
	ErrMsgPayloadMismatch  = errors.New("消息负载与类型不匹配")
	ErrFileNotSupported    = errors.New("不支持的文件类型")
	ErrGeocodeFailed       = errors.New("地址解析失败")
	UnauthorizedError      = errors.New("权限不足")
	UnExpectedError        = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:        BadRequest,
	ErrUserNotFound:        NotFound,
	ErrUserExist:           BadRequest,
	ErrPasswordIncorrect:   Unauthorized,
	ErrUserBan:             Unauthorized,
	ErrItemNotFound:        NotFound,
	ErrItemResolved:        BadRequest,
	ErrItemCategoryInvalid: BadRequest,
	ErrItemTypeInvalid:     BadRequest,
	ErrItemImageLimit:      BadRequest,
	ErrNotOwner:            Forbidden,
	ErrNotParticipant:      Forbidden,
	ErrChatNotFound:        NotFound,
	ErrChatSelf:            BadRequest,
	ErrChatConflict:        Conflict,
	ErrMsgPayloadMismatch:  BadRequest,
	ErrFileNotSupported:    BadRequest,
	ErrGeocodeFailed:       BadRequest,
	UnauthorizedError:      Forbidden,
	UnExpectedError:        InternalServerError,
}
