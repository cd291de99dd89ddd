package dto

import "Reclaim/internal/pkg/util"

// Response 统一响应信封
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData 带分页元数据的列表响应
type PageData struct {
	List       interface{}     `json:"list"`
	Pagination util.Pagination `json:"pagination"`
}
