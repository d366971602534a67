package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, message string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    errCode,
		Message: message,
	})
}

// ErrorWithDetail 带详情的错误响应
func ErrorWithDetail(c *gin.Context, httpCode int, errCode int, message, detail string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    errCode,
		Message: message,
		Detail:  detail,
	})
}

// Cursor 游标分页信息
// 消息日志按序号翻页：next_before_seq 作为下一页的 before_seq 参数
type Cursor struct {
	NextBeforeSeq int64 `json:"next_before_seq"`
	HasMore       bool  `json:"has_more"`
}

// ResponseWithCursor 带游标的响应结构
type ResponseWithCursor struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Cursor  *Cursor     `json:"cursor,omitempty"`
}

// SuccessWithCursor 成功响应（带游标分页）
func SuccessWithCursor(c *gin.Context, data interface{}, nextBeforeSeq int64, hasMore bool) {
	c.JSON(http.StatusOK, ResponseWithCursor{
		Code:    0,
		Message: "success",
		Data:    data,
		Cursor: &Cursor{
			NextBeforeSeq: nextBeforeSeq,
			HasMore:       hasMore,
		},
	})
}
