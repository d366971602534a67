package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuchat/backend/internal/interfaces/http/response"
)

// 身份由上游身份系统解析后以请求头传入，本服务直接信任
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// 统一错误码
const (
	codeBadRequest       = 1001
	codeNotFound         = 1002
	codePermissionDenied = 1003
	codeConflict         = 1004
	codeInternal         = 1005
	codeUpstreamTimeout  = 1006
)

// callerIdentity 从请求头提取调用者身份
// 缺少用户 ID 时直接写出 401 响应并返回 ok=false
func callerIdentity(c *gin.Context) (userID, username string, ok bool) {
	userID = c.GetHeader(HeaderUserID)
	if userID == "" {
		response.Error(c, http.StatusUnauthorized, codeBadRequest, "missing "+HeaderUserID+" header")
		return "", "", false
	}
	username = c.GetHeader(HeaderUserName)
	if username == "" {
		username = userID
	}
	return userID, username, true
}
