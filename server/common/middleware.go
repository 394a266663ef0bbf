package common

import (
	"github.com/gin-gonic/gin"
	"net/http"
	"rank-annotation-backend/logging"
	"time"
)

const HeaderAdminKey = "X-Admin-Key"

/*
LogRequest 记录每个请求的方法、路径、状态码和耗时。
*/
func LogRequest(ctx *gin.Context) {
	begin := time.Now()
	ctx.Next()

	logging.Default().Infof("[%s] %s -> %d in %s",
		ctx.Request.Method, ctx.Request.URL.Path, ctx.Writer.Status(), time.Since(begin))
}

/*
RejectNotAdmin 拒绝没有携带正确管理密钥的请求。调试模式下未配置密钥时放行。
*/
func RejectNotAdmin(adminKey string, debug bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if len(adminKey) == 0 && debug {
			ctx.Next()
			return
		}

		if len(adminKey) == 0 || ctx.GetHeader(HeaderAdminKey) != adminKey {
			logging.Default().Warnf("reject admin request [%s] from [%s]", ctx.Request.URL.Path, ctx.ClientIP())
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, MakeErrorResp(CodeUnauthorized, "admin key required"))
			return
		}

		ctx.Next()
	}
}
