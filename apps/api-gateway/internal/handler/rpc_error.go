package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/prohmpiriya/hr-identity/pkg/logger"
	"github.com/prohmpiriya/hr-identity/pkg/response"
)

// writeRPCError turns an auth manager status into an HTTP error body.
// Only codes the auth manager sets deliberately pass their message through.
func writeRPCError(c *gin.Context, log *logger.Logger, err error) {
	st := status.Convert(err)
	switch st.Code() {
	case codes.InvalidArgument:
		response.BadRequest(c, st.Message())
	case codes.Unauthenticated:
		response.Unauthorized(c, st.Message())
	case codes.PermissionDenied:
		response.Forbidden(c, st.Message())
	case codes.NotFound:
		response.NotFound(c, st.Message())
	case codes.AlreadyExists:
		response.Conflict(c, st.Message())
	case codes.Unimplemented:
		response.Error(c, http.StatusNotImplemented, "NOT_IMPLEMENTED", st.Message(), "")
	case codes.Unavailable, codes.DeadlineExceeded:
		log.WarnContext(c.Request.Context(), "Auth manager unavailable", zap.Error(err))
		response.ServiceUnavailable(c, "Authentication service unavailable")
	default:
		log.ErrorContext(c.Request.Context(), "Auth manager call failed", zap.Error(err))
		response.InternalError(c)
	}
}
