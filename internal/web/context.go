package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/attrmatrix/internal/core"
	"github.com/JonMunkholm/attrmatrix/internal/web/middleware"
)

// WithRequestMetadata adds IP and User-Agent to ctx for audit logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.WithOrigin(ctx, core.Origin{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
}
