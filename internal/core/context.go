package core

import (
	"context"
	"log/slog"
)

// Origin identifies the client behind a mutation in audit records.
type Origin struct {
	IP        string
	UserAgent string
}

type originKey struct{}

// WithOrigin attaches o to ctx. Empty fields are left out of audit records.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the Origin stored in ctx, or the zero Origin.
func OriginFrom(ctx context.Context) Origin {
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}

func (o Origin) attrs() []slog.Attr {
	var attrs []slog.Attr
	if o.IP != "" {
		attrs = append(attrs, slog.String("ip", o.IP))
	}
	if o.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", o.UserAgent))
	}
	return attrs
}
