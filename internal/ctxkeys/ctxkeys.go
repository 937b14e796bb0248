package ctxkeys

import "context"

// TraceIDKey 上下文中的追踪 ID（导览运行 ID）
type TraceIDKey struct{}

// WithTraceID 写入追踪 ID
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey{}, id)
}

// TraceID 读取追踪 ID，不存在时返回空串
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDKey{}).(string)
	return id
}
