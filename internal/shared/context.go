package shared

import "context"

type sessionContextKey struct{}

type warehouseContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithWarehouse stores the resolved warehouse id in context.
func ContextWithWarehouse(ctx context.Context, warehouseID int64) context.Context {
	return context.WithValue(ctx, warehouseContextKey{}, warehouseID)
}

// WarehouseFromContext extracts the warehouse id resolved from the
// request origin, zero when none was bound.
func WarehouseFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(warehouseContextKey{}).(int64)
	return id
}
