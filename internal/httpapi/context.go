package httpapi

import (
	"context"
	"net/http"
	"sync"
)

// baseCtx is canceled when the server shuts down. Trigger calls and
// websocket streams end with it.
var (
	baseMu  sync.RWMutex
	baseCtx = context.Background()
)

// SetBaseContext sets the server-lifetime context. nil restores Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	baseMu.Lock()
	baseCtx = ctx
	baseMu.Unlock()
}

func baseContext() context.Context {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return baseCtx
}

// requestContext is canceled when either the request or the server ends.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(baseContext(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
