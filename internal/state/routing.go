package state

import (
	"context"
	"sync/atomic"

	"github.com/AbdelilahOu/DBRouter/internal/client"
)

// DefaultKey is the reserved routing key of the default connection.
const DefaultKey = "default"

// Router maps routing keys to pools. The table is immutable once published;
// every change swaps in a complete new table.
type Router struct {
	table atomic.Pointer[map[string]*client.DBClient]
	def   *client.DBClient
}

func newRouter(def *client.DBClient) *Router {
	r := &Router{def: def}
	r.publish(nil)
	return r
}

// publish replaces the table with routes plus the default entry.
func (r *Router) publish(routes map[string]*client.DBClient) {
	table := make(map[string]*client.DBClient, len(routes)+1)
	for k, v := range routes {
		table[k] = v
	}
	table[DefaultKey] = r.def
	r.table.Store(&table)
}

// Resolve returns the pool for key, falling back to the default pool for keys
// absent from the current table. The result is nil only when no default
// connection is configured.
func (r *Router) Resolve(key string) *client.DBClient {
	table := *r.table.Load()
	if c, ok := table[key]; ok {
		return c
	}
	return table[DefaultKey]
}

// ResolveContext resolves the routing key carried by ctx.
func (r *Router) ResolveContext(ctx context.Context) *client.DBClient {
	return r.Resolve(RouteKey(ctx))
}

// lookup returns the pool published under key, without falling back.
func (r *Router) lookup(key string) (*client.DBClient, bool) {
	c, ok := (*r.table.Load())[key]
	return c, ok
}
