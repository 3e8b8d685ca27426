package state

import (
	"context"
	"sort"
	"testing"

	"github.com/AbdelilahOu/DBRouter/internal/client"
)

// routeKeys returns the keys of the published table, sorted.
func routeKeys(r *Router) []string {
	table := *r.table.Load()
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestRouterFallsBackToDefault(t *testing.T) {
	def := &client.DBClient{Label: "default"}
	other := &client.DBClient{Label: "other"}
	r := newRouter(def)
	r.publish(map[string]*client.DBClient{"abc": other})

	if got := r.Resolve("abc"); got != other {
		t.Errorf("Resolve(abc) = %v, want other", got)
	}
	if got := r.Resolve("missing"); got != def {
		t.Errorf("Resolve(missing) = %v, want default", got)
	}
	if got := r.Resolve(DefaultKey); got != def {
		t.Errorf("Resolve(default) = %v, want default", got)
	}
	if _, ok := r.lookup("missing"); ok {
		t.Error("lookup(missing) found a route")
	}
	if got, ok := r.lookup("abc"); !ok || got != other {
		t.Errorf("lookup(abc) = %v, %v, want other", got, ok)
	}
}

func TestRouterPublishReplacesWholeTable(t *testing.T) {
	def := &client.DBClient{Label: "default"}
	r := newRouter(def)
	r.publish(map[string]*client.DBClient{"a": {}, "b": {}})
	r.publish(map[string]*client.DBClient{"c": {}})

	keys := routeKeys(r)
	want := []string{"c", DefaultKey}
	if len(keys) != len(want) {
		t.Fatalf("table keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestRouterPublishCopiesInput(t *testing.T) {
	r := newRouter(nil)
	routes := map[string]*client.DBClient{"a": {}}
	r.publish(routes)
	delete(routes, "a")
	routes["b"] = &client.DBClient{}

	if keys := routeKeys(r); len(keys) != 2 || keys[0] != "a" {
		t.Errorf("table keys = %v, published table changed with its input", keys)
	}
}

func TestResolveContext(t *testing.T) {
	def := &client.DBClient{Label: "default"}
	s := &client.DBClient{Label: "session"}
	r := newRouter(def)
	r.publish(map[string]*client.DBClient{"sid": s})

	if got := r.ResolveContext(context.Background()); got != def {
		t.Error("context without a session should resolve to default")
	}
	if got := r.ResolveContext(WithSession(context.Background(), "sid")); got != s {
		t.Error("context with a session should resolve to that session")
	}
}

func TestSessionFromContext(t *testing.T) {
	if _, ok := SessionFromContext(context.Background()); ok {
		t.Error("empty context reported a session")
	}
	if _, ok := SessionFromContext(WithSession(context.Background(), "")); ok {
		t.Error("empty id should count as no session")
	}
	id, ok := SessionFromContext(WithSession(context.Background(), "x"))
	if !ok || id != "x" {
		t.Errorf("SessionFromContext = %q, %v, want x, true", id, ok)
	}
}
