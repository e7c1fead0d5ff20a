package sandbox

import (
	"context"

	"github.com/dop251/goja"
)

// freezeIntrinsicPrototypes freezes Object/Array/String/Number/Boolean/
// Function's shared prototype before any user code runs, defeating
// prototype-pollution escapes (specification §4.7) while the real
// constructors are still reachable under their normal global names — this
// has to happen before restrictGlobals rebinds those names to restricted
// stand-ins, since it needs the real Object.freeze to do the freezing.
func freezeIntrinsicPrototypes(rt *goja.Runtime) {
	const src = `(function() {
		Object.freeze(Object.prototype);
		Object.freeze(Array.prototype);
		Object.freeze(String.prototype);
		Object.freeze(Number.prototype);
		Object.freeze(Boolean.prototype);
		Object.freeze(Function.prototype);
	})()`
	// Freezing the language's own built-in prototypes cannot itself fail;
	// an error here would indicate a goja bug, not a user error, so it is
	// not worth plumbing up through Sandbox.Run.
	_, _ = rt.RunString(src)
}

// restrictGlobals narrows the goja.New() default global object down to
// specification §4.7's named surface. Global built-ins are, per the
// ECMAScript spec, non-enumerable own properties of the global object, so
// there is no way to discover and strip them by enumeration (Keys() would
// not even see them) — instead this deletes exactly the capability-leak
// names §4.7 calls out by category (eval and Function for "dynamic module
// loading", Reflect and Proxy for "reflective access to the host") and
// rebinds Array/Object/JSON to stand-ins exposing only the methods §4.7
// lists (isArray; keys/values/entries/fromEntries/freeze;
// parse/stringify). Pure-computation built-ins with no ambient capability
// of their own — Math, Date, RegExp, the Error family, Map/Set, the typed
// array constructors, and the native Promise (the "future/promise
// primitive" §4.7 asks to keep) — are left in place: removing them would
// cost scripts real ergonomics for no security benefit, since goja never
// wires any of them to the host filesystem, network, or process.
func restrictGlobals(rt *goja.Runtime, ctx context.Context, api API) {
	global := rt.GlobalObject()

	realArray := global.Get("Array")
	realObject := global.Get("Object")
	realJSON := global.Get("JSON")

	for _, name := range []string{"eval", "Function", "Reflect", "Proxy"} {
		global.Delete(name)
	}

	rt.Set("Array", restrictedArray(rt, realArray))
	rt.Set("Object", restrictedObject(rt, realObject))
	rt.Set("JSON", restrictedJSON(rt, realJSON))
	rt.Set("console", noopConsole(rt))

	opensrc := buildOpensrcObject(rt, ctx, api)
	freezeFn, _ := goja.AssertFunction(realObject.ToObject(rt).Get("freeze"))
	if freezeFn != nil {
		_, _ = freezeFn(goja.Undefined(), opensrc)
	}
	rt.Set("opensrc", opensrc)
}

func restrictedArray(rt *goja.Runtime, real goja.Value) *goja.Object {
	obj := rt.NewObject()
	obj.Set("isArray", real.ToObject(rt).Get("isArray"))
	return obj
}

func restrictedObject(rt *goja.Runtime, real goja.Value) *goja.Object {
	obj := rt.NewObject()
	realObj := real.ToObject(rt)
	for _, name := range []string{"keys", "values", "entries", "fromEntries", "freeze"} {
		obj.Set(name, realObj.Get(name))
	}
	return obj
}

func restrictedJSON(rt *goja.Runtime, real goja.Value) *goja.Object {
	obj := rt.NewObject()
	realObj := real.ToObject(rt)
	obj.Set("parse", realObj.Get("parse"))
	obj.Set("stringify", realObj.Get("stringify"))
	return obj
}

func noopConsole(rt *goja.Runtime) *goja.Object {
	obj := rt.NewObject()
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"log", "info", "warn", "error", "debug"} {
		obj.Set(name, noop)
	}
	return obj
}

// buildOpensrcObject binds every API operation onto a plain object as a
// native Go function. goja's reflection-based function wrapping converts
// JS arguments to each closure's Go parameter types and, for a (T, error)
// return, throws a JS exception built from a non-nil error automatically
// — callers never need to panic by hand.
func buildOpensrcObject(rt *goja.Runtime, ctx context.Context, api API) *goja.Object {
	obj := rt.NewObject()

	obj.Set("list", func() []Source { return api.List() })
	obj.Set("has", func(name, version string) bool { return api.Has(name, version) })
	obj.Set("get", func(name string) goja.Value {
		s, ok := api.Get(name)
		if !ok {
			return goja.Undefined()
		}
		return rt.ToValue(s)
	})

	obj.Set("files", func(source, glob string) ([]FileEntry, error) {
		return api.Files(ctx, source, glob)
	})
	obj.Set("tree", func(source string, opts map[string]any) (TreeNode, error) {
		return api.Tree(ctx, source, optInt(opts, "depth", 0), optString(opts, "pattern", ""))
	})
	obj.Set("read", func(source, path string) (string, error) {
		return api.Read(ctx, source, path)
	})
	obj.Set("readMany", func(source string, paths []string) (map[string]string, error) {
		return api.ReadMany(ctx, source, paths)
	})
	obj.Set("grep", func(pattern string, opts map[string]any) ([]GrepMatch, error) {
		return api.Grep(ctx, pattern, GrepOptions{
			Sources:    optStringSlice(opts, "sources"),
			Include:    optString(opts, "include", ""),
			MaxResults: optInt(opts, "maxResults", 0),
		})
	})
	obj.Set("astGrep", func(source, pattern string, opts map[string]any) ([]AstMatch, error) {
		return api.AstGrep(ctx, source, pattern, AstGrepOptions{
			Glob:  optString(opts, "glob", ""),
			Lang:  optStringSlice(opts, "lang"),
			Limit: optInt(opts, "limit", 0),
		})
	})
	obj.Set("semanticSearch", func(q string, opts map[string]any) (goja.Value, error) {
		outcome, err := api.SemanticSearch(ctx, q, SearchOptions{
			Sources: optStringSlice(opts, "sources"),
			TopK:    optInt(opts, "topK", 0),
		})
		if err != nil {
			return nil, err
		}
		if outcome.Status != "" {
			return rt.ToValue(map[string]any{"error": outcome.Status, "sources": outcome.Sources}), nil
		}
		return rt.ToValue(outcome.Results), nil
	})

	obj.Set("resolve", func(spec string) (ParsedSpec, error) { return api.Resolve(spec) })
	obj.Set("fetch", func(specs []string, opts map[string]any) ([]FetchedSource, error) {
		return api.Fetch(ctx, specs, FetchOptions{Modify: optBool(opts, "modify", false)})
	})
	obj.Set("remove", func(names []string) (RemoveResult, error) { return api.Remove(names) })
	obj.Set("clean", func(opts map[string]any) (RemoveResult, error) {
		return api.Clean(CleanOptions{
			Packages: optBool(opts, "packages", false),
			Repos:    optBool(opts, "repos", false),
			NPM:      optBool(opts, "npm", false),
			PyPI:     optBool(opts, "pypi", false),
			Crates:   optBool(opts, "crates", false),
		})
	})

	return obj
}

func optString(opts map[string]any, key, fallback string) string {
	if opts == nil {
		return fallback
	}
	if v, ok := opts[key].(string); ok {
		return v
	}
	return fallback
}

func optInt(opts map[string]any, key string, fallback int) int {
	if opts == nil {
		return fallback
	}
	switch v := opts[key].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func optBool(opts map[string]any, key string, fallback bool) bool {
	if opts == nil {
		return fallback
	}
	if v, ok := opts[key].(bool); ok {
		return v
	}
	return fallback
}

func optStringSlice(opts map[string]any, key string) []string {
	if opts == nil {
		return nil
	}
	raw, ok := opts[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
