package pipeline

// Context is the mutable accumulator of step outputs for one run. Every step
// receives the same Context and sees every merge performed so far; writes
// happen only inside the executor, immediately after a step returns, so
// there is never a concurrent writer.
type Context struct {
	values map[string]any
}

// NewContext returns an empty run context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// NewContextWith seeds a run context with initial values.
func NewContextWith(values map[string]any) *Context {
	rc := NewContext()
	for k, v := range values {
		rc.values[k] = v
	}
	return rc
}

// Get returns the raw value for key. Absence means "not yet produced",
// never an error.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key has been produced.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// String returns the string value for key, or "" when absent or not a string.
func (c *Context) String(key string) string {
	if v, ok := c.values[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the bool value for key, or false when absent or not a bool.
func (c *Context) Bool(key string) bool {
	if v, ok := c.values[key].(bool); ok {
		return v
	}
	return false
}

// Int returns the int value for key, tolerating the numeric types a JSON
// round-trip produces.
func (c *Context) Int(key string) int {
	switch v := c.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Int64 returns the int64 value for key, tolerating the numeric types a
// JSON round-trip produces.
func (c *Context) Int64(key string) int64 {
	switch v := c.values[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Float64 returns the float value for key, or 0 when absent.
func (c *Context) Float64(key string) float64 {
	switch v := c.values[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// StringSlice returns the []string value for key, tolerating []any payloads.
func (c *Context) StringSlice(key string) []string {
	switch v := c.values[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Snapshot returns a shallow copy of every key for persistence into run
// summaries.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// merge applies step updates. Later writers overwrite earlier values; keys
// are never deleted mid-run. Only the executor calls this.
func (c *Context) merge(updates map[string]any) {
	for k, v := range updates {
		c.values[k] = v
	}
}
