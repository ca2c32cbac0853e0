package pathexpr

import "fmt"

// ParamBinder assigns each bound value a unique numbered parameter in call
// order. Values never appear inline in rendered text (§4.3: "values never
// appear inline in the generated expression").
type ParamBinder struct {
	values []any
}

// Bind records v and returns its placeholder, e.g. "$p1".
func (b *ParamBinder) Bind(v any) string {
	b.values = append(b.values, v)
	return fmt.Sprintf("$p%d", len(b.values))
}

// Values returns the bound values in bind order, a defensive copy.
func (b *ParamBinder) Values() []any {
	out := make([]any, len(b.values))
	copy(out, b.values)
	return out
}
