package erp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dukaforge/stocklink/pkg/types"
)

// operatorTag is the reserved key carrying a group-level operator override
// inside a filter map. It is consumed during normalization and never emitted
// as a filter field.
const operatorTag = "operator"

// operatorTokens maps the accepted human-readable operator tokens to their
// numeric wire codes. Tokens are matched case-insensitively after trimming.
var operatorTokens = map[string]int{
	"=":               types.OpEquals,
	"==":              types.OpEquals,
	">=":              types.OpGreaterEqual,
	"<=":              types.OpLessEqual,
	">":               types.OpGreater,
	"<":               types.OpLess,
	"LIKE":            types.OpLike,
	"CONTAINS":        types.OpLike,
	"!=":              types.OpNotEqual,
	"<>":              types.OpNotEqual,
	"NULL":            types.OpIsNull,
	"IS NULL":         types.OpIsNull,
	"NOT NULL":        types.OpIsNotNull,
	"IS NOT NULL":     types.OpIsNotNull,
	"STARTS":          types.OpStartsWith,
	"STARTS WITH":     types.OpStartsWith,
	"NOT LIKE":        types.OpNotLike,
	"NOT CONTAINS":    types.OpNotLike,
	"NOT STARTS":      types.OpNotStarts,
	"NOT STARTS WITH": types.OpNotStarts,
	"ENDS":            types.OpEndsWith,
	"ENDS WITH":       types.OpEndsWith,
	"NOT ENDS":        types.OpNotEnds,
	"NOT ENDS WITH":   types.OpNotEnds,
}

// ResolveOperator turns an operator token into its numeric wire code.
// Numeric strings pass through as-is; an empty token resolves to fallback;
// any other unrecognized token resolves to equals.
func ResolveOperator(token string, fallback int) int {
	token = strings.TrimSpace(token)
	if token == "" {
		return fallback
	}
	if n, err := strconv.Atoi(token); err == nil {
		return n
	}
	if code, ok := operatorTokens[strings.ToUpper(token)]; ok {
		return code
	}
	return types.OpEquals
}

// NormalizeFilters turns a user-supplied filter expression into its
// canonical group list and the wire-format fragment.
//
// Three legacy input shapes are accepted and produce identical output for
// the same logical filter:
//
//   - a flat field→value map, all fields using the request-level operator;
//   - a flat map additionally carrying an "operator" key of its own,
//     treated as a single group with that override;
//   - a list of field→value maps, each optionally tagged with its own
//     "operator" key.
//
// Field order inside a map shape is not observable, so fields are emitted
// in sorted order; list order between groups is preserved.
func NormalizeFilters(raw any, requestOperator string) ([]types.FilterGroup, string, error) {
	defaultOp := ResolveOperator(requestOperator, types.OpEquals)

	if raw == nil {
		return nil, "", nil
	}

	var groups []types.FilterGroup
	switch v := raw.(type) {
	case map[string]string:
		g, err := groupFromMap(stringAnyMap(v), defaultOp)
		if err != nil {
			return nil, "", err
		}
		groups = append(groups, g)
	case map[string]any:
		g, err := groupFromMap(v, defaultOp)
		if err != nil {
			return nil, "", err
		}
		groups = append(groups, g)
	case []map[string]string:
		for _, m := range v {
			g, err := groupFromMap(stringAnyMap(m), defaultOp)
			if err != nil {
				return nil, "", err
			}
			groups = append(groups, g)
		}
	case []map[string]any:
		for _, m := range v {
			g, err := groupFromMap(m, defaultOp)
			if err != nil {
				return nil, "", err
			}
			groups = append(groups, g)
		}
	case []any:
		for _, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, "", fmt.Errorf("filter group has unsupported type %T", e)
			}
			g, err := groupFromMap(m, defaultOp)
			if err != nil {
				return nil, "", err
			}
			groups = append(groups, g)
		}
	case []types.FilterGroup:
		groups = v
	default:
		return nil, "", fmt.Errorf("filters have unsupported type %T", raw)
	}

	// Drop groups that carried only an operator tag.
	compact := groups[:0]
	for _, g := range groups {
		if len(g.Fields) > 0 {
			compact = append(compact, g)
		}
	}
	groups = compact

	return groups, FilterFragment(groups), nil
}

// groupFromMap builds one canonical group from a field→value map, honoring
// an "operator" tag when present.
func groupFromMap(m map[string]any, defaultOp int) (types.FilterGroup, error) {
	op := defaultOp
	if tag, ok := m[operatorTag]; ok {
		op = ResolveOperator(fmt.Sprint(tag), types.OpEquals)
	}

	fields := make([]string, 0, len(m))
	for k := range m {
		if k == operatorTag {
			continue
		}
		fields = append(fields, k)
	}
	sort.Strings(fields)

	g := types.FilterGroup{Operator: op}
	for _, f := range fields {
		g.Fields = append(g.Fields, types.FilterField{Field: f, Value: fmt.Sprint(m[f])})
	}
	return g, nil
}

// FilterFragment renders canonical groups as the wire fragment. All clauses
// are flattened into a single Filter element regardless of how many groups
// they came from; the remote side never sees distinct wire-level groups.
func FilterFragment(groups []types.FilterGroup) string {
	if len(groups) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<Filters><Filter FilterId="Filter1">`)
	for _, g := range groups {
		for _, f := range g.Fields {
			fmt.Fprintf(&b, `<Field FieldId="%s" OperatorType="%d">%s</Field>`,
				escapeXML(f.Field), g.Operator, escapeXML(f.Value))
		}
	}
	b.WriteString(`</Filter></Filters>`)
	return b.String()
}

func stringAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
