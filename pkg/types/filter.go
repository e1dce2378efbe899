package types

// Filter operator codes as the remote system understands them. Human
// readable tokens are resolved to these codes by the filter normalizer.
const (
	OpEquals       = 1
	OpGreaterEqual = 2
	OpLessEqual    = 3
	OpGreater      = 4
	OpLess         = 5
	OpLike         = 6
	OpNotEqual     = 7
	OpIsNull       = 8
	OpIsNotNull    = 9
	OpStartsWith   = 10
	OpNotLike      = 11
	OpNotStarts    = 12
	OpEndsWith     = 13
	OpNotEnds      = 14
)

// FilterField is a single field/value pair inside a filter group.
type FilterField struct {
	Field string
	Value string
}

// FilterGroup is the canonical filter form: an ordered set of fields that
// share one operator code. User-supplied filters arrive in several legacy
// shapes and are all normalized to a list of groups.
type FilterGroup struct {
	Operator int
	Fields   []FilterField
}
