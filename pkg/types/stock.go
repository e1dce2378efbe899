package types

// Row is one record of a tabular payload: field identifiers mapped to their
// string values. A field whose element was present but empty maps to "";
// a field omitted from the wire row is absent from the map.
type Row map[string]string

// StockItem is the reconciled stock of one source key. Either Value holds a
// single overall quantity, or ByWarehouse splits the quantity per warehouse
// bucket; ByWarehouse is nil for keys without a warehouse dimension.
// Values are clamped to zero before they enter the item, never negative.
type StockItem struct {
	SourceKey   string
	Value       float64
	ByWarehouse map[string]float64
}

// Warehoused reports whether the item carries per-warehouse quantities.
func (s *StockItem) Warehoused() bool {
	return s.ByWarehouse != nil
}

// CombinationItem is a composite item whose stock derives from its parts.
// The aggregate is the minimum among all known part values, per warehouse
// when any part is warehoused. A part with no known stock contributes
// nothing; a part with stock zero participates in the minimum normally.
type CombinationItem struct {
	SourceKey string
	PartKeys  []string
	Stock     StockItem
}
