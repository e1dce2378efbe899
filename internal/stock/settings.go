package stock

import (
	"github.com/dukaforge/stocklink/pkg/types"
)

// Part-source selection for combination runs.
const (
	PartsFromSecondary = "secondary"
	PartsFromPrimary   = "primary"
	PartsFromStore     = "store"
)

// Store record kinds written by the two job variants.
const (
	KindSimple      = "simple"
	KindCombination = "combination"
)

// Default field identifiers of the remote record sets.
const (
	defaultKeyField       = "ItemCode"
	defaultWarehouseField = "Warehouse"
	defaultQtyField       = "Stock"
	defaultPartField      = "PartCode"
)

// Settings configures one batch run. Connector is the only required field;
// everything else has a usable default.
type Settings struct {
	// Connector names the main remote record set.
	Connector string
	// Secondary names the part-stock record set for combination runs with
	// PartSource "secondary".
	Secondary string
	// PartSource selects where combination part stock comes from.
	PartSource string

	// Field identifiers within fetched rows.
	KeyField       string
	WarehouseField string
	QtyField       string
	PartField      string

	// Limit bounds the number of distinct keys processed; zero is no limit.
	Limit int
	// Item restricts the run to a single source key.
	Item string
	// Tries bounds the fetch retry loop; values below one mean one attempt.
	Tries int
	// Raw skips reconciliation and returns fetched rows untouched.
	Raw bool
	// DryRun applies nothing to the store.
	DryRun bool
}

func (s *Settings) withDefaults() {
	if s.KeyField == "" {
		s.KeyField = defaultKeyField
	}
	if s.WarehouseField == "" {
		s.WarehouseField = defaultWarehouseField
	}
	if s.QtyField == "" {
		s.QtyField = defaultQtyField
	}
	if s.PartField == "" {
		s.PartField = defaultPartField
	}
	if s.PartSource == "" {
		s.PartSource = PartsFromPrimary
	}
	if s.Tries < 1 {
		s.Tries = 1
	}
}

// filtered reports whether the run is known incomplete: a single-item or
// limit filter is active, so the zero-fill pass must be skipped.
func (s *Settings) filtered() bool {
	return s.Limit > 0 || s.Item != ""
}

// settingsSchema is shared by both job variants.
func settingsSchema() []types.SettingField {
	return []types.SettingField{
		{Name: "connector", Label: "Main connector", Kind: "string"},
		{Name: "secondary", Label: "Part stock connector", Kind: "string"},
		{Name: "part_source", Label: "Part stock source", Kind: "string", Default: PartsFromPrimary},
		{Name: "limit", Label: "Item limit", Kind: "int", Default: "0"},
		{Name: "item", Label: "Single item", Kind: "string"},
		{Name: "tries", Label: "Fetch attempts", Kind: "int", Default: "1"},
		{Name: "raw", Label: "Raw output", Kind: "bool", Default: "false"},
		{Name: "dry_run", Label: "Dry run", Kind: "bool", Default: "false"},
	}
}
