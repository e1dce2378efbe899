package types

import "context"

// SettingField describes one configurable setting of a batch job, surfaced
// to the external job runner so it can render a settings form.
type SettingField struct {
	Name    string
	Label   string
	Kind    string // "string", "int", "bool"
	Default string
}

// Item is one unit of work produced by a job's Init phase.
type Item struct {
	Key    string
	Fields Row
}

// Job is the batch driver surface. A run calls Init once, ProcessItem for
// every returned item in order, and Finish once. Init failing terminates the
// run; its error message is the run's result.
type Job interface {
	SettingsSchema() []SettingField
	Init(ctx context.Context) ([]Item, error)
	ProcessItem(ctx context.Context, item Item) error
	Finish(ctx context.Context) (string, error)
}
