package model

// Task is one unit of top-level fan-out: a top list entry and its position.
type Task struct {
	Index int // position in the top list, used to restore ordering
	ID    ItemID
}

// Commenter is one row of a top-level item's top-K list.
type Commenter struct {
	Author      string `json:"author"`
	ItemCount   int    `json:"item_count"`
	GlobalCount int    `json:"global_count"`
}

// TopLevelResult holds the aggregate for one top-level item.
type TopLevelResult struct {
	ID         ItemID      `json:"id"`
	Title      string      `json:"title"`
	Commenters []Commenter `json:"commenters"`
}

// RunResult is the outcome of one aggregation run. Items follow the order of
// the remote top list; Skipped lists top-level ids whose record could not be
// fetched, in the same order.
type RunResult struct {
	Items   []TopLevelResult `json:"items"`
	Skipped []ItemID         `json:"skipped,omitempty"`
}
