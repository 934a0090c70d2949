// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"strings"
)

// ItemID identifies a remote item.
type ItemID int64

// String renders the id as the remote API spells it.
func (id ItemID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Kind classifies a remote item.
type Kind string

// Item kinds. Remote types other than story and comment (job, poll,
// pollopt, ...) collapse into KindOther.
const (
	KindStory   Kind = "story"
	KindComment Kind = "comment"
	KindOther   Kind = "other"
)

// ParseKind maps a remote type string onto a Kind.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindStory):
		return KindStory
	case string(KindComment):
		return KindComment
	default:
		return KindOther
	}
}

// Item is a fetched remote record. It is read-only once returned by a store
// and is not cached across top-level items.
type Item struct {
	ID      ItemID
	Kind    Kind
	Author  string   // empty for unauthored or deleted items
	Title   string   // stories only
	Kids    []ItemID // ordered child ids, possibly empty
	Deleted bool
	Dead    bool
}

// Countable reports whether the item contributes to an author tally.
func (it Item) Countable() bool {
	return it.Kind == KindComment && it.Author != ""
}
