package fixture

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/hntally/internal/domain/model"
)

// document is the on-disk fixture layout:
//
//	top: [1, 2]
//	items:
//	  - {id: 1, type: story, title: "A", kids: [10]}
//	  - {id: 10, type: comment, by: user-a}
type document struct {
	Top   []int64  `koanf:"top"`
	Items []record `koanf:"items"`
}

type record struct {
	ID      int64   `koanf:"id"`
	Type    string  `koanf:"type"`
	By      string  `koanf:"by"`
	Title   string  `koanf:"title"`
	Kids    []int64 `koanf:"kids"`
	Deleted bool    `koanf:"deleted"`
	Dead    bool    `koanf:"dead"`
}

// Load reads a YAML fixture file into a Store. Extra options are applied
// after the file contents.
func Load(_ context.Context, path string, opts ...Option) (*Store, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFixture, path, err)
	}

	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFixture, path, err)
	}

	items := make([]model.Item, 0, len(doc.Items))
	for i, r := range doc.Items {
		if r.ID <= 0 {
			return nil, fmt.Errorf("%w: item %d has no positive id", ErrInvalidFixture, i)
		}
		items = append(items, r.toItem())
	}
	top := make([]model.ItemID, len(doc.Top))
	for i, id := range doc.Top {
		top[i] = model.ItemID(id)
	}

	base := []Option{WithTop(top...), WithItems(items...)}
	return New(append(base, opts...)...), nil
}

func (r record) toItem() model.Item {
	kids := make([]model.ItemID, len(r.Kids))
	for i, k := range r.Kids {
		kids[i] = model.ItemID(k)
	}
	return model.Item{
		ID:      model.ItemID(r.ID),
		Kind:    model.ParseKind(r.Type),
		Author:  r.By,
		Title:   r.Title,
		Kids:    kids,
		Deleted: r.Deleted,
		Dead:    r.Dead,
	}
}
