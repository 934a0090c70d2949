package fixture

import "github.com/okian/hntally/internal/domain/model"

// Thread describes a story and the authors of its comments in traversal
// order. Used to build fixtures without spelling out every item.
type Thread struct {
	ID      model.ItemID
	Title   string
	Authors []string
}

// WithThreads appends each thread's story to the top list and generates its
// comments. Even-indexed comments reply to the story, odd-indexed comments
// reply to the comment before them, so every thread is two levels deep.
// Comment ids are ID*1000 + position + 1.
func WithThreads(threads ...Thread) Option {
	return func(s *Store) {
		for _, th := range threads {
			story := model.Item{ID: th.ID, Kind: model.KindStory, Title: th.Title}
			comments := make([]model.Item, len(th.Authors))
			for i, author := range th.Authors {
				comments[i] = model.Item{
					ID:     th.ID*1000 + model.ItemID(i) + 1,
					Kind:   model.KindComment,
					Author: author,
				}
				if i%2 == 0 {
					story.Kids = append(story.Kids, comments[i].ID)
				} else {
					comments[i-1].Kids = append(comments[i-1].Kids, comments[i].ID)
				}
			}
			s.items[story.ID] = story
			for _, c := range comments {
				s.items[c.ID] = c
			}
			s.top = append(s.top, th.ID)
		}
	}
}
