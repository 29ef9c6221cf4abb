package paper

import "strings"

// Denormalize projects a canonical Paper into the complete item set to
// upsert: one CATEGORY item per category, one AUTHOR item per non-blank
// author, one KEYWORD item per extracted keyword, and exactly one
// identifier item. Pure function; re-deriving it is how corrections are
// applied.
func Denormalize(p Paper) []Item {
	base := Item{
		ArxivID:    p.ID,
		Title:      p.Title,
		Abstract:   p.Abstract,
		Authors:    p.Authors,
		Categories: p.Categories,
		Keywords:   p.Keywords,
		Published:  p.Published,
	}
	sk := DateSK(p.PublishedDate, p.ID)

	items := make([]Item, 0, len(p.Categories)+len(p.Authors)+len(p.Keywords)+1)

	for _, cat := range p.Categories {
		item := base
		item.PK = CategoryPK(cat)
		item.SK = sk
		item.ItemType = ItemTypeCategory
		items = append(items, item)
	}

	for _, author := range p.Authors {
		author = strings.TrimSpace(author)
		if author == "" {
			continue
		}
		item := base
		item.PK = AuthorPK(author)
		item.SK = sk
		item.GSI1PK = AuthorPK(author)
		item.GSI1SK = sk
		item.ItemType = ItemTypeAuthor
		items = append(items, item)
	}

	for _, kw := range p.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		item := base
		item.PK = KeywordPK(kw)
		item.SK = sk
		item.GSI3PK = KeywordPK(kw)
		item.GSI3SK = sk
		item.ItemType = ItemTypeKeyword
		items = append(items, item)
	}

	idItem := base
	idItem.PK = PaperPK(p.ID)
	idItem.SK = PaperSortSentinel
	idItem.GSI2PK = PaperPK(p.ID)
	idItem.GSI2SK = PaperSortSentinel
	idItem.ItemType = ItemTypePaper
	items = append(items, idItem)

	return items
}
