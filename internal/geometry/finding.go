package geometry

import (
	"strings"

	"github.com/tidwall/gjson"
)

// PageInfo identifies a page and its pixel dimensions for bbox resolution.
type PageInfo struct {
	ID     string
	Name   string
	Width  float64
	Height float64
}

// Word is one entry of a page's word-level semantic index. Its box is
// already unit-square.
type Word struct {
	PageID string
	Box    Box
}

// Finding is a normalized query-time vision finding. Raw findings are
// transient: they are normalized immediately and never persisted as-is.
type Finding struct {
	Category string `json:"category"`
	Content  string `json:"content"`
	PageID   string `json:"page_id"`
	Box      Box    `json:"box"`
}

// Index resolves finding page references (by id or display name) and
// word-level semantic references.
type Index struct {
	byID   map[string]PageInfo
	byName map[string]PageInfo
	words  map[int64]Word
}

// NewIndex builds an Index over the given pages and word table. words may
// be nil when no semantic index exists.
func NewIndex(pages []PageInfo, words map[int64]Word) *Index {
	ix := &Index{
		byID:   make(map[string]PageInfo, len(pages)),
		byName: make(map[string]PageInfo, len(pages)),
		words:  words,
	}
	for _, p := range pages {
		ix.byID[p.ID] = p
		ix.byName[strings.ToLower(p.Name)] = p
	}
	return ix
}

// NormalizeFindings converts a raw JSON array of vision findings into
// normalized Findings. Findings whose page reference cannot be resolved, or
// whose semantic word reference points at an unknown word, are dropped from
// the result set rather than surfaced as errors.
func (ix *Index) NormalizeFindings(raw []byte) []Finding {
	items := gjson.GetBytes(raw, "@this")
	if !items.IsArray() {
		return nil
	}

	var out []Finding
	items.ForEach(func(_, item gjson.Result) bool {
		if f, ok := ix.normalizeOne(item); ok {
			out = append(out, f)
		}
		return true
	})
	return out
}

func (ix *Index) normalizeOne(item gjson.Result) (Finding, bool) {
	f := Finding{
		Category: item.Get("category").String(),
		Content:  item.Get("content").String(),
	}

	bbox := item.Get("bbox")

	// Semantic-index reference: an integer id into the word table. The
	// finding's page comes from the word's owning page and the stored box
	// is reused verbatim.
	if bbox.Type == gjson.Number {
		word, ok := ix.words[bbox.Int()]
		if !ok {
			return Finding{}, false
		}
		f.PageID = word.PageID
		f.Box = word.Box
		return f, true
	}

	page, ok := ix.resolvePage(item.Get("page_id").String())
	if !ok {
		return Finding{}, false
	}
	f.PageID = page.ID

	box, ok := FromValue(bbox, page.Width, page.Height)
	if !ok {
		return Finding{}, false
	}
	f.Box = box
	return f, true
}

func (ix *Index) resolvePage(ref string) (PageInfo, bool) {
	if ref == "" {
		return PageInfo{}, false
	}
	if p, ok := ix.byID[ref]; ok {
		return p, true
	}
	if p, ok := ix.byName[strings.ToLower(ref)]; ok {
		return p, true
	}
	return PageInfo{}, false
}
