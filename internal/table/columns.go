package table

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// 固定列位置：由观察到的页面布局得到，仅在表头无法识别时使用。
const (
	fixedRank        = 0
	fixedTitle       = 1
	fixedGross       = 7
	fixedReleaseDate = 8
)

// Columns 是各字段所在的列下标（0-based）。
type Columns struct {
	Rank        int
	Title       int
	Gross       int
	ReleaseDate int

	// FromHeader 记录哪些字段由表头解析得到（其余为固定位置）。
	FromHeader []string
}

var headerAliases = map[string]string{
	"rank":          "rank",
	"#":             "rank",
	"release":       "title",
	"title":         "title",
	"movie":         "title",
	"total gross":   "gross",
	"gross to date": "gross",
	"release date":  "release_date",
}

// FixedColumns 返回固定列位置。
func FixedColumns() Columns {
	return Columns{
		Rank:        fixedRank,
		Title:       fixedTitle,
		Gross:       fixedGross,
		ReleaseDate: fixedReleaseDate,
	}
}

// ResolveColumns 根据表头文本解析列下标；未识别的字段回退到固定位置。
func ResolveColumns(header *goquery.Selection) Columns {
	cols := FixedColumns()
	if header == nil || header.Length() == 0 {
		return cols
	}

	seen := map[string]struct{}{}
	header.FindMatcher(selCell).Each(func(i int, s *goquery.Selection) {
		key, ok := headerAliases[headerKey(s.Text())]
		if !ok {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		switch key {
		case "rank":
			cols.Rank = i
		case "title":
			cols.Title = i
		case "gross":
			cols.Gross = i
		case "release_date":
			cols.ReleaseDate = i
		}
		cols.FromHeader = append(cols.FromHeader, key)
	})
	return cols
}

func headerKey(s string) string {
	return strings.ToLower(normSpace(s))
}
