package table

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const describeMaxCells = 8

// TableInfo 是页面中单个表格的结构摘要（用于 inspect 命令排查选择器漂移）。
type TableInfo struct {
	Index   int
	Class   string
	ID      string
	Rows    int
	Header  []string   // 首行单元格文本（最多 8 列）
	Samples [][]string // 前两行数据行的全部 td 文本
}

// Describe 列出文档中全部表格的结构摘要。
func Describe(doc *goquery.Document) []TableInfo {
	if doc == nil {
		return nil
	}
	var out []TableInfo
	doc.FindMatcher(selAnyTable).Each(func(i int, t *goquery.Selection) {
		info := TableInfo{Index: i + 1}
		info.Class, _ = t.Attr("class")
		info.ID, _ = t.Attr("id")

		rows := t.FindMatcher(selRow)
		info.Rows = rows.Length()

		rows.First().FindMatcher(selCell).EachWithBreak(func(j int, c *goquery.Selection) bool {
			if j >= describeMaxCells {
				return false
			}
			info.Header = append(info.Header, truncate(normSpace(c.Text()), 30))
			return true
		})

		if rows.Length() < 2 {
			out = append(out, info)
			return
		}
		rows.Slice(1, min(3, rows.Length())).Each(func(_ int, r *goquery.Selection) {
			cells := r.FindMatcher(selTD)
			if cells.Length() == 0 {
				return
			}
			sample := make([]string, 0, cells.Length())
			cells.Each(func(_ int, c *goquery.Selection) {
				sample = append(sample, truncate(normSpace(c.Text()), 30))
			})
			info.Samples = append(info.Samples, sample)
		})

		out = append(out, info)
	})
	return out
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
