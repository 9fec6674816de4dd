// Package table 从月度票房页面中定位结果表格并抽取前 N 行。
//
// 约束：
// - 表格定位是一条有序策略链（先命中者胜），全部落空时返回空结果而非错误
// - 单行失败只影响该行（记录后跳过），不会中断整页
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/John-Robertt/BOMC/internal/domain"
)

const (
	// MinCells 是一行被视为有效数据行的最少单元格数。
	MinCells = 7
	// MaxRows 是每页最多处理的有效数据行数（“前 10 名”的硬上限）。
	MaxRows = 10
)

var (
	selPrimary   = cascadia.MustCompile("table.a-bordered")
	selAlternate = cascadia.MustCompile("table.mojo-body-table")
	selAnyTable  = cascadia.MustCompile("table")
	selTBody     = cascadia.MustCompile("tbody")
	selTHead     = cascadia.MustCompile("thead")
	selRow       = cascadia.MustCompile("tr")
	selTD        = cascadia.MustCompile("td")
	selTH        = cascadia.MustCompile("th")
	selCell      = cascadia.MustCompile("th, td")
	selAnchor    = cascadia.MustCompile("a")
)

// Locator 尝试在文档中找到结果表格。
type Locator struct {
	Name string
	Find func(doc *goquery.Document) (*goquery.Selection, bool)
}

func firstMatch(name string, m goquery.Matcher) Locator {
	return Locator{
		Name: name,
		Find: func(doc *goquery.Document) (*goquery.Selection, bool) {
			s := doc.FindMatcher(m).First()
			return s, s.Length() > 0
		},
	}
}

// DefaultLocators 是固定的表格定位顺序：主样式类 -> 备用样式类 -> 文档中第一个 table。
func DefaultLocators() []Locator {
	return []Locator{
		firstMatch("a-bordered", selPrimary),
		firstMatch("mojo-body-table", selAlternate),
		firstMatch("first-table", selAnyTable),
	}
}

// Result 是一次抽取的结果（含统计，便于上层报告与调试）。
type Result struct {
	Rows []domain.ListingRow

	Found    bool   // 是否找到任何表格
	Strategy string // 命中的定位策略名
	Columns  Columns

	Scanned   int // 检查过的数据行数
	Skipped   int // 被跳过的行数（单元格不足或字段抽取失败）
	RowErrors []error
}

// RowError 描述单行抽取失败的原因。
type RowError struct {
	Row int // 1-based，数据行序号
	Err string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("第 %d 行：%s", e.Row, e.Err)
}

// Extract 使用默认定位链抽取表格。
func Extract(doc *goquery.Document) Result {
	return ExtractWith(doc, DefaultLocators())
}

// ExtractWith 按给定定位链抽取表格。
func ExtractWith(doc *goquery.Document, locators []Locator) Result {
	var res Result
	if doc == nil {
		return res
	}

	var tbl *goquery.Selection
	for _, l := range locators {
		s, ok := l.Find(doc)
		if !ok {
			continue
		}
		tbl = s
		res.Found = true
		res.Strategy = l.Name
		break
	}
	if tbl == nil {
		return res
	}

	header, rows := splitRows(tbl)
	res.Columns = ResolveColumns(header)

	qualified := 0
	for i := range rows {
		if qualified >= MaxRows {
			break
		}
		res.Scanned++

		cells := rows[i].FindMatcher(selTD)
		if cells.Length() < MinCells {
			res.Skipped++
			continue
		}
		qualified++

		row, err := extractRow(cells, res.Columns)
		if err != "" {
			res.Skipped++
			res.RowErrors = append(res.RowErrors, &RowError{Row: i + 1, Err: err})
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

// splitRows 返回表头行（可能为空 Selection）与数据行。
//
// 优先取 tbody 内的行；没有 tbody 时取全部行。两种情况下，首行若含 th 都视为表头。
// 注意：HTML5 解析器会为裸 <tr> 自动补 tbody，因此表头行常常出现在 tbody 内。
func splitRows(tbl *goquery.Selection) (*goquery.Selection, []*goquery.Selection) {
	var header *goquery.Selection
	if thead := tbl.FindMatcher(selTHead).First(); thead.Length() > 0 {
		header = thead.FindMatcher(selRow).First()
	}

	body := tbl.FindMatcher(selTBody).First()
	all := tbl.FindMatcher(selRow)
	if body.Length() > 0 {
		all = body.FindMatcher(selRow)
	}

	rows := make([]*goquery.Selection, 0, all.Length())
	all.Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, s)
	})
	if len(rows) > 0 && rows[0].FindMatcher(selTH).Length() > 0 {
		if header == nil || header.Length() == 0 {
			header = rows[0]
		}
		rows = rows[1:]
	}
	if header == nil {
		header = &goquery.Selection{}
	}
	return header, rows
}

func extractRow(cells *goquery.Selection, cols Columns) (domain.ListingRow, string) {
	n := cells.Length()
	if cols.Rank >= n || cols.Title >= n {
		return domain.ListingRow{}, "排名/片名列缺失"
	}

	rankText := cellText(cells.Eq(cols.Rank))
	rank, err := strconv.Atoi(strings.TrimPrefix(rankText, "#"))
	if err != nil || rank <= 0 {
		return domain.ListingRow{}, fmt.Sprintf("排名不是正整数：%q", rankText)
	}

	titleCell := cells.Eq(cols.Title)
	title := cellText(titleCell.FindMatcher(selAnchor).First())
	if title == "" {
		title = cellText(titleCell)
	}
	if title == "" {
		return domain.ListingRow{}, "片名为空"
	}

	if cols.Gross >= n {
		return domain.ListingRow{}, fmt.Sprintf("缺少票房列（第 %d 列，实际 %d 列）", cols.Gross+1, n)
	}
	gross := cellText(cells.Eq(cols.Gross))

	date := domain.NA
	if cols.ReleaseDate < n {
		date = cellText(cells.Eq(cols.ReleaseDate))
	}

	return domain.ListingRow{
		Rank:           rank,
		Title:          title,
		GrossText:      gross,
		ReleaseDateRaw: date,
	}, ""
}

func cellText(s *goquery.Selection) string {
	if s == nil || s.Length() == 0 {
		return ""
	}
	return normSpace(s.Text())
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
