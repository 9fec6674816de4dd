// Package candidate 从二级来源的搜索结果页中抽取（片名, 年份, 详情引用）候选，
// 并按与目标年份的距离排序。
//
// 约束：
// - 抽取策略按顺序尝试，第一个产出有年份候选的策略胜出
// - 每个策略最多处理前 MaxRawEntries 条原始条目（限制下游详情页请求数）
// - 无法确定年份的条目直接剔除
package candidate

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/BOMC/internal/domain"
)

// MaxRawEntries 是单个策略最多检查的原始条目数。
const MaxRawEntries = 5

var (
	parenYearRe = regexp.MustCompile(`\((\d{4})\)`)
	digitRunRe  = regexp.MustCompile(`\d+`)
)

// Entry 是搜索结果中的一条原始条目；Year=0 表示未能识别年份。
type Entry struct {
	Title string
	Year  int
	Ref   string
}

// Strategy 是一种结果页结构的抽取方式。
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document) []Entry
}

// ParenYearCells 扫描结果单元格，年份以 "(YYYY)" 形式嵌在单元格文本中。
func ParenYearCells(cellSel string) Strategy {
	return Strategy{
		Name: "paren-year-cells",
		Extract: func(doc *goquery.Document) []Entry {
			return eachUpTo(doc.Find(cellSel), func(s *goquery.Selection) Entry {
				link := s.Find("a").First()
				return Entry{
					Title: titleOf(link, s),
					Year:  parenYear(s.Text()),
					Ref:   attr(link, "href"),
				}
			})
		},
	}
}

// SiblingYear 扫描结果条目：片名来自 linkSel，年份来自 siblingSel 中首个含裸 4 位数字的元素。
// 同一元素内取最后一个 4 位数字（豆瓣 "原名:1917 / 导演 / 2019" 中片名在前、年份在后）。
func SiblingYear(itemSel, linkSel, siblingSel string) Strategy {
	return Strategy{
		Name: "sibling-year",
		Extract: func(doc *goquery.Document) []Entry {
			return eachUpTo(doc.Find(itemSel), func(s *goquery.Selection) Entry {
				link := s.Find(linkSel).First()
				year := 0
				s.Find(siblingSel).EachWithBreak(func(_ int, sib *goquery.Selection) bool {
					year = bareYear(sib.Text())
					return year == 0
				})
				return Entry{
					Title: titleOf(link, link),
					Year:  year,
					Ref:   attr(link, "href"),
				}
			})
		},
	}
}

// ParenYearContainers 扫描通用结果容器，年份同样以 "(YYYY)" 形式出现。
func ParenYearContainers(containerSel, linkSel string) Strategy {
	return Strategy{
		Name: "paren-year-containers",
		Extract: func(doc *goquery.Document) []Entry {
			return eachUpTo(doc.Find(containerSel), func(s *goquery.Selection) Entry {
				link := s.Find(linkSel).First()
				return Entry{
					Title: titleOf(link, s),
					Year:  parenYear(s.Text()),
					Ref:   attr(link, "href"),
				}
			})
		},
	}
}

// Collect 依次尝试策略，返回第一个产出有年份条目的策略结果（已剔除无年份条目）与策略名。
func Collect(doc *goquery.Document, strategies []Strategy) ([]Entry, string) {
	if doc == nil {
		return nil, ""
	}
	for _, st := range strategies {
		if st.Extract == nil {
			continue
		}
		var dated []Entry
		for _, e := range st.Extract(doc) {
			if e.Year > 0 && e.Title != "" {
				dated = append(dated, e)
			}
		}
		if len(dated) > 0 {
			return dated, st.Name
		}
	}
	return nil, ""
}

// Rank 将条目转换为候选并排序。
//
// targetYear > 0：按 |year - targetYear| 升序稳定排序（同距离保持发现顺序）；
// targetYear == 0：距离均为 0，保持发现顺序。
func Rank(entries []Entry, targetYear int) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(entries))
	for _, e := range entries {
		c := domain.Candidate{Title: e.Title, Year: e.Year, DetailRef: e.Ref}
		if targetYear > 0 && e.Year > 0 {
			c.YearDistance = abs(e.Year - targetYear)
		}
		out = append(out, c)
	}
	if targetYear > 0 {
		slices.SortStableFunc(out, func(a, b domain.Candidate) int {
			return a.YearDistance - b.YearDistance
		})
	}
	return out
}

// RankCandidates = Collect + Rank；同时返回命中的策略名。
func RankCandidates(doc *goquery.Document, strategies []Strategy, targetYear int) ([]domain.Candidate, string) {
	entries, name := Collect(doc, strategies)
	return Rank(entries, targetYear), name
}

func eachUpTo(sel *goquery.Selection, fn func(*goquery.Selection) Entry) []Entry {
	var out []Entry
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= MaxRawEntries {
			return false
		}
		out = append(out, fn(s))
		return true
	})
	return out
}

func titleOf(link, fallback *goquery.Selection) string {
	if t := normSpace(link.Text()); t != "" {
		return t
	}
	t := parenYearRe.ReplaceAllString(fallback.Text(), "")
	return normSpace(t)
}

func parenYear(s string) int {
	m := parenYearRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	y, _ := strconv.Atoi(m[1])
	return y
}

func bareYear(s string) int {
	runs := digitRunRe.FindAllString(s, -1)
	for i := len(runs) - 1; i >= 0; i-- {
		if len(runs[i]) == 4 {
			y, _ := strconv.Atoi(runs[i])
			return y
		}
	}
	return 0
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
