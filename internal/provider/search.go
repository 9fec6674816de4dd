package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/BOMC/internal/candidate"
	"github.com/John-Robertt/BOMC/internal/domain"
)

// Fetcher 获取页面原始字节（由 infra/httpx.Getter 实现）。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// SearchResult 是一次搜索的结果。
type SearchResult struct {
	Query      string
	SearchURL  string
	Strategy   string // 命中的候选抽取策略名；无候选时为空
	Candidates []domain.Candidate
}

// Search 抓取 source 的搜索页并返回按目标年份排序的候选。
// 候选的 DetailRef 已解析为绝对 URL。
func Search(ctx context.Context, f Fetcher, src Source, title string, targetYear int) (SearchResult, error) {
	if f == nil || src == nil {
		return SearchResult{}, fmt.Errorf("fetcher/source 不能为空")
	}
	name := strings.ToLower(src.Name())

	q := CleanQuery(title)
	if q == "" {
		return SearchResult{}, &Error{Provider: name, Stage: "search", Err: fmt.Errorf("片名为空")}
	}
	res := SearchResult{Query: q, SearchURL: src.SearchURL(q)}

	body, err := f.Fetch(ctx, res.SearchURL)
	if err != nil {
		return res, &Error{Provider: name, Stage: "search", Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return res, &Error{Provider: name, Stage: "parse", Err: err}
	}

	cands, strategy := candidate.RankCandidates(doc, src.Strategies(), targetYear)
	for i := range cands {
		cands[i].DetailRef = src.DetailURL(res.SearchURL, cands[i].DetailRef)
	}
	res.Candidates = cands
	res.Strategy = strategy
	return res, nil
}

// Error 是 source 阶段的可追溯错误。
type Error struct {
	Provider string // source name（小写）
	Stage    string // "search" 或 "parse"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("source=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ResolveURL 以 base 解析 href；href 为空返回空串。
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
