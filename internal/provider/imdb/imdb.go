// Package imdb 描述 IMDb 的搜索页与详情页结构。
package imdb

import (
	"net/url"
	"strings"

	"github.com/John-Robertt/BOMC/internal/candidate"
	providerx "github.com/John-Robertt/BOMC/internal/provider"
	"github.com/John-Robertt/BOMC/internal/rating"
)

const defaultBaseURL = "https://www.imdb.com"

// Source 实现 IMDb 的 URL 构造与选择器链。
//
// 约束：
// - 只检索电影（s=tt&ttype=ft），避免剧集/人物条目干扰候选
// - 详情页 URL 去掉 ref_ 之类的查询参数，使同一作品的缓存键稳定
type Source struct {
	// BaseURL 为空时使用 https://www.imdb.com；测试中指向 httptest 服务。
	BaseURL string
}

func (Source) Name() string    { return "imdb" }
func (Source) Label() string   { return "IMDb评分" }
func (Source) Localized() bool { return false }

func (s Source) baseURL() string {
	u := strings.TrimSpace(s.BaseURL)
	if u == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// SearchURL: https://www.imdb.com/find/?q=<query>&s=tt&ttype=ft
func (s Source) SearchURL(query string) string {
	return s.baseURL() + "/find/?q=" + url.QueryEscape(query) + "&s=tt&ttype=ft"
}

func (s Source) DetailURL(searchURL, ref string) string {
	u := providerx.ResolveURL(s.baseURL()+"/", ref)
	if u == "" {
		return ""
	}
	pu, err := url.Parse(u)
	if err != nil {
		return u
	}
	pu.RawQuery = ""
	pu.Fragment = ""
	return pu.String()
}

// Strategies 覆盖三代搜索页：旧版表格、新版列表、通用结果容器。
func (Source) Strategies() []candidate.Strategy {
	return []candidate.Strategy{
		candidate.ParenYearCells("td.result_text"),
		candidate.SiblingYear(
			"li.ipc-metadata-list-summary-item",
			"a.ipc-metadata-list-summary-item__t",
			"span.ipc-metadata-list-summary-item__li",
		),
		candidate.ParenYearContainers(".findResult, .find-result-item", "a"),
	}
}

func (Source) Locators() []rating.Locator {
	return []rating.Locator{
		rating.Text(`[data-testid="hero-rating-bar__aggregate-rating__score"]`),
		rating.Text(`span[itemprop="ratingValue"]`),
		rating.Text("div.ratingValue"),
		rating.Text(".rating-value"),
	}
}
