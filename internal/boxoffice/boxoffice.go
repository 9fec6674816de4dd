// Package boxoffice 抓取并解析某个 (年, 月) 的票房榜页面。
package boxoffice

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/BOMC/internal/domain"
	"github.com/John-Robertt/BOMC/internal/table"
)

// DefaultURLTemplate 中 {month} 为小写英文月份名，{year} 为四位年份。
const DefaultURLTemplate = "https://www.boxofficemojo.com/month/{month}/{year}/?ref_=bo_ml_table_1"

// Fetcher 获取页面原始字节。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client 按 URL 模板抓取榜单页。
type Client struct {
	Fetcher     Fetcher
	URLTemplate string
}

// Listing 是一个月份的榜单抽取结果。
type Listing struct {
	Period domain.Period
	URL    string
	Table  table.Result
}

// FetchError 表示榜单页本身抓取或解析失败（映射为 fetch_failed）。
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("抓取榜单失败 %s：%v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// URL 用模板构造期间的榜单 URL。
func URL(template string, p domain.Period) (string, error) {
	name, ok := domain.MonthName(p.Month)
	if !ok {
		return "", fmt.Errorf("月份必须在 1-12 之间：%d", p.Month)
	}
	if strings.TrimSpace(template) == "" {
		template = DefaultURLTemplate
	}
	if !strings.Contains(template, "{month}") || !strings.Contains(template, "{year}") {
		return "", fmt.Errorf("listing_url 必须同时包含 {month} 与 {year}：%q", template)
	}
	r := strings.NewReplacer("{month}", name, "{year}", strconv.Itoa(p.Year))
	return r.Replace(template), nil
}

// Document 抓取并解析期间的榜单页。
func (c Client) Document(ctx context.Context, p domain.Period) (*goquery.Document, string, error) {
	u, err := URL(c.URLTemplate, p)
	if err != nil {
		return nil, "", err
	}
	if c.Fetcher == nil {
		return nil, u, &FetchError{URL: u, Err: fmt.Errorf("fetcher 不能为空")}
	}
	body, err := c.Fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, u, &FetchError{URL: u, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, u, &FetchError{URL: u, Err: err}
	}
	return doc, u, nil
}

// Fetch 抓取期间的榜单并抽取前 10 行。没有表格或没有有效行不是错误。
func (c Client) Fetch(ctx context.Context, p domain.Period) (Listing, error) {
	doc, u, err := c.Document(ctx, p)
	if err != nil {
		return Listing{Period: p, URL: u}, err
	}
	return Listing{Period: p, URL: u, Table: table.Extract(doc)}, nil
}
