package enrich

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/John-Robertt/BOMC/internal/candidate"
	"github.com/John-Robertt/BOMC/internal/domain"
	"github.com/John-Robertt/BOMC/internal/fallback"
	"github.com/John-Robertt/BOMC/internal/provider"
	"github.com/John-Robertt/BOMC/internal/rating"
)

type stubSource struct {
	name      string
	localized bool
}

func (s stubSource) Name() string    { return s.name }
func (s stubSource) Label() string   { return s.name }
func (s stubSource) Localized() bool { return s.localized }
func (s stubSource) SearchURL(q string) string {
	return "https://" + s.name + ".test/search?q=" + url.QueryEscape(q)
}
func (s stubSource) DetailURL(searchURL, ref string) string {
	return provider.ResolveURL(searchURL, ref)
}
func (s stubSource) Strategies() []candidate.Strategy {
	return []candidate.Strategy{candidate.ParenYearContainers("div.r", "a")}
}
func (s stubSource) Locators() []rating.Locator {
	return []rating.Locator{rating.Text("span.score")}
}

type stubFetcher struct {
	pages map[string]string
	calls []string
}

func (f *stubFetcher) Fetch(ctx context.Context, u string) ([]byte, error) {
	f.calls = append(f.calls, u)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b, ok := f.pages[u]; ok {
		return []byte(b), nil
	}
	return nil, &provider.HTTPStatusError{URL: u, StatusCode: 404}
}

type failFetcher struct{ calls int }

func (f *failFetcher) Fetch(ctx context.Context, u string) ([]byte, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func lionKingRow() domain.ListingRow {
	return domain.ListingRow{Rank: 1, Title: "The Lion King", GrossText: "$1,234.50", ReleaseDateRaw: "Jul 19"}
}

func doubanFallback() fallback.Table {
	return fallback.New([]fallback.Entry{{Title: "The Lion King", Releases: []fallback.Release{
		{Localized: "狮子王", Rating: "9.1", Year: 1994},
		{Localized: "狮子王(2019)", Rating: "7.4", Year: 2019},
	}}})
}

func TestEnrich_LiveFallsThroughCandidates(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://douban.test/search?q=The+Lion+King": `
<div class="r"><a href="/s/1994">狮子王</a> (1994)</div>
<div class="r"><a href="/s/2019">狮子王 2019</a> (2019)</div>`,
		// 距离最近的 2019 详情页没有评分，应继续尝试 1994。
		"https://douban.test/s/2019": `<p>暂无评分</p>`,
		"https://douban.test/s/1994": `<span class="score">9.1</span>`,
	}}
	o := New(f, Options{Secondary: &Lane{Source: stubSource{name: "douban", localized: true}, Live: true}})

	r, tr := o.Enrich(context.Background(), lionKingRow(), 2019)
	if r.SecondaryRating != "9.1" || r.LocalizedTitle != "狮子王" {
		t.Fatalf("补全结果不符合预期：%+v", r)
	}
	if r.Rating != "N/A" {
		t.Fatalf("无 primary lane 时 Rating 应为 N/A，实际 %q", r.Rating)
	}
	if len(tr.Lanes) != 1 || tr.Lanes[0].Outcome != OutcomeLive || tr.Lanes[0].Tried != 2 {
		t.Fatalf("轨迹不符合预期：%+v", tr.Lanes)
	}
	if tr.Lanes[0].Strategy != "paren-year-containers" || tr.Lanes[0].Locator != "span.score" {
		t.Fatalf("命中的策略/定位器不符合预期：%+v", tr.Lanes[0])
	}
	if tr.Lanes[0].Chosen == nil || tr.Lanes[0].Chosen.Year != 1994 {
		t.Fatalf("选中候选不符合预期：%+v", tr.Lanes[0].Chosen)
	}
	if r.Gross != 1234.5 || r.ReleaseDate != "7月19日" {
		t.Fatalf("字段规整不符合预期：gross=%v date=%q", r.Gross, r.ReleaseDate)
	}
}

func TestEnrich_LiveFailureUsesFallback(t *testing.T) {
	f := &failFetcher{}
	o := New(f, Options{
		Primary:   &Lane{Source: stubSource{name: "imdb"}, Live: true},
		Secondary: &Lane{Source: stubSource{name: "douban", localized: true}, Fallback: doubanFallback(), Live: true},
	})

	r, tr := o.Enrich(context.Background(), lionKingRow(), 2019)
	if r.Rating != "N/A" {
		t.Fatalf("primary 无回退数据时应为 N/A，实际 %q", r.Rating)
	}
	if r.SecondaryRating != "7.4" || r.LocalizedTitle != "狮子王(2019)" {
		t.Fatalf("期望回退到 2019 版本，实际 %+v", r)
	}
	if tr.Lanes[0].Outcome != OutcomeNone || tr.Lanes[1].Outcome != OutcomeFallback {
		t.Fatalf("轨迹不符合预期：%+v", tr.Lanes)
	}
	if tr.Lanes[0].Err == "" {
		t.Fatalf("在线失败应记录错误")
	}
	if f.calls != 2 {
		t.Fatalf("每个 lane 只应发起一次搜索请求，实际 %d", f.calls)
	}
}

func TestEnrich_OfflineNeverFetches(t *testing.T) {
	f := &failFetcher{}
	o := New(f, Options{Secondary: &Lane{Source: stubSource{name: "douban", localized: true}, Fallback: doubanFallback()}})
	r, _ := o.Enrich(context.Background(), lionKingRow(), 0)
	if f.calls != 0 {
		t.Fatalf("Live=false 不应发请求，实际 %d", f.calls)
	}
	if r.LocalizedTitle != "狮子王" || r.SecondaryRating != "9.1" {
		t.Fatalf("无目标年份应取首个版本，实际 %+v", r)
	}
}

func TestEnrich_CancelledContextStillTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &failFetcher{}
	o := New(f, Options{
		Primary:   &Lane{Source: stubSource{name: "imdb"}, Live: true},
		Secondary: &Lane{Source: stubSource{name: "douban", localized: true}, Fallback: doubanFallback(), Live: true},
	})
	rows, traces := o.EnrichAll(ctx, []domain.ListingRow{lionKingRow(), {Rank: 2, Title: "Unknown"}}, 2019, nil)
	if f.calls != 0 {
		t.Fatalf("ctx 取消后不应发请求，实际 %d", f.calls)
	}
	if len(rows) != 2 || len(traces) != 2 {
		t.Fatalf("期望 2 行结果，实际 %d", len(rows))
	}
	for _, r := range rows {
		if !r.Complete() {
			t.Fatalf("行未完整补全：%+v", r)
		}
	}
	if rows[1].LocalizedTitle != "N/A" || rows[1].SecondaryRating != "N/A" || rows[1].ReleaseDate != "N/A" {
		t.Fatalf("未知片名应全部为 N/A，实际 %+v", rows[1])
	}
}

func TestEnrichAll_CallsOnRow(t *testing.T) {
	o := New(nil, Options{})
	var seen []int
	rows, _ := o.EnrichAll(context.Background(), []domain.ListingRow{lionKingRow(), lionKingRow()}, 0, func(i int, r domain.EnrichedRow, _ Trace) {
		seen = append(seen, i)
		if r.LocalizedTitle != "N/A" || r.Rating != "N/A" || r.SecondaryRating != "N/A" {
			t.Fatalf("无 lane 时字段应为 N/A，实际 %+v", r)
		}
	})
	if len(rows) != 2 || len(seen) != 2 || seen[1] != 1 {
		t.Fatalf("onRow 调用不符合预期：%v", seen)
	}
}
