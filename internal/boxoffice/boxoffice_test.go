package boxoffice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/John-Robertt/BOMC/internal/domain"
)

type funcFetcher func(ctx context.Context, url string) ([]byte, error)

func (f funcFetcher) Fetch(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

func httpFetcher(c *http.Client) funcFetcher {
	return func(ctx context.Context, url string) ([]byte, error) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := c.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, errors.New(resp.Status)
		}
		return io.ReadAll(resp.Body)
	}
}

func TestURL(t *testing.T) {
	got, err := URL("", domain.Period{Year: 2025, Month: 5})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got != "https://www.boxofficemojo.com/month/may/2025/?ref_=bo_ml_table_1" {
		t.Fatalf("URL 不符合预期：%q", got)
	}
	if _, err := URL("", domain.Period{Year: 2025, Month: 13}); err == nil {
		t.Fatalf("月份 13 期望错误")
	}
	if _, err := URL("https://x.test/{month}/", domain.Period{Year: 2025, Month: 1}); err == nil {
		t.Fatalf("缺少 {year} 期望错误")
	}
}

func TestClient_Fetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`<table class="a-bordered">
<tr><th>Rank</th><th>Release</th></tr>
<tr><td>1</td><td><a href="/r/1">Lilo &amp; Stitch</a></td><td>x</td><td>x</td><td>x</td><td>x</td><td>x</td><td>$123,456</td><td>May 23</td></tr>
</table>`))
	}))
	defer srv.Close()

	c := Client{Fetcher: httpFetcher(srv.Client()), URLTemplate: srv.URL + "/month/{month}/{year}/"}
	l, err := c.Fetch(context.Background(), domain.Period{Year: 2025, Month: 5})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if gotPath != "/month/may/2025/" {
		t.Fatalf("请求路径不符合预期：%q", gotPath)
	}
	if len(l.Table.Rows) != 1 || l.Table.Rows[0].Title != "Lilo & Stitch" {
		t.Fatalf("抽取结果不符合预期：%+v", l.Table.Rows)
	}
}

func TestClient_FetchErrorIsTyped(t *testing.T) {
	c := Client{Fetcher: funcFetcher(func(ctx context.Context, url string) ([]byte, error) {
		return nil, errors.New("timeout")
	})}
	_, err := c.Fetch(context.Background(), domain.Period{Year: 2025, Month: 5})
	var fe *FetchError
	if !errors.As(err, &fe) || !strings.Contains(fe.URL, "/month/may/2025/") {
		t.Fatalf("期望 FetchError，实际 %v", err)
	}
}
