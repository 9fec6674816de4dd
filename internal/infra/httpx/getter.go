package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/John-Robertt/BOMC/internal/infra/cache"
	"github.com/John-Robertt/BOMC/internal/infra/pace"
	"github.com/John-Robertt/BOMC/internal/provider"
)

// MaxBodyBytes 限制单个页面的读取大小。
const MaxBodyBytes = 8 << 20

// Getter 是全部对外 GET 请求的唯一入口：缓存 -> 限速 -> 网络 -> 回写缓存。
//
// 约束：
// - 缓存命中既不访问网络，也不消耗限速配额
// - 非 2xx 返回 *provider.HTTPStatusError；被引导到验证页返回 *provider.BlockedError
// - 缓存读写失败只记日志，不影响请求结果
type Getter struct {
	Client *http.Client
	Pacer  *pace.Pacer
	Cache  *cache.Store
	Logger *slog.Logger

	// Stats 记录请求统计（单线程使用）。
	Stats Stats
}

// Stats 是 Getter 的请求计数。
type Stats struct {
	Network   int
	CacheHits int
	Failures  int
}

func (g *Getter) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return g.Logger
}

func (g *Getter) Fetch(ctx context.Context, url string) ([]byte, error) {
	if g == nil || g.Client == nil {
		return nil, errors.New("http client 不能为空")
	}
	log := g.logger()

	if g.Cache != nil {
		b, ok, err := g.Cache.ReadPage(url)
		if err != nil {
			log.Warn("读取页面缓存失败", "url", url, "error", err)
		} else if ok {
			g.Stats.CacheHits++
			log.Debug("页面缓存命中", "url", url)
			return b, nil
		}
	}

	if err := g.Pacer.Wait(ctx); err != nil {
		return nil, err
	}

	g.Stats.Network++
	b, err := g.get(ctx, url)
	if err != nil {
		g.Stats.Failures++
		log.Debug("页面请求失败", "url", url, "error", err)
		return nil, err
	}
	log.Debug("页面请求成功", "url", url, "bytes", len(b))

	if g.Cache != nil && !g.Cache.ReadOnly {
		if werr := g.Cache.WritePage(url, b); werr != nil {
			log.Warn("写入页面缓存失败", "url", url, "error", werr)
		}
	}
	return b, nil
}

func (g *Getter) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &provider.HTTPStatusError{URL: url, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	if reason := blockedReason(resp); reason != "" {
		return nil, &provider.BlockedError{URL: url, Reason: reason}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxBodyBytes {
		return nil, fmt.Errorf("页面过大（>%d 字节）：%s", MaxBodyBytes, url)
	}
	return b, nil
}

// blockedReason 识别跟随重定向后落到的验证页（例如 sec.douban.com、/captcha）。
func blockedReason(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	u := resp.Request.URL
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)
	switch {
	case strings.HasPrefix(host, "sec."):
		return "verify-host"
	case strings.Contains(path, "captcha"):
		return "captcha"
	}
	return ""
}
