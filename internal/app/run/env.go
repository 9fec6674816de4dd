package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/John-Robertt/BOMC/internal/config"
	"github.com/John-Robertt/BOMC/internal/fallback"
	"github.com/John-Robertt/BOMC/internal/infra/cache"
	"github.com/John-Robertt/BOMC/internal/infra/httpx"
	"github.com/John-Robertt/BOMC/internal/infra/pace"
	"github.com/John-Robertt/BOMC/internal/logging"
	"github.com/John-Robertt/BOMC/internal/provider"
	"github.com/John-Robertt/BOMC/internal/provider/douban"
	"github.com/John-Robertt/BOMC/internal/provider/imdb"
)

// Fetcher 获取页面原始字节（生产环境为 *httpx.Getter）。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Env 是一次运行所需的外部依赖（测试中可整体替换）。
type Env struct {
	Fetcher  Fetcher
	Registry provider.Registry
	Fallback fallback.Set
	Logger   *slog.Logger
}

// NewEnv 按配置构造生产环境依赖：带 UA 池/重试/代理的 client、节奏器、页面缓存、
// 内置 source 注册表，以及内置回退数据（可被 fallback_file 按来源整表覆盖）。
func NewEnv(eff config.EffectiveConfig, log *slog.Logger) (Env, error) {
	if log == nil {
		log = logging.Discard()
	}

	client, err := httpx.NewClient(httpx.ClientOptions{
		ProxyURL: eff.ProxyURL,
		Timeout:  eff.Timeout,
		RetryMax: eff.RetryMax,
	})
	if err != nil {
		return Env{}, fmt.Errorf("proxy_url 无效：%w", err)
	}

	getter := &httpx.Getter{
		Client: client,
		Pacer:  pace.New(eff.Pace),
		Logger: log,
	}
	if eff.CacheDir != "" {
		store := cache.New(eff.CacheDir, eff.CacheReadOnly)
		getter.Cache = &store
	}

	reg, err := provider.NewRegistry(
		imdb.Source{BaseURL: eff.IMDbBaseURL},
		douban.Source{BaseURL: eff.DoubanBaseURL},
	)
	if err != nil {
		return Env{}, err
	}

	fb := fallback.Default()
	if eff.FallbackFile != "" {
		f, err := os.Open(eff.FallbackFile)
		if err != nil {
			return Env{}, fmt.Errorf("读取回退数据失败：%w", err)
		}
		defer f.Close()
		extra, err := fallback.Load(f)
		if err != nil {
			return Env{}, err
		}
		fb = fb.With(extra)
	}

	return Env{
		Fetcher:  getter,
		Registry: reg,
		Fallback: fb,
		Logger:   log,
	}, nil
}
