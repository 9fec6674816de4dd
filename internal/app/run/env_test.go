package run

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/John-Robertt/BOMC/internal/config"
	"github.com/John-Robertt/BOMC/internal/infra/httpx"
)

func TestNewEnv_BuildsGetterAndRegistry(t *testing.T) {
	dir := t.TempDir()
	env, err := NewEnv(config.EffectiveConfig{
		Pace:     time.Second,
		Timeout:  time.Second,
		CacheDir: filepath.Join(dir, "cache"),
	}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	g, ok := env.Fetcher.(*httpx.Getter)
	if !ok {
		t.Fatalf("期望 *httpx.Getter，实际 %T", env.Fetcher)
	}
	if g.Cache == nil || g.Cache.Root != filepath.Join(dir, "cache") {
		t.Fatalf("cache_dir 非空时应启用页面缓存：%+v", g.Cache)
	}
	if g.Pacer.Interval() != time.Second {
		t.Fatalf("期望节奏 1s，实际 %v", g.Pacer.Interval())
	}
	for _, name := range []string{"imdb", "douban"} {
		if _, ok := env.Registry.Get(name); !ok {
			t.Fatalf("registry 缺少 %s", name)
		}
	}
	if env.Fallback.Table("imdb").Len() == 0 {
		t.Fatalf("应加载内置回退数据")
	}
}

func TestNewEnv_FallbackFileReplacesSource(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "fallback.yaml")
	data := `imdb:
  - title: Sinners
    releases:
      - { rating: "7.9", year: 2025 }
`
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("写入回退文件失败：%v", err)
	}

	env, err := NewEnv(config.EffectiveConfig{Timeout: time.Second, FallbackFile: p}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, rating := env.Fallback.Table("imdb").Lookup("Sinners", 2025); rating != "7.9" {
		t.Fatalf("期望使用覆盖后的 imdb 回退数据，实际 %q", rating)
	}
	if _, rating := env.Fallback.Table("imdb").Lookup("Batman", 2008); rating != "N/A" {
		t.Fatalf("imdb 应被整表替换，实际仍命中 Batman：%q", rating)
	}
	if env.Fallback.Table("douban").Len() == 0 {
		t.Fatalf("未覆盖的来源应保留内置数据")
	}
}

func TestNewEnv_InvalidProxy(t *testing.T) {
	if _, err := NewEnv(config.EffectiveConfig{Timeout: time.Second, ProxyURL: "ftp://x"}, nil); err == nil {
		t.Fatalf("期望非法代理报错")
	}
}

func TestNewEnv_MissingFallbackFile(t *testing.T) {
	_, err := NewEnv(config.EffectiveConfig{Timeout: time.Second, FallbackFile: filepath.Join(t.TempDir(), "nope.yaml")}, nil)
	if err == nil {
		t.Fatalf("期望回退文件缺失时报错")
	}
}
