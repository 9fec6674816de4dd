// Package config 发现并读取 bomc.toml，与环境变量、CLI 参数合并为最终配置。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/BOMC/internal/domain"
	"github.com/John-Robertt/BOMC/internal/normalize"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodePeriodInvalid 表示年份/月份参数越界（在任何网络请求之前拒绝）。
	ErrCodePeriodInvalid = "period_invalid"
)

const (
	FileName = "bomc.toml"

	DefaultOutDir         = "data"
	DefaultListingURL     = "https://www.boxofficemojo.com/month/{month}/{year}/?ref_=bo_ml_table_1"
	DefaultPaceSeconds    = 2.0
	DefaultTimeoutSeconds = 10.0
	DefaultRetryMax       = 2
	DefaultPrimary        = "imdb"
	DefaultSecondary      = "douban"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"

	// SourceNone 关闭 secondary lane。
	SourceNone = "none"
)

// KnownSources 是可选的评分来源。
var KnownSources = []string{"imdb", "douban"}

// 环境变量覆盖（优先级介于 CLI 与配置文件之间）。
const (
	EnvProxyURL = "BOMC_PROXY_URL"
	EnvLogLevel = "BOMC_LOG_LEVEL"
	EnvOutDir   = "BOMC_OUT_DIR"
)

// CLIArgs 是 CLI 暴露的参数，保留“是否显式指定”的信息。
// 例如 --live=false 必须能覆盖 live = true。
type CLIArgs struct {
	ConfigPath string

	Year  int
	Month int
	// To 是区间结束月份（含）；0 表示只抓 Month。
	To int

	Combine bool
	Output  string

	OutDir    string
	OutDirSet bool

	Live    bool
	LiveSet bool

	CacheDir    string
	CacheDirSet bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 bomc.toml 的解析结构（未知字段报错）。
type FileConfig struct {
	OutDir         string   `toml:"out_dir"`
	ListingURL     string   `toml:"listing_url"`
	PaceSeconds    *float64 `toml:"pace_seconds"`
	TimeoutSeconds *float64 `toml:"timeout_seconds"`
	RetryMax       *int     `toml:"retry_max"`
	ProxyURL       string   `toml:"proxy_url"`
	CacheDir       string   `toml:"cache_dir"`
	CacheReadOnly  bool     `toml:"cache_read_only"`
	FallbackFile   string   `toml:"fallback_file"`
	Locale         string   `toml:"locale"`
	Primary        string   `toml:"primary"`
	Secondary      string   `toml:"secondary"`
	Live           *bool    `toml:"live"`
	IMDbBaseURL    string   `toml:"imdb_base_url"`
	DoubanBaseURL  string   `toml:"douban_base_url"`
	LogLevel       string   `toml:"log_level"`
	LogFormat      string   `toml:"log_format"`
}

// EffectiveConfig 是合并并校验后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；未读取任何文件时为空。
	ConfigPath string

	Periods []domain.Period
	Combine bool
	// Output 是显式输出路径（仅单月或合并模式允许）；为空时按期间生成文件名。
	Output string

	OutDir     string
	ListingURL string

	Pace     time.Duration
	Timeout  time.Duration
	RetryMax int
	ProxyURL string

	// CacheDir 为空表示不使用页面缓存。
	CacheDir      string
	CacheReadOnly bool
	FallbackFile  string

	Locale    normalize.Locale
	Primary   string
	Secondary string // SourceNone 表示关闭
	Live      bool

	IMDbBaseURL   string
	DoubanBaseURL string

	LogLevel  string
	LogFormat string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 提供 --config：必须存在
// 2) 否则读取 <cwd>/bomc.toml（可选）
//
// 覆盖优先级：CLI > 环境变量 > 配置文件 > 默认值。
// getenv 为 nil 时使用 os.Getenv。
func LoadEffective(cwd string, cli CLIArgs, getenv func(string) string) (EffectiveConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	// 期间参数先校验：越界时不读配置、不发请求。
	periods, err := periodsFrom(cli)
	if err != nil {
		return EffectiveConfig{}, err
	}

	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		p := filepath.Join(cwdAbs, FileName)
		var exists bool
		fc, exists, err = readFileConfig(p)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		if exists {
			cfgPath = p
		}
	}

	eff, err := merge(cwdAbs, cli, fc, getenv)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.ConfigPath = cfgPath
	eff.Periods = periods
	eff.Combine = cli.Combine && len(periods) > 1

	if out := strings.TrimSpace(cli.Output); out != "" {
		if len(periods) > 1 && !cli.Combine {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("--output 只能用于单月或 --combine 模式")}
		}
		eff.Output = absCleanFrom(cwdAbs, out)
	}
	return eff, nil
}

func periodsFrom(cli CLIArgs) ([]domain.Period, error) {
	from, err := domain.NewPeriod(cli.Year, cli.Month)
	if err != nil {
		return nil, &Error{Code: ErrCodePeriodInvalid, Err: err}
	}
	to := cli.To
	if to == 0 {
		to = cli.Month
	}
	if _, err := domain.NewPeriod(cli.Year, to); err != nil {
		return nil, &Error{Code: ErrCodePeriodInvalid, Err: err}
	}
	if to < cli.Month {
		return nil, &Error{Code: ErrCodePeriodInvalid, Err: fmt.Errorf("开始月份不能大于结束月份：%d > %d", cli.Month, to)}
	}
	out := make([]domain.Period, 0, to-cli.Month+1)
	for m := from.Month; m <= to; m++ {
		out = append(out, domain.Period{Year: from.Year, Month: m})
	}
	return out, nil
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, getenv func(string) string) (EffectiveConfig, error) {
	pick := func(cliSet bool, cliVal, env, file, def string) string {
		switch {
		case cliSet && strings.TrimSpace(cliVal) != "":
			return strings.TrimSpace(cliVal)
		case strings.TrimSpace(env) != "":
			return strings.TrimSpace(env)
		case strings.TrimSpace(file) != "":
			return strings.TrimSpace(file)
		}
		return def
	}

	eff := EffectiveConfig{
		OutDir:        absCleanFrom(cwdAbs, pick(cli.OutDirSet, cli.OutDir, getenv(EnvOutDir), fc.OutDir, DefaultOutDir)),
		ListingURL:    pick(false, "", "", fc.ListingURL, DefaultListingURL),
		ProxyURL:      pick(false, "", getenv(EnvProxyURL), fc.ProxyURL, ""),
		CacheReadOnly: fc.CacheReadOnly,
		Locale:        normalize.ParseLocale(pick(false, "", "", fc.Locale, string(normalize.LocaleZH))),
		Primary:       strings.ToLower(pick(false, "", "", fc.Primary, DefaultPrimary)),
		Secondary:     strings.ToLower(pick(false, "", "", fc.Secondary, DefaultSecondary)),
		Live:          true,
		IMDbBaseURL:   strings.TrimSpace(fc.IMDbBaseURL),
		DoubanBaseURL: strings.TrimSpace(fc.DoubanBaseURL),
		LogLevel:      strings.ToLower(pick(cli.LogLevelSet, cli.LogLevel, getenv(EnvLogLevel), fc.LogLevel, DefaultLogLevel)),
		LogFormat:     strings.ToLower(pick(false, "", "", fc.LogFormat, DefaultLogFormat)),
		RetryMax:      DefaultRetryMax,
	}

	if cache := pick(cli.CacheDirSet, cli.CacheDir, "", fc.CacheDir, ""); cache != "" {
		eff.CacheDir = absCleanFrom(cwdAbs, cache)
	}
	if f := strings.TrimSpace(fc.FallbackFile); f != "" {
		eff.FallbackFile = absCleanFrom(cwdAbs, f)
	}

	// live：CLI > config > 默认 true
	if cli.LiveSet {
		eff.Live = cli.Live
	} else if fc.Live != nil {
		eff.Live = *fc.Live
	}

	pace := DefaultPaceSeconds
	if fc.PaceSeconds != nil {
		pace = *fc.PaceSeconds
	}
	if pace < 0 {
		return EffectiveConfig{}, fmt.Errorf("pace_seconds 不能为负数：%v", pace)
	}
	eff.Pace = seconds(pace)

	timeout := DefaultTimeoutSeconds
	if fc.TimeoutSeconds != nil {
		timeout = *fc.TimeoutSeconds
	}
	if timeout <= 0 {
		return EffectiveConfig{}, fmt.Errorf("timeout_seconds 必须为正数：%v", timeout)
	}
	eff.Timeout = seconds(timeout)

	if fc.RetryMax != nil {
		eff.RetryMax = *fc.RetryMax
	}
	if eff.RetryMax < 0 || eff.RetryMax > 5 {
		return EffectiveConfig{}, fmt.Errorf("retry_max 必须在 0-5 之间：%d", eff.RetryMax)
	}

	if err := validateListingURL(eff.ListingURL); err != nil {
		return EffectiveConfig{}, err
	}
	if eff.ProxyURL != "" {
		if err := validateHTTPURL("proxy_url", eff.ProxyURL, true); err != nil {
			return EffectiveConfig{}, err
		}
	}
	for name, v := range map[string]string{"imdb_base_url": eff.IMDbBaseURL, "douban_base_url": eff.DoubanBaseURL} {
		if v == "" {
			continue
		}
		if err := validateHTTPURL(name, v, false); err != nil {
			return EffectiveConfig{}, err
		}
	}

	if err := validateSource("primary", eff.Primary, false); err != nil {
		return EffectiveConfig{}, err
	}
	if err := validateSource("secondary", eff.Secondary, true); err != nil {
		return EffectiveConfig{}, err
	}
	if eff.Primary == eff.Secondary {
		return EffectiveConfig{}, fmt.Errorf("primary 与 secondary 不能相同：%q", eff.Primary)
	}

	switch eff.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, fmt.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", eff.LogLevel)
	}
	switch eff.LogFormat {
	case "console", "json":
	default:
		return EffectiveConfig{}, fmt.Errorf("log_format 只能是 console/json，实际是 %q", eff.LogFormat)
	}
	return eff, nil
}

func validateSource(field, name string, allowNone bool) error {
	if allowNone && name == SourceNone {
		return nil
	}
	for _, k := range KnownSources {
		if name == k {
			return nil
		}
	}
	return fmt.Errorf("%s 只能是 %s，实际是 %q", field, strings.Join(KnownSources, "/"), name)
}

func validateListingURL(tpl string) error {
	if !strings.Contains(tpl, "{month}") || !strings.Contains(tpl, "{year}") {
		return fmt.Errorf("listing_url 必须同时包含 {month} 与 {year}：%q", tpl)
	}
	probe := strings.NewReplacer("{month}", "may", "{year}", "2025").Replace(tpl)
	return validateHTTPURL("listing_url", probe, false)
}

func validateHTTPURL(field, raw string, allowSocks bool) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", field, raw)
	}
	switch u.Scheme {
	case "http", "https":
		return nil
	case "socks5", "socks5h":
		if allowSocks {
			return nil
		}
	}
	return fmt.Errorf("%s 的 scheme 不受支持：%q", field, raw)
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
