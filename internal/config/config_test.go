package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func noEnv(string) string { return "" }

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}

func may2025() CLIArgs { return CLIArgs{Year: 2025, Month: 5} }

func TestLoadEffective_DefaultsWithoutFile(t *testing.T) {
	cwd := t.TempDir()
	eff, err := LoadEffective(cwd, may2025(), noEnv)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != "" {
		t.Fatalf("未提供配置文件时 ConfigPath 应为空，实际 %q", eff.ConfigPath)
	}
	if eff.OutDir != filepath.Join(cwd, DefaultOutDir) {
		t.Fatalf("期望 out_dir=%q，实际=%q", filepath.Join(cwd, DefaultOutDir), eff.OutDir)
	}
	if eff.Pace != 2*time.Second || eff.Timeout != 10*time.Second || eff.RetryMax != 2 {
		t.Fatalf("网络默认值不符合预期：%+v", eff)
	}
	if eff.Primary != "imdb" || eff.Secondary != "douban" || !eff.Live {
		t.Fatalf("来源默认值不符合预期：%+v", eff)
	}
	if len(eff.Periods) != 1 || eff.Periods[0].Month != 5 || eff.Combine {
		t.Fatalf("期间不符合预期：%+v", eff.Periods)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()
	cli := may2025()
	cli.ConfigPath = "missing.toml"
	_, err := LoadEffective(cwd, cli, noEnv)
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_PeriodInvalid(t *testing.T) {
	cases := []CLIArgs{
		{Year: 2025, Month: 0},
		{Year: 2025, Month: 13},
		{Year: 1979, Month: 5},
		{Year: 2031, Month: 5},
		{Year: 2025, Month: 5, To: 3},
		{Year: 2025, Month: 5, To: 13},
	}
	for _, c := range cases {
		_, err := LoadEffective(t.TempDir(), c, noEnv)
		if Code(err) != ErrCodePeriodInvalid {
			t.Fatalf("%+v 期望 %q，实际 err=%v", c, ErrCodePeriodInvalid, err)
		}
	}
}

func TestLoadEffective_PeriodValidatedBeforeConfig(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("not = [valid"))
	_, err := LoadEffective(cwd, CLIArgs{Year: 2025, Month: 13}, noEnv)
	if Code(err) != ErrCodePeriodInvalid {
		t.Fatalf("期间应先于配置文件校验，实际 %v", err)
	}
}

func TestLoadEffective_FileEnvCLIPriority(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`
out_dir = "from-file"
log_level = "warn"
proxy_url = "http://file.proxy:1"
live = false
pace_seconds = 0.5
`))
	env := map[string]string{EnvOutDir: "from-env", EnvLogLevel: "error"}
	getenv := func(k string) string { return env[k] }

	eff, err := LoadEffective(cwd, may2025(), getenv)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != filepath.Join(cwd, FileName) {
		t.Fatalf("ConfigPath 不符合预期：%q", eff.ConfigPath)
	}
	if eff.OutDir != filepath.Join(cwd, "from-env") || eff.LogLevel != "error" {
		t.Fatalf("环境变量应覆盖配置文件：%+v", eff)
	}
	if eff.ProxyURL != "http://file.proxy:1" || eff.Live || eff.Pace != 500*time.Millisecond {
		t.Fatalf("配置文件字段未生效：%+v", eff)
	}

	cli := may2025()
	cli.OutDir, cli.OutDirSet = "from-cli", true
	cli.LogLevel, cli.LogLevelSet = "debug", true
	cli.Live, cli.LiveSet = true, true
	eff, err = LoadEffective(cwd, cli, getenv)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.OutDir != filepath.Join(cwd, "from-cli") || eff.LogLevel != "debug" || !eff.Live {
		t.Fatalf("CLI 应覆盖环境变量与配置文件：%+v", eff)
	}
}

func TestLoadEffective_UnknownFieldInvalid(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`outdir = "x"`))
	_, err := LoadEffective(cwd, may2025(), noEnv)
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeInvalid, err)
	}
}

func TestLoadEffective_FieldValidation(t *testing.T) {
	bad := []string{
		`primary = "rottentomatoes"`,
		`primary = "douban"` + "\n" + `secondary = "douban"`,
		`listing_url = "https://x.test/{month}/"`,
		`proxy_url = "127.0.0.1:8080"`,
		`pace_seconds = -1.0`,
		`timeout_seconds = 0.0`,
		`retry_max = 9`,
		`log_level = "verbose"`,
		`log_format = "xml"`,
		`imdb_base_url = "ftp://x.test"`,
	}
	for _, b := range bad {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, FileName), []byte(b))
		_, err := LoadEffective(cwd, may2025(), noEnv)
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%q 期望 %q，实际 err=%v", b, ErrCodeInvalid, err)
		}
	}
}

func TestLoadEffective_SecondaryNone(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`secondary = "none"`))
	eff, err := LoadEffective(cwd, may2025(), noEnv)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Secondary != SourceNone {
		t.Fatalf("期望 secondary=none，实际 %q", eff.Secondary)
	}
}

func TestLoadEffective_RangeAndOutput(t *testing.T) {
	cwd := t.TempDir()

	cli := CLIArgs{Year: 2025, Month: 3, To: 5, Output: "x.csv"}
	if _, err := LoadEffective(cwd, cli, noEnv); Code(err) != ErrCodeInvalid {
		t.Fatalf("多月非合并模式下 --output 应报错，实际 %v", err)
	}

	cli.Combine = true
	eff, err := LoadEffective(cwd, cli, noEnv)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(eff.Periods) != 3 || eff.Periods[2].Month != 5 || !eff.Combine {
		t.Fatalf("区间不符合预期：%+v", eff.Periods)
	}
	if eff.Output != filepath.Join(cwd, "x.csv") {
		t.Fatalf("输出路径应相对 cwd 解析，实际 %q", eff.Output)
	}

	// 单月时 --combine 无意义，自动关闭。
	eff, err = LoadEffective(cwd, CLIArgs{Year: 2025, Month: 3, Combine: true}, noEnv)
	if err != nil || eff.Combine {
		t.Fatalf("单月时 Combine 应为 false：%+v err=%v", eff, err)
	}
}

func TestError_Message(t *testing.T) {
	e := &Error{Code: ErrCodeInvalid, Err: os.ErrInvalid}
	if e.Error() == "" || Code(e) != ErrCodeInvalid {
		t.Fatalf("错误信息不符合预期：%q", e.Error())
	}
	if Code(os.ErrNotExist) != "" {
		t.Fatalf("非 *Error 应返回空 code")
	}
}
