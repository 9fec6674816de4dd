package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/BOMC/internal/app/run"
	"github.com/John-Robertt/BOMC/internal/config"
	"github.com/John-Robertt/BOMC/internal/domain"
	"github.com/John-Robertt/BOMC/internal/logging"
)

var errRunFailed = errors.New("存在失败或被中断的期间")

func newRunCmd(c *cli) *cobra.Command {
	var args config.CLIArgs

	cmd := &cobra.Command{
		Use:   "run",
		Short: "抓取一个月份（或同一年的月份区间）并写出 CSV",
		Example: `  bomc run --year 2025 --month 5
  bomc run --year 2025 --month 5 --to 8 --combine
  bomc run --year 2025 --month 5 --live=false --out-dir ./out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			args.OutDirSet = f.Changed("out-dir")
			args.LiveSet = f.Changed("live")
			args.CacheDirSet = f.Changed("cache-dir")
			args.LogLevelSet = f.Changed("log-level")
			return c.run(cmd, args)
		},
	}

	f := cmd.Flags()
	f.IntVar(&args.Year, "year", 0, "年份（1980-2030）")
	f.IntVar(&args.Month, "month", 0, "月份（1-12）；与 --to 组合时为区间起点")
	f.IntVar(&args.To, "to", 0, "区间结束月份（含）")
	f.BoolVar(&args.Combine, "combine", false, "区间模式下合并写入一个 CSV")
	f.StringVarP(&args.Output, "output", "o", "", "输出文件路径（仅单月或 --combine）")
	f.StringVarP(&args.ConfigPath, "config", "c", "", "配置文件路径（默认读取 ./bomc.toml）")
	f.BoolVar(&args.Live, "live", true, "是否在线检索评分；--live=false 只用回退数据")
	f.StringVar(&args.OutDir, "out-dir", "", "输出目录")
	f.StringVar(&args.CacheDir, "cache-dir", "", "页面缓存目录（为空则不缓存）")
	f.StringVar(&args.LogLevel, "log-level", "", "日志级别：debug|info|warn|error")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func (c *cli) run(cmd *cobra.Command, args config.CLIArgs) error {
	started := time.Now().UTC()

	cwd, err := c.getwd()
	if err != nil {
		return &exitError{code: exitFailed, err: fmt.Errorf("读取当前目录失败：%w", err)}
	}

	eff, err := config.LoadEffective(cwd, args, c.getenv)
	if err != nil {
		c.emitReport(configErrorReport(started, err))
		return &exitError{code: exitUsage, err: err}
	}

	log, err := logging.New(logging.Options{Level: eff.LogLevel, Format: eff.LogFormat, Writer: c.stderr})
	if err != nil {
		c.emitReport(configErrorReport(started, err))
		return &exitError{code: exitUsage, err: err}
	}

	env, err := run.NewEnv(eff, log)
	if err != nil {
		c.emitReport(configErrorReport(started, err))
		return &exitError{code: exitUsage, err: err}
	}

	var obs run.Observer
	progressW, interactive := c.progressWriter()
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.Execute(cmd.Context(), eff, env, obs)
	c.emitReport(rr)

	if rr.Summary.Failed > 0 || rr.Summary.Interrupted > 0 {
		return &exitError{code: exitFailed, err: errRunFailed}
	}
	return nil
}

func configErrorReport(started time.Time, err error) domain.RunReport {
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.RunReport{
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		ErrorCode:  code,
		ErrorMsg:   err.Error(),
	}
	rr.Finalize()
	return rr
}

// emitReport：stdout 非 TTY 时必须且仅输出一个 RunReport JSON；摘要始终写 stderr。
func (c *cli) emitReport(rr domain.RunReport) {
	if !isTerminal(c.stdout) {
		enc := json.NewEncoder(c.stdout)
		_ = enc.Encode(rr)
	}
	writeSummary(c.stderr, rr)
}

func writeSummary(w io.Writer, rr domain.RunReport) {
	if rr.ErrorCode != "" {
		fmt.Fprintf(w, "失败：%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
		return
	}
	fmt.Fprintf(w, "完成：written=%d no_data=%d failed=%d interrupted=%d\n",
		rr.Summary.Written, rr.Summary.NoData, rr.Summary.Failed, rr.Summary.Interrupted,
	)
	for _, p := range rr.Periods {
		if p.Status != domain.StatusFailed && p.Status != domain.StatusInterrupted {
			continue
		}
		fmt.Fprintf(w, "%s %s: %s\n", p.Period, p.ErrorCode, p.ErrorMsg)
	}
	if rr.CombinedFile != "" {
		fmt.Fprintf(w, "combined: %s\n", rr.CombinedFile)
	}
}

func (c *cli) progressWriter() (io.Writer, bool) {
	// 进度只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTerminal(c.stderr) {
		return c.stderr, true
	}
	if isTerminal(c.stdout) {
		return c.stdout, true
	}
	return nil, false
}
