package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/BOMC/internal/app/run"
	"github.com/John-Robertt/BOMC/internal/boxoffice"
	"github.com/John-Robertt/BOMC/internal/config"
	"github.com/John-Robertt/BOMC/internal/logging"
	"github.com/John-Robertt/BOMC/internal/table"
)

func newInspectCmd(c *cli) *cobra.Command {
	var args config.CLIArgs

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "打印榜单页的表格结构与抽取结果（排查页面结构变化）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args.CacheDirSet = cmd.Flags().Changed("cache-dir")
			return c.inspect(cmd, args)
		},
	}
	f := cmd.Flags()
	f.IntVar(&args.Year, "year", 0, "年份（1980-2030）")
	f.IntVar(&args.Month, "month", 0, "月份（1-12）")
	f.StringVarP(&args.ConfigPath, "config", "c", "", "配置文件路径（默认读取 ./bomc.toml）")
	f.StringVar(&args.CacheDir, "cache-dir", "", "页面缓存目录（为空则不缓存）")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func (c *cli) inspect(cmd *cobra.Command, args config.CLIArgs) error {
	cwd, err := c.getwd()
	if err != nil {
		return &exitError{code: exitFailed, err: err}
	}
	eff, err := config.LoadEffective(cwd, args, c.getenv)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	log, err := logging.New(logging.Options{Level: eff.LogLevel, Format: eff.LogFormat, Writer: c.stderr})
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	env, err := run.NewEnv(eff, log)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	p := eff.Periods[0]
	client := boxoffice.Client{Fetcher: env.Fetcher, URLTemplate: eff.ListingURL}
	doc, u, err := client.Document(cmd.Context(), p)
	if err != nil {
		return &exitError{code: exitFailed, err: err}
	}

	fmt.Fprintf(c.stdout, "%s %s\n\n", p, u)
	writeTables(c.stdout, table.Describe(doc))

	res := table.Extract(doc)
	fmt.Fprintf(c.stdout, "\n抽取：strategy=%s scanned=%d rows=%d skipped=%d columns=%s\n",
		orDash(res.Strategy), res.Scanned, len(res.Rows), res.Skipped, formatColumns(res.Columns),
	)
	for _, e := range res.RowErrors {
		fmt.Fprintf(c.stdout, "  %v\n", e)
	}
	if len(res.Rows) > 0 {
		rows := make([][]string, 0, len(res.Rows))
		for _, r := range res.Rows {
			rows = append(rows, []string{strconv.Itoa(r.Rank), r.Title, r.GrossText, r.ReleaseDateRaw})
		}
		fmt.Fprintln(c.stdout, renderTable(
			[]string{"#", "Title", "Gross", "Release Date"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
		))
	}
	return nil
}

func writeTables(w io.Writer, infos []table.TableInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "页面中没有 <table>")
		return
	}
	rows := make([][]string, 0, len(infos))
	for _, t := range infos {
		sample := ""
		if len(t.Samples) > 0 {
			sample = strings.Join(t.Samples[0], " | ")
		}
		rows = append(rows, []string{
			strconv.Itoa(t.Index),
			orDash(t.Class),
			orDash(t.ID),
			strconv.Itoa(t.Rows),
			truncate(strings.Join(t.Header, " | "), 80),
			truncate(sample, 80),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "class", "id", "rows", "header", "sample"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
}

func formatColumns(c table.Columns) string {
	src := "fixed"
	if len(c.FromHeader) > 0 {
		src = "header(" + strings.Join(c.FromHeader, ",") + ")"
	}
	return fmt.Sprintf("rank=%d title=%d gross=%d release_date=%d %s", c.Rank, c.Title, c.Gross, c.ReleaseDate, src)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
