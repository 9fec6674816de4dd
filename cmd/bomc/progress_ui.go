package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/BOMC/internal/app/run"
	"github.com/John-Robertt/BOMC/internal/config"
	"github.com/John-Robertt/BOMC/internal/domain"
	"github.com/John-Robertt/BOMC/internal/enrich"
)

var _ run.Observer = (*progressUI)(nil)

// previewRows 是每个期间完成后在终端预览的行数。
const previewRows = 3

// progressUI 是交互终端的进度输出。
//
// 约束：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - keepalive：单行补全耗时较长（节奏限制 + 多候选）时定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	period      string
	periodIdx   int
	periods     int
	periodsDone int
	rowsDone    int
	rowsTotal   int
	inPeriod    bool

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 8 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig, runID string) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	p.periods = len(eff.Periods)

	fmt.Fprintf(p.w, "[%s] BOMC run %s\n", now.Format("15:04:05"), runID)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  periods: %s\n", formatPeriods(eff.Periods))
	fmt.Fprintf(p.w, "  sources: %s\n", sourceChain(eff.Primary, eff.Secondary))
	fmt.Fprintf(p.w, "  live: %s\n", onOff(eff.Live))
	fmt.Fprintf(p.w, "  pace: %s\n", eff.Pace)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  cache: %s\n", orOff(eff.CacheDir))
	if eff.FallbackFile != "" {
		fmt.Fprintf(p.w, "  fallback_file: %s\n", eff.FallbackFile)
	}

	fmt.Fprintln(p.w, "输出:")
	fmt.Fprintf(p.w, "  out_dir: %s\n", eff.OutDir)
	if eff.Output != "" {
		fmt.Fprintf(p.w, "  output: %s\n", eff.Output)
	}
	if eff.Combine {
		fmt.Fprintln(p.w, "  combine: on")
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
	if !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnPeriodStart(idx, total int, period domain.Period) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.period = period.String()
	p.periodIdx = idx + 1
	p.periods = total
	p.rowsDone, p.rowsTotal = 0, 0
	p.inPeriod = true

	fmt.Fprintf(p.w, "[%d/%d] %s 抓取榜单...\n", idx+1, total, p.period)
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnRowDone(period domain.Period, idx, total int, row domain.EnrichedRow, trace enrich.Trace) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rowsDone = idx + 1
	p.rowsTotal = total

	fmt.Fprintf(p.w, "  [%d/%d] #%d %s -> %s %s/%s %s\n",
		idx+1, total, row.Rank, truncate(row.Title, 40), row.LocalizedTitle,
		row.Rating, row.SecondaryRating, formatTrace(trace),
	)
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPeriodDone(res domain.PeriodResult, rows []domain.EnrichedRow, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inPeriod = false
	p.periodsDone++

	switch res.Status {
	case domain.StatusWritten:
		fmt.Fprintf(p.w, "%s OK rows=%d skipped=%d gross=%s file=%s (%s)\n",
			res.Period, res.Rows, res.SkippedRows, formatGross(res.GrossTotal), res.File, formatShortDuration(dur),
		)
		if len(rows) > 0 {
			fmt.Fprintln(p.w, previewTable(rows))
		}
	case domain.StatusNoData:
		fmt.Fprintf(p.w, "%s NO_DATA 榜单中没有有效行 (%s)\n", res.Period, formatShortDuration(dur))
	default:
		fmt.Fprintf(p.w, "%s %s %s: %s (%s)\n",
			res.Period, strings.ToUpper(res.Status), res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	}
	p.lastPrinted = time.Now()

	if p.tickerStarted && p.periodsDone >= p.periods {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 8 * time.Second
	}
	stop := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.inPeriod && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "进度: period=%s (%d/%d) rows=%d/%d elapsed=%s\n",
						p.period, p.periodIdx, p.periods, p.rowsDone, p.rowsTotal, formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func previewTable(rows []domain.EnrichedRow) string {
	n := min(len(rows), previewRows)
	out := make([][]string, 0, n)
	for _, r := range rows[:n] {
		out = append(out, []string{strconv.Itoa(r.Rank), truncate(r.Title, 40), r.LocalizedTitle, r.GrossText, r.Rating, r.SecondaryRating})
	}
	return renderTable(
		[]string{"#", "英文片名", "中文片名", "累计票房", "评分", "次要评分"},
		out,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func formatTrace(t enrich.Trace) string {
	parts := make([]string, 0, len(t.Lanes))
	for _, l := range t.Lanes {
		parts = append(parts, l.Source+":"+string(l.Outcome))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func formatPeriods(ps []domain.Period) string {
	switch len(ps) {
	case 0:
		return "-"
	case 1:
		return ps[0].String()
	default:
		return ps[0].String() + " .. " + ps[len(ps)-1].String()
	}
}

func sourceChain(primary, secondary string) string {
	if secondary == "" || secondary == config.SourceNone {
		return primary
	}
	return primary + " + " + secondary
}

func formatGross(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func orOff(s string) string {
	if strings.TrimSpace(s) == "" {
		return "off"
	}
	return s
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if max <= 0 || len(rs) <= max {
		return s
	}
	if max <= 3 {
		return string(rs[:max])
	}
	return string(rs[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
