package run

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/John-Robertt/BOMC/internal/config"
	"github.com/John-Robertt/BOMC/internal/domain"
	"github.com/John-Robertt/BOMC/internal/enrich"
)

type recordObserver struct {
	startCalls int
	runID      string
	events     []string
	rows       []string
}

func (o *recordObserver) OnStart(eff config.EffectiveConfig, runID string) {
	o.startCalls++
	o.runID = runID
}

func (o *recordObserver) OnPeriodStart(idx, total int, p domain.Period) {
	o.events = append(o.events, "start:"+p.String())
}

func (o *recordObserver) OnRowDone(p domain.Period, idx, total int, row domain.EnrichedRow, trace enrich.Trace) {
	o.rows = append(o.rows, row.Title)
}

func (o *recordObserver) OnPeriodDone(res domain.PeriodResult, rows []domain.EnrichedRow, dur time.Duration) {
	o.events = append(o.events, "done:"+res.Period+":"+res.Status)
}

func TestExecute_EmitsObserverEventsInOrder(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/month/may/2025/": listingHTML})
	eff := testConfig(t, srv, mustPeriod(t, 2025, 4), mustPeriod(t, 2025, 5))
	eff.Live = false

	obs := &recordObserver{}
	rr := Execute(context.Background(), eff, testEnv(t, srv), obs)

	if obs.startCalls != 1 || obs.runID != rr.RunID {
		t.Fatalf("OnStart 不符合预期：calls=%d runID=%q report=%q", obs.startCalls, obs.runID, rr.RunID)
	}
	wantEvents := []string{
		"start:2025-04",
		"done:2025-04:failed",
		"start:2025-05",
		"done:2025-05:written",
	}
	if !reflect.DeepEqual(obs.events, wantEvents) {
		t.Fatalf("期望事件 %v，实际 %v", wantEvents, obs.events)
	}
	wantRows := []string{"Batman", "Completely Unknown Feature"}
	if !reflect.DeepEqual(obs.rows, wantRows) {
		t.Fatalf("期望行事件 %v，实际 %v", wantRows, obs.rows)
	}
}

func TestExecute_OfflineCountsNoLiveHits(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/month/may/2025/": listingHTML})
	eff := testConfig(t, srv, mustPeriod(t, 2025, 5))
	eff.Live = false

	rr := Execute(context.Background(), eff, testEnv(t, srv), nil)

	res := rr.Periods[0]
	if len(res.LiveHits) != 0 {
		t.Fatalf("离线模式不应有在线命中：%+v", res.LiveHits)
	}
	if res.FallbackHits["imdb"] != 1 {
		t.Fatalf("期望 imdb 回退命中 1 次，实际 %+v", res.FallbackHits)
	}
}
