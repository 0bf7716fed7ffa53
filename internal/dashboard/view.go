// Package dashboard holds the marketing view state and the flows that feed
// it: snapshot loading, live updates, refreshes and entry submission.
package dashboard

import (
	"sync"
	"time"

	"github.com/AngelCh415/kpi-dashboard/internal/kpi"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

// Snapshot is a consistent copy of what the view displays.
type Snapshot struct {
	Query      models.Query
	Stats      models.Stats
	KPIs       models.KPIs
	Page       models.Page
	Loaded     bool
	Loading    bool
	Err        error
	LoadedAt   time.Time
	LastUpdate *models.LiveUpdate
}

// View is the goroutine-safe state of the dashboard. Loads are numbered when
// issued; a settle older than the last applied one is discarded.
type View struct {
	mu       sync.Mutex
	snap     Snapshot
	issued   uint64
	applied  uint64
	inflight int
	changed  chan struct{}
	now      func() time.Time
}

func NewView(q models.Query) *View {
	return &View{
		snap:    Snapshot{Query: q},
		changed: make(chan struct{}, 1),
		now:     time.Now,
	}
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

func (v *View) Query() models.Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap.Query
}

// Changes fires (coalesced) after every state change.
func (v *View) Changes() <-chan struct{} { return v.changed }

func (v *View) signal() {
	select {
	case v.changed <- struct{}{}:
	default:
	}
}

func (v *View) begin(q models.Query) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.issued++
	v.inflight++
	v.snap.Query = q
	v.snap.Loading = true
	v.signal()
	return v.issued
}

// settle applies the result of load seq. It reports false when a newer load
// or a live update already superseded it. On error the displayed data stays.
func (v *View) settle(seq uint64, st models.Stats, p models.Page, err error) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.inflight--
	v.snap.Loading = v.inflight > 0
	defer v.signal()
	if seq <= v.applied {
		return false
	}
	v.applied = seq
	v.snap.Err = err
	if err != nil {
		return true
	}
	v.snap.Stats = st
	v.snap.KPIs = displayed(st)
	v.snap.Page = p
	v.snap.Loaded = true
	v.snap.LoadedAt = v.now()
	return true
}

// ApplyLive replaces the displayed KPIs with the fields carried by u. Loads
// issued before u are invalidated so they cannot overwrite it.
func (v *View) ApplyLive(u models.LiveUpdate) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.applied = v.issued
	v.snap.KPIs = u.KPIs.Over(v.snap.KPIs)
	v.snap.LastUpdate = &u
	v.signal()
}

// displayed recomputes the KPIs from the totals; the backend's own set is used
// only when no totals came back.
func displayed(st models.Stats) models.KPIs {
	if st.Totals.Empty() && st.KPIs != nil {
		return *st.KPIs
	}
	return kpi.Compute(st.Totals)
}
