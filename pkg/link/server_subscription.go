package link

import (
	"net"
	"sync"
	"time"

	"github.com/backkem/matter-tv/pkg/contentapp"
	"github.com/backkem/matter-tv/pkg/datamodel"
)

// serverSubscription paces the reports of one client subscription.
//
// A change is sent at once when the last report is at least minInterval
// old; otherwise it is held and the latest held value is sent when the
// interval ends. When maxInterval passes without a report the current value
// is sent as a heartbeat.
type serverSubscription struct {
	server      *Server
	app         *contentapp.App
	id          uint32
	addr        net.Addr
	path        datamodel.AttributePath
	minInterval time.Duration
	maxInterval time.Duration

	mu        sync.Mutex
	seq       uint32
	lastSent  time.Time
	pending   *datamodel.Value
	flush     *time.Timer
	heartbeat *time.Timer
	stopped   bool
}

func newServerSubscription(s *Server, app *contentapp.App, id uint32, addr net.Addr, path datamodel.AttributePath, minInterval, maxInterval time.Duration) *serverSubscription {
	return &serverSubscription{
		server:      s,
		app:         app,
		id:          id,
		addr:        addr,
		path:        path,
		minInterval: minInterval,
		maxInterval: maxInterval,
	}
}

// offer schedules a report of v.
func (sub *serverSubscription) offer(v datamodel.Value) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.stopped {
		return
	}

	wait := sub.minInterval - time.Since(sub.lastSent)
	if sub.lastSent.IsZero() || wait <= 0 {
		sub.sendLocked(v)
		return
	}

	sub.pending = &v
	if sub.flush == nil {
		sub.flush = time.AfterFunc(wait, sub.flushPending)
	}
}

// sendNow reports v regardless of the minimum interval.
func (sub *serverSubscription) sendNow(v datamodel.Value) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.stopped {
		sub.sendLocked(v)
	}
}

func (sub *serverSubscription) flushPending() {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	sub.flush = nil
	if sub.stopped || sub.pending == nil {
		return
	}
	v := *sub.pending
	sub.pending = nil
	sub.sendLocked(v)
}

func (sub *serverSubscription) sendLocked(v datamodel.Value) {
	sub.seq++
	sub.lastSent = time.Now()
	sub.pending = nil

	f := &Frame{
		Op:             OpReport,
		SubscriptionID: sub.id,
		Seq:            sub.seq,
		Value:          v,
	}
	f.SetAttributePath(sub.path)
	sub.server.send(f, sub.addr)

	sub.armHeartbeatLocked()
}

// armHeartbeat starts the maximum interval timer.
func (sub *serverSubscription) armHeartbeat() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.stopped {
		sub.armHeartbeatLocked()
	}
}

func (sub *serverSubscription) armHeartbeatLocked() {
	if sub.maxInterval <= 0 {
		return
	}
	if sub.heartbeat == nil {
		sub.heartbeat = time.AfterFunc(sub.maxInterval, sub.sendHeartbeat)
		return
	}
	sub.heartbeat.Reset(sub.maxInterval)
}

func (sub *serverSubscription) sendHeartbeat() {
	// An unset attribute is reported as absent, which keeps the client's
	// liveness check satisfied without producing an update.
	v, err := sub.app.ReadAttribute(sub.path.Cluster, sub.path.Attribute)
	if err != nil {
		v = datamodel.Absent()
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.stopped {
		return
	}
	sub.sendLocked(v)
}

func (sub *serverSubscription) stop() {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	sub.stopped = true
	sub.pending = nil
	if sub.flush != nil {
		sub.flush.Stop()
		sub.flush = nil
	}
	if sub.heartbeat != nil {
		sub.heartbeat.Stop()
	}
}
