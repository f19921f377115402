package contentapp

import (
	"sync"

	"github.com/backkem/matter-tv/pkg/datamodel"
	"github.com/backkem/matter-tv/pkg/worker"
	"github.com/pion/logging"
)

// Reporter receives attribute changes pushed by a Notifier. The link server
// implements it to feed subscriptions; the MQTT bridge mirrors values.
// ReportAttribute is called on the app's worker goroutine.
type Reporter interface {
	ReportAttribute(path datamodel.AttributePath, value datamodel.Value)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(path datamodel.AttributePath, value datamodel.Value)

// ReportAttribute calls f.
func (f ReporterFunc) ReportAttribute(path datamodel.AttributePath, value datamodel.Value) {
	f(path, value)
}

// Notifier pushes attribute changes from an AttributeStore to the attached
// Reporters. Reports are scheduled on the app's worker, so the caller never
// blocks and changes made by one goroutine are reported in call order.
type Notifier struct {
	endpoint datamodel.EndpointID
	store    *AttributeStore
	queue    *worker.Queue
	log      logging.LeveledLogger

	mu        sync.RWMutex
	reporters map[uint64]Reporter
	nextID    uint64
}

func newNotifier(endpoint datamodel.EndpointID, store *AttributeStore, queue *worker.Queue, log logging.LeveledLogger) *Notifier {
	return &Notifier{
		endpoint:  endpoint,
		store:     store,
		queue:     queue,
		log:       log,
		reporters: make(map[uint64]Reporter),
	}
}

// AddReporter attaches r and returns a function that detaches it.
func (n *Notifier) AddReporter(r Reporter) (remove func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.reporters[id] = r
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.reporters, id)
			n.mu.Unlock()
		})
	}
}

// ReportAttributeChange schedules a report of the current value of
// (cluster, attribute). It returns once the report is queued. With no
// reporter attached, or with the attribute unset when the job runs, nothing
// is delivered.
func (n *Notifier) ReportAttributeChange(cluster datamodel.ClusterID, attribute datamodel.AttributeID) error {
	path := datamodel.AttributePath{
		Endpoint:  n.endpoint,
		Cluster:   cluster,
		Attribute: attribute,
	}
	return n.queue.Enqueue(func() {
		n.deliver(path)
	})
}

// SetAndReport writes value to the store and schedules a report.
func (n *Notifier) SetAndReport(cluster datamodel.ClusterID, attribute datamodel.AttributeID, value datamodel.Value) error {
	n.store.Set(cluster, attribute, value)
	return n.ReportAttributeChange(cluster, attribute)
}

func (n *Notifier) deliver(path datamodel.AttributePath) {
	n.mu.RLock()
	reporters := make([]Reporter, 0, len(n.reporters))
	for _, r := range n.reporters {
		reporters = append(reporters, r)
	}
	n.mu.RUnlock()

	if len(reporters) == 0 {
		return
	}

	value, ok := n.store.Get(path.Cluster, path.Attribute)
	if !ok {
		if n.log != nil {
			n.log.Debugf("skip report of unset attribute %s", path)
		}
		return
	}

	if n.log != nil {
		n.log.Tracef("report %s = %s", path, value)
	}
	for _, r := range reporters {
		r.ReportAttribute(path, value.Clone())
	}
}
