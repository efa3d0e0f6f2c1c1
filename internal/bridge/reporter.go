package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/attribute"
)

const (
	defaultReportQueueSize = 1024
	historyWriteTimeout    = 5 * time.Second
)

// AttributePublisher receives attribute values and endpoint availability.
// *mqtt.Client satisfies it.
type AttributePublisher interface {
	PublishAttribute(endpoint uint16, cluster, attribute string, value any) error
	PublishAvailability(endpoint uint16, online bool) error
}

// TelemetryWriter records numeric and boolean attribute values.
// *influxdb.Client satisfies it.
type TelemetryWriter interface {
	WriteAttributeChange(change influxdb.AttributeChange) bool
}

// Report is one batch of attribute changes from one capability.
type Report struct {
	Endpoint   uint16
	EntityID   string
	Capability string
	Cluster    matter.ClusterID
	Changes    []attribute.Change
	At         time.Time
}

// availability is a queued online/offline transition.
type availability struct {
	endpoint uint16
	online   bool
}

// job is either a Report or an availability change.
type job struct {
	report       *Report
	availability *availability
}

// ReporterConfig configures a Reporter. Every sink is optional.
type ReporterConfig struct {
	QueueSize int
	Publisher AttributePublisher
	Telemetry TelemetryWriter
	History   AttributeHistoryRepository
	Logger    Logger
}

// ReporterStats counts reporter activity since start.
type ReporterStats struct {
	Queued    uint64 `json:"queued"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
	Pending   int    `json:"pending"`
}

// Reporter moves attribute changes off the sync path.
//
// Enqueue never blocks: when the queue is full the report is dropped and
// counted. One goroutine drains the queue, so sinks see reports for an
// endpoint in the order they were applied.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Reporter struct {
	queue     chan job
	publisher AttributePublisher
	telemetry TelemetryWriter
	history   AttributeHistoryRepository
	logger    Logger

	queued    atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

// NewReporter creates a Reporter. Call Run to start draining.
func NewReporter(cfg ReporterConfig) *Reporter {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultReportQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Reporter{
		queue:     make(chan job, size),
		publisher: cfg.Publisher,
		telemetry: cfg.Telemetry,
		history:   cfg.History,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Enqueue queues a report. Reports for the bridge-internal capability
// (no Matter cluster) and empty reports are ignored.
//
// Returns:
//   - bool: false if the report was dropped because the queue is full
func (r *Reporter) Enqueue(report Report) bool {
	if report.Cluster == matter.ClusterNone || len(report.Changes) == 0 {
		return true
	}
	if report.At.IsZero() {
		report.At = time.Now().UTC()
	}
	return r.push(job{report: &report})
}

// SetAvailability queues an endpoint online/offline transition.
func (r *Reporter) SetAvailability(endpoint uint16, online bool) bool {
	return r.push(job{availability: &availability{endpoint: endpoint, online: online}})
}

func (r *Reporter) push(j job) bool {
	select {
	case r.queue <- j:
		r.queued.Add(1)
		return true
	default:
		r.dropped.Add(1)
		r.logger.Warn("report queue full, dropping report")
		return false
	}
}

// Run drains the queue until ctx is cancelled, then flushes whatever is
// already queued and returns.
func (r *Reporter) Run(ctx context.Context) {
	defer r.closeOnce.Do(func() { close(r.done) })

	for {
		select {
		case j := <-r.queue:
			r.deliver(j)
		case <-ctx.Done():
			for {
				select {
				case j := <-r.queue:
					r.deliver(j)
				default:
					return
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (r *Reporter) Done() <-chan struct{} {
	return r.done
}

// Stats returns a snapshot of the reporter counters.
func (r *Reporter) Stats() ReporterStats {
	return ReporterStats{
		Queued:    r.queued.Load(),
		Delivered: r.delivered.Load(),
		Dropped:   r.dropped.Load(),
		Failed:    r.failed.Load(),
		Pending:   len(r.queue),
	}
}

func (r *Reporter) deliver(j job) {
	ok := true
	switch {
	case j.availability != nil:
		ok = r.deliverAvailability(*j.availability)
	case j.report != nil:
		ok = r.deliverReport(*j.report)
	}
	if ok {
		r.delivered.Add(1)
	} else {
		r.failed.Add(1)
	}
}

func (r *Reporter) deliverAvailability(a availability) bool {
	if r.publisher == nil {
		return true
	}
	if err := r.publisher.PublishAvailability(a.endpoint, a.online); err != nil {
		r.logger.Warn("publishing availability failed",
			"endpoint", a.endpoint,
			"online", a.online,
			"error", err,
		)
		return false
	}
	return true
}

// deliverReport sends one report to every sink. A failing sink does not
// stop the others.
func (r *Reporter) deliverReport(rep Report) bool {
	ok := true
	cluster := rep.Cluster.String()

	if r.publisher != nil {
		for _, c := range rep.Changes {
			if err := r.publisher.PublishAttribute(rep.Endpoint, cluster, c.Key, c.New); err != nil {
				r.logger.Warn("publishing attribute failed",
					"endpoint", rep.Endpoint,
					"cluster", cluster,
					"attribute", c.Key,
					"error", err,
				)
				ok = false
				break
			}
		}
	}

	if r.telemetry != nil {
		for _, c := range rep.Changes {
			r.telemetry.WriteAttributeChange(influxdb.AttributeChange{
				Endpoint:  rep.Endpoint,
				EntityID:  rep.EntityID,
				Cluster:   cluster,
				Attribute: c.Key,
				Value:     c.New,
				At:        rep.At,
			})
		}
	}

	if r.history != nil {
		records := make([]HistoryRecord, 0, len(rep.Changes))
		for _, c := range rep.Changes {
			value, err := json.Marshal(c.New)
			if err != nil {
				r.logger.Warn("encoding attribute for history failed",
					"attribute", c.Key,
					"error", err,
				)
				continue
			}
			records = append(records, HistoryRecord{
				Endpoint:   rep.Endpoint,
				EntityID:   rep.EntityID,
				Capability: rep.Capability,
				Cluster:    cluster,
				Attribute:  c.Key,
				Value:      value,
				RecordedAt: rep.At,
			})
		}
		ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
		defer cancel()
		if err := r.history.Record(ctx, records); err != nil {
			r.logger.Warn("recording attribute history failed",
				"endpoint", rep.Endpoint,
				"error", err,
			)
			ok = false
		}
	}

	return ok
}
