package authcore

import (
	"context"
	"sync"
)

// auditDispatcher decouples request handling from sink latency. Events are
// queued on a buffered channel and written by a single background goroutine,
// so a slow sink never stalls a login.
type auditDispatcher struct {
	sink    AuditSink
	events  chan AuditEvent
	drop    bool
	metrics *Metrics

	closeOnce sync.Once
	done      chan struct{}
}

func newAuditDispatcher(sink AuditSink, cfg AuditConfig, metrics *Metrics) *auditDispatcher {
	d := &auditDispatcher{
		sink:    sink,
		events:  make(chan AuditEvent, cfg.BufferSize),
		drop:    cfg.DropIfFull,
		metrics: metrics,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.done)
	for event := range d.events {
		d.sink.Write(context.Background(), event)
	}
}

func (d *auditDispatcher) emit(event AuditEvent) {
	if d.drop {
		select {
		case d.events <- event:
		default:
			d.metrics.inc(MetricAuditDropped)
		}
		return
	}
	d.events <- event
}

// close drains the queue and waits for the worker to exit.
func (d *auditDispatcher) close() {
	d.closeOnce.Do(func() {
		close(d.events)
	})
	<-d.done
}
