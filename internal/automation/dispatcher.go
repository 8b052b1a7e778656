package automation

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

type dispatchJob struct {
	ruleID    string
	eventType string
	payload   map[string]interface{}
}

// Dispatcher maintains the event-type → interested-rule-ids index and fans
// incoming events out to a bounded worker pool. Dispatch never blocks its
// caller on automation completion, and a burst of events cannot spawn more
// than the configured number of concurrent executions.
type Dispatcher struct {
	mu    sync.RWMutex
	index map[string]map[string]struct{}

	jobs    chan dispatchJob
	stop    chan struct{}
	stopOne sync.Once
	wg      sync.WaitGroup

	run    func(ruleID, eventType string, payload map[string]interface{})
	logger *logrus.Logger
}

func NewDispatcher(workers, queueSize int, logger *logrus.Logger) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = logrus.New()
	}
	d := &Dispatcher{
		index:  make(map[string]map[string]struct{}),
		jobs:   make(chan dispatchJob, queueSize),
		stop:   make(chan struct{}),
		logger: logger,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// SetRunFunc injects the per-rule evaluate-and-execute callback. Must be set
// before the first Dispatch.
func (d *Dispatcher) SetRunFunc(fn func(ruleID, eventType string, payload map[string]interface{})) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.run = fn
}

// Subscribe registers the rule id under every event type its trigger category
// listens on.
func (d *Dispatcher) Subscribe(rule *Rule) {
	eventTypes := EventTypesFor(rule.Trigger.Type)
	if len(eventTypes) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, et := range eventTypes {
		set, ok := d.index[et]
		if !ok {
			set = make(map[string]struct{})
			d.index[et] = set
		}
		set[rule.ID] = struct{}{}
	}
}

// Unsubscribe removes the rule id from every event type it was registered
// under and drops event types whose subscriber set becomes empty. Robust
// against trigger-category changes between subscribe and unsubscribe.
func (d *Dispatcher) Unsubscribe(ruleID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for et, set := range d.index {
		delete(set, ruleID)
		if len(set) == 0 {
			delete(d.index, et)
		}
	}
}

// Subscribers returns the rule ids currently registered for an event type.
func (d *Dispatcher) Subscribers(eventType string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.index[eventType]))
	for id := range d.index[eventType] {
		ids = append(ids, id)
	}
	return ids
}

// Dispatch looks up the interested rules and hands each off to the worker
// pool. The caller is never blocked: when the queue is saturated the enqueue
// waits in a detached goroutine.
func (d *Dispatcher) Dispatch(eventType string, payload map[string]interface{}) {
	ids := d.Subscribers(eventType)
	if len(ids) == 0 {
		return
	}
	go func() {
		for _, id := range ids {
			select {
			case d.jobs <- dispatchJob{ruleID: id, eventType: eventType, payload: payload}:
			case <-d.stop:
				return
			}
		}
	}()
}

// Enqueue submits a single rule run to the worker pool, used by the scheduler
// for timer fires so scheduled executions share the same concurrency bound.
func (d *Dispatcher) Enqueue(ruleID, eventType string, payload map[string]interface{}) {
	select {
	case d.jobs <- dispatchJob{ruleID: ruleID, eventType: eventType, payload: payload}:
	case <-d.stop:
	}
}

// Stop shuts the worker pool down. In-flight jobs run to completion; queued
// jobs not yet picked up are dropped.
func (d *Dispatcher) Stop() {
	d.stopOne.Do(func() { close(d.stop) })
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			return
		case job := <-d.jobs:
			d.runJob(job)
		}
	}
}

// runJob isolates one rule's evaluation/execution: a panic is logged and never
// prevents dispatch to the remaining rules.
func (d *Dispatcher) runJob(job dispatchJob) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("automation: rule %s panicked handling %s: %v", job.ruleID, job.eventType, r)
		}
	}()
	d.mu.RLock()
	run := d.run
	d.mu.RUnlock()
	if run != nil {
		run(job.ruleID, job.eventType, job.payload)
	}
}
