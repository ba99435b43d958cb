// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SubscriberQueueSize = 20
	AsyncQueueSize      = 1000
)

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
	// Assigned by the bus when the event is published. Events published
	// through one bus have strictly increasing sequence numbers
	Seq uint64
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

type subscription struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// deliver never blocks. It reports false when the subscriber buffer is full
func (s *subscription) deliver(evt Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- evt:
		return true
	default:
		return false
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// EventBus fans out events to subscribers. Async events are handed to a
// single dispatcher so subscribers see them in publish order
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType]map[EventSubscriberId]*subscription
	lastSubId   EventSubscriberId
	seq         atomic.Uint64
	logger      *slog.Logger
	metrics     *eventMetrics

	queue        chan Event
	stopCh       chan struct{}
	stopMu       sync.RWMutex
	stopped      bool
	dispatchDone chan struct{}
	handlerWg    sync.WaitGroup
}

// NewEventBus creates an EventBus and starts its dispatcher
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subscribers:  make(map[EventType]map[EventSubscriberId]*subscription),
		logger:       logger.With("component", "event"),
		queue:        make(chan Event, AsyncQueueSize),
		stopCh:       make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	go e.dispatch()
	return e
}

func (e *EventBus) dispatch() {
	defer close(e.dispatchDone)
	for {
		select {
		case <-e.stopCh:
			return
		case evt := <-e.queue:
			e.fanOut(evt)
		}
	}
}

// Subscribe returns a channel receiving events of the given type. The
// channel is closed by Unsubscribe or Stop. A stopped bus returns id 0 and
// a closed channel
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	sub := &subscription{ch: make(chan Event, SubscriberQueueSize)}
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		sub.close()
		return 0, sub.ch
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSubId++
	subId := e.lastSubId
	if e.subscribers[eventType] == nil {
		e.subscribers[eventType] = make(map[EventSubscriberId]*subscription)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return subId, sub.ch
}

// SubscribeFunc calls handlerFunc for every event of the given type on a
// dedicated goroutine. A panicking handler is logged and keeps its
// subscription. It returns 0 if the bus has been stopped
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	// Held through Add so Stop cannot start waiting first
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return 0
	}
	sub := &subscription{ch: make(chan Event, SubscriberQueueSize)}
	e.mu.Lock()
	e.lastSubId++
	subId := e.lastSubId
	if e.subscribers[eventType] == nil {
		e.subscribers[eventType] = make(map[EventSubscriberId]*subscription)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	e.mu.Unlock()
	e.handlerWg.Add(1)
	go func() {
		defer e.handlerWg.Done()
		for evt := range sub.ch {
			e.runHandler(handlerFunc, evt)
		}
	}()
	return subId
}

func (e *EventBus) runHandler(handlerFunc EventHandlerFunc, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(
				fmt.Sprintf("event handler panic: %v", r),
				"type", evt.Type,
				"seq", evt.Seq,
			)
		}
	}()
	handlerFunc(evt)
}

// Unsubscribe stops delivery to a subscriber and closes its channel
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	sub, ok := e.subscribers[eventType][subId]
	if ok {
		delete(e.subscribers[eventType], subId)
		if len(e.subscribers[eventType]) == 0 {
			delete(e.subscribers, eventType)
		}
		if e.metrics != nil {
			e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
		}
	}
	e.mu.Unlock()
	if ok {
		sub.close()
	}
}

// Publish delivers an event to the current subscribers before returning.
// Subscribers with a full buffer miss the event
func (e *EventBus) Publish(eventType EventType, evt Event) {
	evt.Type = eventType
	evt.Seq = e.seq.Add(1)
	e.fanOut(evt)
}

// PublishAsync queues an event for the dispatcher. It returns false if the
// bus is stopped or the queue is full
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return false
	}
	evt.Type = eventType
	evt.Seq = e.seq.Add(1)
	select {
	case e.queue <- evt:
		return true
	default:
		e.logger.Warn(
			"async event queue full, dropping event",
			"type", eventType,
			"seq", evt.Seq,
		)
		if e.metrics != nil {
			e.metrics.dropped.WithLabelValues(string(eventType), "queue").Inc()
		}
		return false
	}
}

func (e *EventBus) fanOut(evt Event) {
	e.mu.RLock()
	subs := make([]*subscription, 0, len(e.subscribers[evt.Type]))
	for _, sub := range e.subscribers[evt.Type] {
		subs = append(subs, sub)
	}
	e.mu.RUnlock()
	for _, sub := range subs {
		if sub.deliver(evt) {
			continue
		}
		e.logger.Warn(
			"subscriber channel full, dropping event",
			"type", evt.Type,
			"seq", evt.Seq,
		)
		if e.metrics != nil {
			e.metrics.dropped.WithLabelValues(string(evt.Type), "subscriber").Inc()
		}
	}
	if e.metrics != nil {
		e.metrics.published.WithLabelValues(string(evt.Type)).Inc()
	}
}

// Stop delivers the events already queued, closes every subscriber and
// waits for SubscribeFunc handlers to return. It is idempotent and the bus
// cannot be reused afterward
func (e *EventBus) Stop() {
	e.stopMu.Lock()
	if e.stopped {
		e.stopMu.Unlock()
		return
	}
	e.stopped = true
	e.stopMu.Unlock()

	close(e.stopCh)
	<-e.dispatchDone
	// Nothing can enqueue once stopped is set
	for {
		select {
		case evt := <-e.queue:
			e.fanOut(evt)
			continue
		default:
		}
		break
	}

	e.mu.Lock()
	subs := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]*subscription)
	e.mu.Unlock()
	for _, byId := range subs {
		for _, sub := range byId {
			sub.close()
		}
	}
	e.handlerWg.Wait()
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
}
