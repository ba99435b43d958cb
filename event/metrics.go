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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type eventMetrics struct {
	published   *prometheus.CounterVec
	subscribers *prometheus.GaugeVec
	dropped     *prometheus.CounterVec
}

func (e *EventBus) initMetrics(promRegistry prometheus.Registerer) {
	factory := promauto.With(promRegistry)
	e.metrics = &eventMetrics{
		published: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tcr_event_published_total",
				Help: "total events published, by event type",
			},
			[]string{"type"},
		),
		subscribers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tcr_event_subscribers",
				Help: "current subscribers, by event type",
			},
			[]string{"type"},
		),
		dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tcr_event_dropped_total",
				Help: "events dropped because a queue was full, by event type and queue",
			},
			[]string{"type", "queue"},
		),
	}
}
