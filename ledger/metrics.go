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

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stateMetrics struct {
	transitions      *prometheus.CounterVec
	pendingProposals prometheus.Gauge
	registrySize     prometheus.Gauge
	totalTokens      prometheus.Gauge
	droppedRemainder prometheus.Counter
}

func (m *stateMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.transitions = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcr_transitions_total",
			Help: "transitions processed, by kind and result",
		},
		[]string{"kind", "result"},
	)
	m.pendingProposals = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "tcr_pending_proposals",
		Help: "number of proposals under vote",
	})
	m.registrySize = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "tcr_registry_size",
		Help: "number of admitted proposals",
	})
	m.totalTokens = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "tcr_total_tokens",
		Help: "tokens held in balances and stakes",
	})
	m.droppedRemainder = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "tcr_dropped_remainder_total",
		Help: "tokens lost to indivisible remainders on resolve",
	})
}
