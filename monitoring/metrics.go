// Package monitoring exports bus engine activity as Prometheus counters.
package monitoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maemowong/aesbus"
	"github.com/maemowong/aesbus/proto/rijndael"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aesbus"

// Metrics is an aesbus.Observer that counts transactions, rounds and cycles.
// One Metrics may be shared by controllers running on different goroutines.
type Metrics struct {
	transactions *prometheus.CounterVec
	dropped      prometheus.Counter
	rounds       prometheus.Counter
	cycles       *prometheus.CounterVec
	stalls       prometheus.Counter
}

// A compile-time check to ensure Metrics implements aesbus.Observer.
var _ aesbus.Observer = (*Metrics)(nil)

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Completed bus transactions by opcode.",
		}, []string{"opcode"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_dropped_total",
			Help:      "Transactions dropped for a malformed header.",
		}),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Datapath rounds committed to the state register.",
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Clock edges by controller state after the edge.",
		}, []string{"state"}),
		stalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stall_cycles_total",
			Help:      "Edges on which a pending handshake did not complete.",
		}),
	}

	collectors := []prometheus.Collector{
		m.transactions, m.dropped, m.rounds, m.cycles, m.stalls,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("unable to register metric: %w",
				err)
		}
	}

	return m, nil
}

// TransactionDone counts a completed transaction.
func (m *Metrics) TransactionDone(tx aesbus.Transaction) {
	m.transactions.WithLabelValues(tx.Header.Opcode.String()).Inc()
}

// TransactionDropped counts a dropped transaction.
func (m *Metrics) TransactionDropped(aesbus.Header, uint32) {
	m.dropped.Inc()
}

// RoundCommitted counts a datapath write.
func (m *Metrics) RoundCommitted(uint8, rijndael.Block, rijndael.Block) {
	m.rounds.Inc()
}

// Cycle counts an edge.
func (m *Metrics) Cycle(snap aesbus.Snapshot, stalled bool) {
	m.cycles.WithLabelValues(snap.State.String()).Inc()
	if stalled {
		m.stalls.Inc()
	}
}

// Sample is one gathered counter value.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Summary gathers every counter family from g, sorted by name and labels.
func Summary(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var samples []Sample
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), namespace+"_") {
			continue
		}

		for _, metric := range f.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}

			labels := make([]string, 0, len(metric.GetLabel()))
			for _, l := range metric.GetLabel() {
				labels = append(labels,
					l.GetName()+"="+l.GetValue())
			}

			samples = append(samples, Sample{
				Name:   f.GetName(),
				Labels: strings.Join(labels, ","),
				Value:  metric.GetCounter().GetValue(),
			})
		}
	}

	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].Labels < samples[j].Labels
	})

	return samples, nil
}

// Value returns the value of the sample with the given name and labels.
func Value(samples []Sample, name, labels string) (float64, bool) {
	for _, s := range samples {
		if s.Name == name && s.Labels == labels {
			return s.Value, true
		}
	}

	return 0, false
}
