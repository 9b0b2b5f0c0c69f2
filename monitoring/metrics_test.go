package monitoring

import (
	"context"
	"testing"

	"github.com/maemowong/aesbus"
	"github.com/maemowong/aesbus/proto/rijndael"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountsOneEncryption(t *testing.T) {
	// WHAT: one full encryption shows up as 4 transactions and 15 rounds,
	// and every edge is accounted to exactly one state

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	c := aesbus.NewController(m)
	master, err := aesbus.NewMaster(c, aesbus.DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, master.Reset(ctx))

	var (
		key rijndael.Key
		pt  rijndael.Block
	)
	_, err = master.Encrypt(ctx, key, pt)
	require.NoError(t, err)

	samples, err := Summary(reg)
	require.NoError(t, err)

	for _, op := range []string{"LOAD_KEY", "LOAD_TEXT", "HASH",
		"WRITE_RESULT"} {

		v, ok := Value(samples, "aesbus_transactions_total",
			"opcode="+op)
		require.True(t, ok, op)
		require.Equal(t, 1.0, v, op)
	}

	rounds, ok := Value(samples, "aesbus_rounds_total", "")
	require.True(t, ok)
	require.Equal(t, float64(rijndael.NumRoundKeys), rounds)

	var total float64
	for _, s := range samples {
		if s.Name == "aesbus_cycles_total" {
			total += s.Value
		}
	}
	require.Equal(t, float64(c.Snapshot().Cycle), total)

	stalls, ok := Value(samples, "aesbus_stall_cycles_total", "")
	require.True(t, ok)
	require.Zero(t, stalls)
}

func TestMetrics_Dropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.TransactionDropped(aesbus.Header{Reserved: 1}, 0)
	m.TransactionDropped(aesbus.Header{Reserved: 2}, 0)

	families, err := reg.Gather()
	require.NoError(t, err)

	var dropped *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "aesbus_transactions_dropped_total" {
			dropped = f
		}
	}
	require.NotNil(t, dropped)
	require.Equal(t, 2.0, dropped.GetMetric()[0].GetCounter().GetValue())
}

func TestNewMetrics_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	require.Error(t, err)
}
