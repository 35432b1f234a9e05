package mempool

import (
	"math"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/satcity/pkg/types"
)

func chips(i uint64) types.Transaction {
	return types.TransferChips(types.NewAssetID(1, i), types.NewAssetID(1, i+1), uint256.NewInt(i))
}

func TestFIFO(t *testing.T) {
	q := New()
	for i := uint64(0); i < 5; i++ {
		q.AddTransaction(chips(i))
	}

	got := q.GetTransactions(3)
	require.Len(t, got, 3)
	for i, tx := range got {
		require.Equal(t, chips(uint64(i)), tx)
	}
	require.Equal(t, 2, q.Len())

	rest := q.GetTransactions(10)
	require.Equal(t, []types.Transaction{chips(3), chips(4)}, rest)
	require.Zero(t, q.Len())
}

func TestDrainAll(t *testing.T) {
	q := New()
	q.AddTransaction(chips(1))
	q.AddTransaction(chips(1)) // duplicates are kept

	require.Len(t, q.GetTransactions(math.MaxInt), 2)
	require.Zero(t, q.Len())
	require.Empty(t, q.GetTransactions(1))
}

func TestNegativeCount(t *testing.T) {
	q := New()
	q.AddTransaction(chips(1))

	require.Empty(t, q.GetTransactions(-1))
	require.Equal(t, 1, q.Len())
}

func TestRequeue(t *testing.T) {
	q := New()
	for i := uint64(0); i < 4; i++ {
		q.AddTransaction(chips(i))
	}

	batch := q.GetTransactions(2)
	q.AddTransaction(chips(9))
	q.Requeue(batch)

	require.Equal(t, []types.Transaction{chips(0), chips(1), chips(2), chips(3), chips(9)}, q.GetTransactions(math.MaxInt))
}

func TestConcurrentAdd(t *testing.T) {
	q := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.AddTransaction(chips(uint64(j)))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 800, q.Len())
}

func TestMetrics(t *testing.T) {
	m, err := GetPrometheusMetrics("satcity", "instance", "test")
	require.NoError(t, err)
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	q := New(WithMetrics(m))
	q.AddTransaction(chips(1))
	q.AddTransaction(chips(2))
	q.GetTransactions(1)

	require.Equal(t, float64(1), testutil.ToFloat64(m.pendingTxs))
	require.Equal(t, float64(2), testutil.ToFloat64(m.addedTxs))
	require.Equal(t, float64(1), testutil.ToFloat64(m.drainedTxs))

	_, err = GetPrometheusMetrics("satcity", "dangling")
	require.Error(t, err)
}
