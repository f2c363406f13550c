package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/storage"
)

func testPoint(attackID string, seq int, timestampMs int64) *domain.ImpactPoint {
	return &domain.ImpactPoint{
		AttackID:         attackID,
		Seq:              seq,
		Kind:             domain.ManipulationPump,
		TargetAsset:      "ETH",
		TimestampMs:      timestampMs,
		Block:            100,
		OriginalPrice:    2000,
		ManipulatedPrice: 2419.73,
		ImpactBps:        350,
	}
}

func TestImpactTimeseriesStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewImpactTimeseriesStore(conn)
	ctx := context.Background()

	points := []*domain.ImpactPoint{
		testPoint("attack-1", 0, 1000),
		testPoint("attack-1", 1, 2000),
		testPoint("attack-2", 0, 1500),
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByAttackID(ctx, "attack-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 0, got[0].Seq)
	require.Equal(t, 1, got[1].Seq)
	require.Equal(t, domain.ManipulationPump, got[0].Kind)
	require.InDelta(t, 2419.73, got[0].ManipulatedPrice, 1e-9)
	require.Equal(t, int64(350), got[0].ImpactBps)
}

func TestImpactTimeseriesStore_DuplicateRejected(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewImpactTimeseriesStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.ImpactPoint{testPoint("attack-1", 0, 1000)}))

	// Existing key
	err := store.InsertBulk(ctx, []*domain.ImpactPoint{testPoint("attack-1", 0, 1000)})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Intra-batch duplicate
	err = store.InsertBulk(ctx, []*domain.ImpactPoint{
		testPoint("attack-3", 0, 1000),
		testPoint("attack-3", 0, 2000),
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestImpactTimeseriesStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewImpactTimeseriesStore(conn)
	ctx := context.Background()

	var points []*domain.ImpactPoint
	for i := 0; i < 4; i++ {
		points = append(points, testPoint("attack-1", i, int64(1000*(i+1))))
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByTimeRange(ctx, 2000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(2000), got[0].TimestampMs)
	require.Equal(t, int64(3000), got[1].TimestampMs)
}
