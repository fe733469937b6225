package txmgr

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBumpFees(t *testing.T) {
	tests := []struct {
		name             string
		prev, market     FeeParams
		pct              uint64
		wantTip, wantCap int64
	}{
		{
			name:    "bump over stale market",
			prev:    FeeParams{GasTipCap: big.NewInt(100), GasFeeCap: big.NewInt(200)},
			market:  FeeParams{GasTipCap: big.NewInt(10), GasFeeCap: big.NewInt(20)},
			pct:     15,
			wantTip: 115, wantCap: 230,
		},
		{
			name:    "rounds up",
			prev:    FeeParams{GasTipCap: big.NewInt(101), GasFeeCap: big.NewInt(201)},
			market:  FeeParams{GasTipCap: big.NewInt(0), GasFeeCap: big.NewInt(0)},
			pct:     10,
			wantTip: 112, wantCap: 222,
		},
		{
			name:    "market above bump wins",
			prev:    FeeParams{GasTipCap: big.NewInt(100), GasFeeCap: big.NewInt(200)},
			market:  FeeParams{GasTipCap: big.NewInt(500), GasFeeCap: big.NewInt(1000)},
			pct:     15,
			wantTip: 500, wantCap: 1000,
		},
		{
			name:    "fee cap never below tip",
			prev:    FeeParams{GasTipCap: big.NewInt(100), GasFeeCap: big.NewInt(100)},
			market:  FeeParams{GasTipCap: big.NewInt(300), GasFeeCap: big.NewInt(50)},
			pct:     15,
			wantTip: 300, wantCap: 300,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BumpFees(tt.prev, tt.market, tt.pct)
			assert.Equal(t, big.NewInt(tt.wantTip), got.GasTipCap)
			assert.Equal(t, big.NewInt(tt.wantCap), got.GasFeeCap)
		})
	}
}

func TestBumpFees_DoesNotMutateInputs(t *testing.T) {
	prev := FeeParams{GasTipCap: big.NewInt(100), GasFeeCap: big.NewInt(200)}
	market := FeeParams{GasTipCap: big.NewInt(500), GasFeeCap: big.NewInt(1000)}
	got := BumpFees(prev, market, 15)
	got.GasTipCap.SetInt64(1)
	assert.Equal(t, int64(100), prev.GasTipCap.Int64())
	assert.Equal(t, int64(500), market.GasTipCap.Int64())
}

func TestFeeTracker_CachesWithinInterval(t *testing.T) {
	chain := newFakeChain()
	clock := newTestClock()
	tracker := NewFeeTracker(chain, time.Minute, nil, nil)
	tracker.now = clock.Now
	ctx := context.Background()

	fees, err := tracker.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, gwei(1), fees.GasTipCap)
	_, err = tracker.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, chain.feeCalls)

	clock.Advance(2 * time.Minute)
	_, err = tracker.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, chain.feeCalls)
}

func TestFeeTracker_RefreshFailure(t *testing.T) {
	chain := newFakeChain()
	chain.feeErr = errors.New("rpc down")
	tracker := NewFeeTracker(chain, time.Minute, nil, nil)

	_, err := tracker.Refresh(context.Background())
	require.Error(t, err)

	chain.feeErr = nil
	_, err = tracker.Refresh(context.Background())
	require.NoError(t, err)

	chain.feeErr = errors.New("rpc down")
	fees, err := tracker.Refresh(context.Background())
	require.NoError(t, err, "a stale estimate is served when refresh fails")
	assert.Equal(t, gwei(2), fees.GasFeeCap)
}

func TestFeeTracker_RejectsInvalidEstimate(t *testing.T) {
	chain := newFakeChain()
	chain.fees = FeeParams{GasTipCap: big.NewInt(10), GasFeeCap: big.NewInt(5)}
	tracker := NewFeeTracker(chain, time.Minute, nil, nil)

	_, err := tracker.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrInvalidFees)
}

func TestFeeTracker_StartStop(t *testing.T) {
	tracker := NewFeeTracker(newFakeChain(), time.Hour, nil, nil)
	require.NoError(t, tracker.Start())
	require.NoError(t, tracker.Start())
	tracker.Stop()
	tracker.Stop()
}
