package venueA

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testWatcher(self string) *OnChainWatcher {
	return New(Config{
		ExchangeContracts: []string{"0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"},
		SelfAddress:       self,
		Logger:            zap.NewNop(),
	})
}

func fillLog(orderHash common.Hash, maker, taker common.Address, makerAmt, takerAmt *big.Int) gethtypes.Log {
	data := make([]byte, 64)
	makerAmt.FillBytes(data[0:32])
	takerAmt.FillBytes(data[32:64])
	return gethtypes.Log{
		Topics: []common.Hash{
			orderFilledTopic,
			orderHash,
			common.BytesToHash(maker.Bytes()),
			common.BytesToHash(taker.Bytes()),
		},
		Data: data,
	}
}

func TestOnChainWatcher_DispatchesFillForSelf(t *testing.T) {
	self := common.HexToAddress("0x1111111111111111111111111111111111111111")
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	w := testWatcher(self.Hex())

	orderHash := common.HexToHash("0xabc123")
	ch, cancel := w.WaitForOrderFinal(orderHash.Hex())
	defer cancel()

	log := fillLog(orderHash, self, other, big.NewInt(5e18), big.NewInt(10e18))
	w.handleLog(log)

	select {
	case order := <-ch:
		require.Equal(t, orderHash.Hex(), order.OrderID)
		require.True(t, order.Status.IsTerminal())
	default:
		t.Fatal("expected a dispatched fill")
	}
}

func TestOnChainWatcher_IgnoresForeignOrders(t *testing.T) {
	self := common.HexToAddress("0x1111111111111111111111111111111111111111")
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	taker := common.HexToAddress("0x4444444444444444444444444444444444444444")
	w := testWatcher(self.Hex())

	orderHash := common.HexToHash("0xdef456")
	ch, cancel := w.WaitForOrderFinal(orderHash.Hex())
	defer cancel()

	w.handleLog(fillLog(orderHash, maker, taker, big.NewInt(1), big.NewInt(1)))

	select {
	case <-ch:
		t.Fatal("should not have dispatched a fill for a foreign order")
	default:
	}
}

func TestOnChainWatcher_CancelRemovesWaiter(t *testing.T) {
	w := testWatcher("0x1111111111111111111111111111111111111111")
	orderHash := common.HexToHash("0x1")
	_, cancel := w.WaitForOrderFinal(orderHash.Hex())
	cancel()

	w.mu.Lock()
	_, stillPresent := w.waiters[orderHash.Hex()]
	w.mu.Unlock()
	require.False(t, stillPresent)
}
