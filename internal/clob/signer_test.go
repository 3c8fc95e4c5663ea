package clob

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func newTestSigner(t *testing.T) *Signer {
	pk, err := crypto.HexToECDSA(testPrivateKey)
	require.NoError(t, err)
	return NewSigner(pk, common.Address{}, 0)
}

func TestBuildOrder_BuyAmounts(t *testing.T) {
	s := newTestSigner(t)

	// 50 shares at $0.50: pay 25 USDC, receive 50 shares
	order, err := s.BuildOrder("123456", sideBuy, decimal.NewFromFloat(0.50), decimal.NewFromInt(50))
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(25_000_000), order.MakerAmount)
	assert.Equal(t, big.NewInt(50_000_000), order.TakerAmount)
	assert.Equal(t, uint8(sideBuy), order.Side)
	assert.Equal(t, "123456", order.TokenID.String())
}

func TestBuildOrder_SellAmounts(t *testing.T) {
	s := newTestSigner(t)

	order, err := s.BuildOrder("123456", sideSell, decimal.NewFromFloat(0.56), decimal.NewFromInt(30))
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(30_000_000), order.MakerAmount)
	assert.Equal(t, big.NewInt(16_800_000), order.TakerAmount)
	assert.Equal(t, uint8(sideSell), order.Side)
}

func TestBuildOrder_TruncatesUSDCDust(t *testing.T) {
	s := newTestSigner(t)

	// 33.333333 shares at 0.51 = 16.99999983 USDC, truncated not rounded up
	order, err := s.BuildOrder("1", sideBuy, decimal.NewFromFloat(0.51), decimal.NewFromFloat(33.333333))
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(16_999_999), order.MakerAmount)
}

func TestBuildOrder_RejectsBadTokenID(t *testing.T) {
	s := newTestSigner(t)
	_, err := s.BuildOrder("not-a-number", sideBuy, decimal.NewFromFloat(0.5), decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestSign_ProducesRecoverableSignature(t *testing.T) {
	s := newTestSigner(t)

	order, err := s.BuildOrder("123456", sideBuy, decimal.NewFromFloat(0.50), decimal.NewFromInt(50))
	require.NoError(t, err)

	signed, err := s.Sign(order)
	require.NoError(t, err)

	// 0x + 65 bytes hex
	assert.Len(t, signed.Signature, 132)
	assert.Equal(t, "0x", signed.Signature[:2])
}

func TestSigner_FunderDefaultsToSigner(t *testing.T) {
	s := newTestSigner(t)
	order, err := s.BuildOrder("1", sideBuy, decimal.NewFromFloat(0.5), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, s.Address(), order.Maker)
	assert.Equal(t, s.Address(), order.Signer)
}

func TestAPIPayload_Shape(t *testing.T) {
	s := newTestSigner(t)

	order, err := s.BuildOrder("123456", sideSell, decimal.NewFromFloat(0.56), decimal.NewFromInt(30))
	require.NoError(t, err)
	signed, err := s.Sign(order)
	require.NoError(t, err)

	payload := signed.APIPayload("api-key-1", "FOK")

	assert.Equal(t, "api-key-1", payload["owner"])
	assert.Equal(t, "FOK", payload["orderType"])

	inner, ok := payload["order"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "SELL", inner["side"])
	assert.Equal(t, "123456", inner["tokenId"])
	assert.Equal(t, signed.Signature, inner["signature"])
}
