package clob

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
)

// Polymarket CTF Exchange contract addresses (Polygon Mainnet)
const (
	polygonChainID     = 137
	ctfExchangeAddress = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	zeroAddress        = "0x0000000000000000000000000000000000000000"
)

// Order sides in the on-chain order struct
const (
	sideBuy  = 0
	sideSell = 1
)

// ExchangeOrder is the CTF Exchange order struct that gets signed
type ExchangeOrder struct {
	Salt          *big.Int
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          uint8
	SignatureType uint8
}

// SignedOrder pairs an order with its EIP-712 signature
type SignedOrder struct {
	Order     *ExchangeOrder
	Signature string
}

// Signer produces EIP-712 signed exchange orders
type Signer struct {
	privateKey    *ecdsa.PrivateKey
	signerAddress common.Address
	funderAddress common.Address
	signatureType int
}

// NewSigner creates an order signer. The funder is the address holding
// collateral; it defaults to the signing address.
func NewSigner(privateKey *ecdsa.PrivateKey, funder common.Address, signatureType int) *Signer {
	signerAddr := crypto.PubkeyToAddress(privateKey.PublicKey)
	if funder == (common.Address{}) {
		funder = signerAddr
	}
	return &Signer{
		privateKey:    privateKey,
		signerAddress: signerAddr,
		funderAddress: funder,
		signatureType: signatureType,
	}
}

// Address returns the signing address
func (s *Signer) Address() common.Address {
	return s.signerAddress
}

// BuildOrder constructs an unsigned exchange order. Amounts are expressed in
// 6-decimal token units: USDC truncated (never exceed the budget), shares
// rounded to 4 decimals.
func (s *Signer) BuildOrder(tokenID string, side int, price, size decimal.Decimal) (*ExchangeOrder, error) {
	tokenIDInt, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token id %q", tokenID)
	}

	usdc := size.Mul(price)
	var makerAmount, takerAmount *big.Int
	if side == sideBuy {
		makerAmount = usdcUnits(usdc)
		takerAmount = shareUnits(size)
	} else {
		makerAmount = shareUnits(size)
		takerAmount = usdcUnits(usdc)
	}

	return &ExchangeOrder{
		Salt:          big.NewInt(rand.Int63()),
		Maker:         s.funderAddress,
		Signer:        s.signerAddress,
		Taker:         common.HexToAddress(zeroAddress),
		TokenID:       tokenIDInt,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    big.NewInt(0),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(1000),
		Side:          uint8(side),
		SignatureType: uint8(s.signatureType),
	}, nil
}

// Sign signs an order with the EIP-712 digest of the CTF Exchange domain
func (s *Signer) Sign(order *ExchangeOrder) (*SignedOrder, error) {
	typedData := buildTypedData(order)

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(messageHash)))
	hash := crypto.Keccak256Hash(rawData)

	signature, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	if signature[64] < 27 {
		signature[64] += 27
	}

	return &SignedOrder{
		Order:     order,
		Signature: fmt.Sprintf("0x%x", signature),
	}, nil
}

// APIPayload converts a signed order to the CLOB submission format. Owner is
// the API key, not the maker address, and the signature rides inside the
// order object.
func (o *SignedOrder) APIPayload(apiKey, orderType string) map[string]interface{} {
	sideStr := "BUY"
	if o.Order.Side == sideSell {
		sideStr = "SELL"
	}

	return map[string]interface{}{
		"order": map[string]interface{}{
			"salt":          o.Order.Salt.Int64(),
			"maker":         o.Order.Maker.Hex(),
			"signer":        o.Order.Signer.Hex(),
			"taker":         o.Order.Taker.Hex(),
			"tokenId":       o.Order.TokenID.String(),
			"makerAmount":   o.Order.MakerAmount.String(),
			"takerAmount":   o.Order.TakerAmount.String(),
			"expiration":    o.Order.Expiration.String(),
			"nonce":         o.Order.Nonce.String(),
			"feeRateBps":    o.Order.FeeRateBps.String(),
			"side":          sideStr,
			"signatureType": int(o.Order.SignatureType),
			"signature":     o.Signature,
		},
		"owner":     apiKey,
		"orderType": orderType,
		"postOnly":  false,
	}
}

func buildTypedData(order *ExchangeOrder) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": {
				{Name: "salt", Type: "uint256"},
				{Name: "maker", Type: "address"},
				{Name: "signer", Type: "address"},
				{Name: "taker", Type: "address"},
				{Name: "tokenId", Type: "uint256"},
				{Name: "makerAmount", Type: "uint256"},
				{Name: "takerAmount", Type: "uint256"},
				{Name: "expiration", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "feeRateBps", Type: "uint256"},
				{Name: "side", Type: "uint8"},
				{Name: "signatureType", Type: "uint8"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              "Polymarket CTF Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(polygonChainID),
			VerifyingContract: ctfExchangeAddress,
		},
		Message: apitypes.TypedDataMessage{
			"salt":          order.Salt.String(),
			"maker":         order.Maker.Hex(),
			"signer":        order.Signer.Hex(),
			"taker":         order.Taker.Hex(),
			"tokenId":       order.TokenID.String(),
			"makerAmount":   order.MakerAmount.String(),
			"takerAmount":   order.TakerAmount.String(),
			"expiration":    order.Expiration.String(),
			"nonce":         order.Nonce.String(),
			"feeRateBps":    order.FeeRateBps.String(),
			"side":          fmt.Sprintf("%d", order.Side),
			"signatureType": fmt.Sprintf("%d", order.SignatureType),
		},
	}
}

// usdcUnits truncates a USDC amount to 6-decimal units
func usdcUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(6).Truncate(0).BigInt()
}

// shareUnits rounds a share amount to 4 decimals, then scales to 6-decimal units
func shareUnits(amount decimal.Decimal) *big.Int {
	return amount.Round(4).Shift(6).Truncate(0).BigInt()
}
