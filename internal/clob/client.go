package clob

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/0xfade/lagbot/internal/config"
	"github.com/0xfade/lagbot/internal/engine"
)

// Client talks to the Polymarket CLOB: order book reads (public) and order
// submission (L2 HMAC auth + EIP-712 signed payloads). Requests are
// rate-limited client-side.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	passphrase string
	signer     *Signer
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a CLOB client from config. A wallet private key is
// required for order signing.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.CLOBApiKey == "" || cfg.CLOBApiSecret == "" {
		return nil, fmt.Errorf("CLOB_API_KEY and CLOB_API_SECRET are required")
	}

	pkHex := strings.TrimPrefix(cfg.WalletPrivateKey, "0x")
	if pkHex == "" {
		return nil, fmt.Errorf("WALLET_PRIVATE_KEY is required for order signing")
	}
	pk, err := crypto.HexToECDSA(pkHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	var funder common.Address
	if cfg.FunderAddress != "" {
		funder = common.HexToAddress(cfg.FunderAddress)
	}
	signer := NewSigner(pk, funder, cfg.SignatureType)

	c := &Client{
		baseURL:    strings.TrimRight(cfg.CLOBBaseURL, "/"),
		apiKey:     cfg.CLOBApiKey,
		apiSecret:  cfg.CLOBApiSecret,
		passphrase: cfg.CLOBPassphrase,
		signer:     signer,
		httpClient: &http.Client{Timeout: 2 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(20), 40),
	}

	log.Info().Str("address", signer.Address().Hex()).Msg("💳 CLOB client initialized")
	return c, nil
}

// NewPublicClient builds a read-only client for the public book endpoints.
// Order submission requires the credentialed constructor.
func NewPublicClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(20), 40),
	}
}

// TopOfBook fetches the order book for a token and reduces it to the best
// level per side. Empty sides come back nil; an empty book is not an error.
func (c *Client) TopOfBook(ctx context.Context, tokenID string) (*engine.TopOfBook, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/book?token_id=%s", c.baseURL, tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("book fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("book lookup returned status %d", resp.StatusCode)
	}

	var book bookResponse
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, fmt.Errorf("failed to parse book: %w", err)
	}

	return reduceBook(book), nil
}

// reduceBook picks the best level per side. The CLOB returns bids ascending
// and asks descending, so the best level is scanned for rather than assumed.
func reduceBook(book bookResponse) *engine.TopOfBook {
	tob := &engine.TopOfBook{}

	for _, lvl := range book.Bids {
		price, err1 := decimal.NewFromString(lvl.Price)
		size, err2 := decimal.NewFromString(lvl.Size)
		if err1 != nil || err2 != nil || size.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if tob.Bid == nil || price.GreaterThan(tob.Bid.Price) {
			tob.Bid = &engine.PriceLevel{Price: price, Size: size}
		}
	}
	for _, lvl := range book.Asks {
		price, err1 := decimal.NewFromString(lvl.Price)
		size, err2 := decimal.NewFromString(lvl.Size)
		if err1 != nil || err2 != nil || size.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if tob.Ask == nil || price.LessThan(tob.Ask.Price) {
			tob.Ask = &engine.PriceLevel{Price: price, Size: size}
		}
	}

	return tob
}

// PlaceFOKLimit signs and submits a fill-or-kill limit order. The returned
// response reports matched or not; HTTP-level failure is an error.
func (c *Client) PlaceFOKLimit(ctx context.Context, tokenID string, side engine.OrderSide, size, price decimal.Decimal) (*OrderResponse, error) {
	sideInt := sideBuy
	if side == engine.OrderSideSell {
		sideInt = sideSell
	}

	order, err := c.signer.BuildOrder(tokenID, sideInt, price, size)
	if err != nil {
		return nil, err
	}
	signed, err := c.signer.Sign(order)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}

	payload := signed.APIPayload(c.apiKey, "FOK")
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.signRequest(req, http.MethodPost, "/order", body)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("api_time", time.Since(start)).
		RawJSON("response", respBody).
		Msg("CLOB order response")

	var orderResp OrderResponse
	if err := json.Unmarshal(respBody, &orderResp); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w, body: %s", err, string(respBody))
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &orderResp, fmt.Errorf("order rejected: %s - %s", orderResp.ErrorCode, orderResp.Message)
	}

	return &orderResp, nil
}

// signRequest adds the Level 2 auth headers. The signed message is
// timestamp + method + path + body, HMAC-SHA256 with the URL-safe base64
// decoded secret, matching py-clob-client.
func (c *Client) signRequest(req *http.Request, method, path string, body []byte) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	message := timestamp + method + path
	if len(body) > 0 {
		message += string(body)
	}

	secretBytes, err := base64.URLEncoding.DecodeString(c.apiSecret)
	if err != nil {
		padded := c.apiSecret
		if len(padded)%4 != 0 {
			padded += strings.Repeat("=", 4-len(padded)%4)
		}
		if secretBytes, err = base64.URLEncoding.DecodeString(padded); err != nil {
			secretBytes, _ = base64.StdEncoding.DecodeString(c.apiSecret)
		}
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(message))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", c.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", c.passphrase)
	req.Header.Set("POLY_ADDRESS", c.signer.Address().Hex())
}
