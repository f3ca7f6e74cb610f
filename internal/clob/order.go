package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"math/rand/v2"
	"net/http"
	"strconv"

	orderbuilder "github.com/polymarket/go-order-utils/pkg/builder"
	ordermodel "github.com/polymarket/go-order-utils/pkg/model"
)

const zeroAddressHex = "0x0000000000000000000000000000000000000000"

// LimitOrderArgs describes one resting order. Price and size are 1e6-scaled:
// PriceMicros is USDC per share, SizeMicros is shares.
type LimitOrderArgs struct {
	TokenID       string
	Side          Side
	PriceMicros   uint64
	SizeMicros    uint64
	OrderType     OrderType // defaults to GTC
	UseServerTime bool
}

// SignedLimitOrder is a signed order plus the values it was quantized to.
type SignedLimitOrder struct {
	SignedOrder *ordermodel.SignedOrder
	Price       string
	Size        string
	TickSize    string
	NegRisk     bool
}

// OrderResponse is the /order reply. Success alone is not enough; the
// exchange can report success=true together with an errorMsg.
type OrderResponse struct {
	Success            bool     `json:"success"`
	ErrorMsg           string   `json:"errorMsg"`
	OrderID            string   `json:"orderID"`
	Status             string   `json:"status"`
	MakingAmount       string   `json:"makingAmount"`
	TakingAmount       string   `json:"takingAmount"`
	TransactionsHashes []string `json:"transactionsHashes"`
}

func (r OrderResponse) Accepted() bool { return r.Success && r.ErrorMsg == "" }

type signedOrderPayload struct {
	DeferExec bool      `json:"deferExec"`
	Order     orderJSON `json:"order"`
	Owner     string    `json:"owner"`
	OrderType OrderType `json:"orderType"`
}

type orderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          Side   `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// CreateSignedLimitOrder quantizes args to the token's tick size, picks the
// exchange contract from the neg-risk flag and signs the order.
func (c *Client) CreateSignedLimitOrder(ctx context.Context, args LimitOrderArgs, saltGenerator func() int64) (*SignedLimitOrder, error) {
	if c.privateKey == nil {
		return nil, fmt.Errorf("private key required to sign orders")
	}
	if !args.Side.Valid() {
		return nil, fmt.Errorf("invalid side %q", args.Side)
	}

	tickSize, err := c.GetTickSize(ctx, args.TokenID)
	if err != nil {
		return nil, fmt.Errorf("tick size: %w", err)
	}
	rc, scale, err := roundingForTickSize(tickSize)
	if err != nil {
		return nil, err
	}
	priceTicks := priceTicksFromMicros(args.PriceMicros, scale)
	maker, taker, err := limitOrderAmounts(args.Side, new(big.Int).SetUint64(args.SizeMicros), priceTicks, scale, rc)
	if err != nil {
		return nil, err
	}

	feeBps, err := c.GetFeeRateBps(ctx, args.TokenID)
	if err != nil {
		return nil, fmt.Errorf("fee rate: %w", err)
	}
	negRisk, err := c.GetNegRisk(ctx, args.TokenID)
	if err != nil {
		return nil, fmt.Errorf("neg risk: %w", err)
	}
	contract := ordermodel.CTFExchange
	if negRisk {
		contract = ordermodel.NegRiskCTFExchange
	}

	sideEnum := ordermodel.BUY
	shares := taker
	if args.Side == SideSell {
		sideEnum = ordermodel.SELL
		shares = maker
	}

	od := &ordermodel.OrderData{
		Maker:         c.funder.Hex(),
		Taker:         zeroAddressHex,
		TokenId:       args.TokenID,
		MakerAmount:   maker.String(),
		TakerAmount:   taker.String(),
		FeeRateBps:    strconv.Itoa(feeBps),
		Nonce:         "0",
		Signer:        c.signer.Hex(),
		Expiration:    "0",
		Side:          sideEnum,
		SignatureType: ordermodel.SignatureType(c.signatureTy),
	}
	if saltGenerator == nil {
		saltGenerator = randomSalt
	}
	builder := orderbuilder.NewExchangeOrderBuilderImpl(big.NewInt(c.chainID), saltGenerator)
	signed, err := builder.BuildSignedOrder(c.privateKey, od, contract)
	if err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}

	return &SignedLimitOrder{
		SignedOrder: signed,
		Price:       formatDecimalUnits(priceTicks, rc.price),
		Size:        formatDecimalUnits(shares, collateralTokenDecimals),
		TickSize:    tickSize,
		NegRisk:     negRisk,
	}, nil
}

// randomSalt stays below 2^53 so the salt survives JSON number decoding.
func randomSalt() int64 { return rand.Int64N(1 << 53) }

// PlaceLimitOrder signs and posts a limit order in one call.
func (c *Client) PlaceLimitOrder(ctx context.Context, args LimitOrderArgs) (*OrderResponse, error) {
	if args.OrderType == "" {
		args.OrderType = OrderTypeGTC
	}
	order, err := c.CreateSignedLimitOrder(ctx, args, randomSalt)
	if err != nil {
		return nil, err
	}
	return c.PostSignedOrder(ctx, order.SignedOrder, args.OrderType, args.UseServerTime)
}

func (c *Client) PostSignedOrder(ctx context.Context, order *ordermodel.SignedOrder, orderType OrderType, useServerTime bool) (*OrderResponse, error) {
	body, err := c.BuildPostOrderBody(order, orderType)
	if err != nil {
		return nil, err
	}
	ts, err := c.timestampForAuth(ctx, useServerTime)
	if err != nil {
		return nil, err
	}
	headers, err := c.l2Headers(ts, http.MethodPost, "/order", body)
	if err != nil {
		return nil, err
	}

	var resp OrderResponse
	if err := c.do(ctx, http.MethodPost, "/order", nil, headers, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) BuildPostOrderBody(order *ordermodel.SignedOrder, orderType OrderType) ([]byte, error) {
	if order == nil {
		return nil, fmt.Errorf("order required")
	}
	c.mu.RLock()
	creds := c.creds
	c.mu.RUnlock()

	owner := ""
	if creds != nil {
		owner = creds.Key
	}

	side := SideBuy
	if order.Side != nil && order.Side.Int64() == int64(ordermodel.SELL) {
		side = SideSell
	}

	return json.Marshal(signedOrderPayload{
		Owner:     owner,
		OrderType: orderType,
		Order: orderJSON{
			Salt:          order.Salt.Int64(),
			Maker:         order.Maker.Hex(),
			Signer:        order.Signer.Hex(),
			Taker:         order.Taker.Hex(),
			TokenID:       order.TokenId.String(),
			MakerAmount:   order.MakerAmount.String(),
			TakerAmount:   order.TakerAmount.String(),
			Expiration:    order.Expiration.String(),
			Nonce:         order.Nonce.String(),
			FeeRateBps:    order.FeeRateBps.String(),
			Side:          side,
			SignatureType: int(order.SignatureType.Int64()),
			Signature:     fmt.Sprintf("0x%x", order.Signature),
		},
	})
}
