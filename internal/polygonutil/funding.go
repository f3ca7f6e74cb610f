// Package polygonutil reads the funder's USDC position on Polygon.
package polygonutil

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	orderconfig "github.com/polymarket/go-order-utils/pkg/config"

	"poly-flowbot/internal/amount"
)

var USDCTokenAddress = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")

var (
	erc20BalanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	erc20AllowanceSelector = crypto.Keccak256([]byte("allowance(address,address)"))[:4]
)

// Spender is a contract the funder must approve to trade.
type Spender struct {
	Name    string
	Address common.Address
}

// ExchangeSpenders returns the CTF exchange and neg-risk exchange for chainID.
func ExchangeSpenders(chainID int64) ([]Spender, error) {
	contracts, err := orderconfig.GetContracts(chainID)
	if err != nil {
		return nil, fmt.Errorf("contracts for chain %d: %w", chainID, err)
	}
	return []Spender{
		{Name: "exchange", Address: contracts.Exchange},
		{Name: "neg_risk_exchange", Address: contracts.NegRiskExchange},
	}, nil
}

// Allowance is one spender's USDC allowance, saturated at MaxUint64.
type Allowance struct {
	Spender Spender
	Micros  uint64
}

// Funding is a balance/allowance snapshot.
type Funding struct {
	Owner         common.Address
	BalanceMicros uint64
	Allowances    []Allowance
}

// Spendable is the amount the exchanges can pull: the balance capped by the
// smallest allowance.
func (f Funding) Spendable() uint64 {
	out := f.BalanceMicros
	for _, a := range f.Allowances {
		if a.Micros < out {
			out = a.Micros
		}
	}
	return out
}

// Describe renders the snapshot as key=value pairs for log lines.
func (f Funding) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "funder=%s usdc_balance=%s", f.Owner.Hex(), amount.Format(f.BalanceMicros))
	for _, a := range f.Allowances {
		fmt.Fprintf(&b, " allowance_%s=%s", a.Spender.Name, formatAllowance(a.Micros))
	}
	return b.String()
}

func formatAllowance(m uint64) string {
	if m == math.MaxUint64 {
		return "max"
	}
	return amount.Format(m)
}

// Probe checks funding over a Polygon RPC endpoint.
type Probe struct {
	RPCURL   string
	Owner    common.Address
	Spenders []Spender
}

// contractCaller is the ethclient method the probe uses.
type contractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

func (p Probe) Check(ctx context.Context) (Funding, error) {
	if strings.TrimSpace(p.RPCURL) == "" {
		return Funding{}, fmt.Errorf("polygon RPC URL missing")
	}
	client, err := ethclient.DialContext(ctx, p.RPCURL)
	if err != nil {
		return Funding{}, fmt.Errorf("dial polygon RPC: %w", err)
	}
	defer client.Close()
	return p.check(ctx, client)
}

func (p Probe) check(ctx context.Context, caller contractCaller) (Funding, error) {
	if (p.Owner == common.Address{}) {
		return Funding{}, fmt.Errorf("owner address missing")
	}
	call := func(data []byte) (*big.Int, error) {
		out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &USDCTokenAddress, Data: data}, nil)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("empty result")
		}
		return new(big.Int).SetBytes(out), nil
	}

	bal, err := call(balanceOfCalldata(p.Owner))
	if err != nil {
		return Funding{}, fmt.Errorf("usdc balanceOf(%s): %w", p.Owner.Hex(), err)
	}
	if !bal.IsUint64() {
		return Funding{}, fmt.Errorf("usdc balance overflows uint64")
	}

	f := Funding{Owner: p.Owner, BalanceMicros: bal.Uint64()}
	seen := make(map[common.Address]struct{}, len(p.Spenders))
	for _, sp := range p.Spenders {
		if _, ok := seen[sp.Address]; ok || (sp.Address == common.Address{}) {
			continue
		}
		seen[sp.Address] = struct{}{}
		a, err := call(allowanceCalldata(p.Owner, sp.Address))
		if err != nil {
			return Funding{}, fmt.Errorf("usdc allowance(%s,%s): %w", p.Owner.Hex(), sp.Address.Hex(), err)
		}
		f.Allowances = append(f.Allowances, Allowance{Spender: sp, Micros: saturatingUint64(a)})
	}
	return f, nil
}

func balanceOfCalldata(owner common.Address) []byte {
	data := make([]byte, 0, 4+32)
	data = append(data, erc20BalanceOfSelector...)
	return append(data, common.LeftPadBytes(owner.Bytes(), 32)...)
}

func allowanceCalldata(owner, spender common.Address) []byte {
	data := make([]byte, 0, 4+64)
	data = append(data, erc20AllowanceSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)
	return append(data, common.LeftPadBytes(spender.Bytes(), 32)...)
}

// saturatingUint64 clamps allowances, which are often max(uint256).
func saturatingUint64(x *big.Int) uint64 {
	if x == nil || x.Sign() <= 0 {
		return 0
	}
	if x.IsUint64() {
		return x.Uint64()
	}
	return math.MaxUint64
}

// RPCURLFromEnv reads the Polygon RPC endpoint. ok is false when unset.
func RPCURLFromEnv() (url string, ok bool, err error) {
	url = strings.TrimSpace(firstNonEmpty(os.Getenv("RPC_URL"), os.Getenv("POLYGON_RPC_URL"), os.Getenv("RPC_WS_URL")))
	if url == "" {
		return "", false, nil
	}
	if !strings.HasPrefix(url, "wss") && !strings.HasPrefix(url, "http") {
		return "", false, fmt.Errorf("polygon RPC URL must be wss://... or http(s)://..., got %q", url)
	}
	if strings.Contains(url, "YOUR_KEY") {
		return "", false, fmt.Errorf("polygon RPC URL still contains placeholder YOUR_KEY")
	}
	return url, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
