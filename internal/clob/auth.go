package clob

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const clobAuthMessage = "This message attests that I control the given wallet"

var (
	eip712DomainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId)"))
	clobAuthDomainName   = crypto.Keccak256Hash([]byte("ClobAuthDomain"))
	clobAuthDomainVer    = crypto.Keccak256Hash([]byte("1"))
	clobAuthTypeHash     = crypto.Keccak256Hash([]byte("ClobAuth(address address,string timestamp,uint256 nonce,string message)"))

	bytes32Ty = mustABIType("bytes32")
	addressTy = mustABIType("address")
	uint256Ty = mustABIType("uint256")
)

func mustABIType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

// l1Headers authenticate api key creation with an EIP-712 wallet signature.
func (c *Client) l1Headers(timestamp int64, nonce uint64) (http.Header, error) {
	if c.privateKey == nil {
		return nil, fmt.Errorf("private key required for L1 auth")
	}
	sig, err := signClobAuth(c.privateKey, c.chainID, timestamp, nonce)
	if err != nil {
		return nil, err
	}
	h := make(http.Header)
	h.Set("POLY_ADDRESS", c.signer.Hex())
	h.Set("POLY_SIGNATURE", sig)
	h.Set("POLY_TIMESTAMP", strconv.FormatInt(timestamp, 10))
	h.Set("POLY_NONCE", strconv.FormatUint(nonce, 10))
	return h, nil
}

// l2Headers authenticate trading calls with an HMAC over the request.
func (c *Client) l2Headers(timestamp int64, method, requestPath string, body []byte) (http.Header, error) {
	c.mu.RLock()
	creds := c.creds
	c.mu.RUnlock()
	if creds == nil {
		return nil, fmt.Errorf("api creds not set")
	}
	sig, err := hmacSignature(creds.Secret, timestamp, method, requestPath, body)
	if err != nil {
		return nil, err
	}
	h := make(http.Header)
	h.Set("POLY_ADDRESS", c.signer.Hex())
	h.Set("POLY_SIGNATURE", sig)
	h.Set("POLY_TIMESTAMP", strconv.FormatInt(timestamp, 10))
	h.Set("POLY_API_KEY", creds.Key)
	h.Set("POLY_PASSPHRASE", creds.Passphrase)
	return h, nil
}

func clobAuthDigest(signer common.Address, chainID int64, timestamp int64, nonce uint64) (common.Hash, error) {
	domain, err := abi.Arguments{{Type: bytes32Ty}, {Type: bytes32Ty}, {Type: bytes32Ty}, {Type: uint256Ty}}.Pack(
		eip712DomainTypeHash,
		clobAuthDomainName,
		clobAuthDomainVer,
		big.NewInt(chainID),
	)
	if err != nil {
		return common.Hash{}, err
	}

	// Dynamic string members are encoded as keccak256(value).
	message, err := abi.Arguments{{Type: bytes32Ty}, {Type: addressTy}, {Type: bytes32Ty}, {Type: uint256Ty}, {Type: bytes32Ty}}.Pack(
		clobAuthTypeHash,
		signer,
		crypto.Keccak256Hash([]byte(strconv.FormatInt(timestamp, 10))),
		new(big.Int).SetUint64(nonce),
		crypto.Keccak256Hash([]byte(clobAuthMessage)),
	)
	if err != nil {
		return common.Hash{}, err
	}

	raw := make([]byte, 0, 66)
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, crypto.Keccak256(domain)...)
	raw = append(raw, crypto.Keccak256(message)...)
	return crypto.Keccak256Hash(raw), nil
}

func signClobAuth(pk *ecdsa.PrivateKey, chainID int64, timestamp int64, nonce uint64) (string, error) {
	digest, err := clobAuthDigest(crypto.PubkeyToAddress(pk.PublicKey), chainID, timestamp, nonce)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest.Bytes(), pk)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return "0x" + common.Bytes2Hex(sig), nil
}

// sanitizeBase64Secret accepts base64url secrets and drops stray symbols,
// matching the reference clob clients.
func sanitizeBase64Secret(secret string) string {
	secret = strings.TrimSpace(secret)
	secret = strings.NewReplacer("-", "+", "_", "/").Replace(secret)

	var b strings.Builder
	b.Grow(len(secret) + 3)
	for i := 0; i < len(secret); i++ {
		ch := secret[i]
		if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '+' || ch == '/' || ch == '=' {
			b.WriteByte(ch)
		}
	}
	out := b.String()
	if rem := len(out) % 4; rem != 0 {
		out += strings.Repeat("=", 4-rem)
	}
	return out
}

// hmacSignature signs timestamp+method+path+body and returns url-safe base64
// with padding kept.
func hmacSignature(secret string, timestamp int64, method, requestPath string, body []byte) (string, error) {
	key, err := base64.StdEncoding.DecodeString(sanitizeBase64Secret(secret))
	if err != nil {
		return "", fmt.Errorf("decode base64 secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(method))
	mac.Write([]byte(requestPath))
	if body != nil {
		mac.Write(body)
	}
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}
