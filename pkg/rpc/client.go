// Package rpc talks JSON-RPC to the bitcoin node and the metashrew indexer.
package rpc

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

type Config struct {
	BitcoinURL   string
	MetashrewURL string
	Timeout      time.Duration
}

type Client struct {
	bitcoin   *gethrpc.Client
	metashrew *gethrpc.Client
	timeout   time.Duration
}

// Dial connects both endpoints. Credentials embedded in a URL are moved to
// a basic Authorization header.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	btc, err := dial(ctx, cfg.BitcoinURL)
	if err != nil {
		return nil, fmt.Errorf("bitcoin rpc: %w", err)
	}
	ms, err := dial(ctx, cfg.MetashrewURL)
	if err != nil {
		btc.Close()
		return nil, fmt.Errorf("metashrew rpc: %w", err)
	}
	return &Client{bitcoin: btc, metashrew: ms, timeout: cfg.Timeout}, nil
}

func dial(ctx context.Context, raw string) (*gethrpc.Client, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	var opts []gethrpc.ClientOption
	if u.User != nil {
		pass, _ := u.User.Password()
		token := base64.StdEncoding.EncodeToString([]byte(u.User.Username() + ":" + pass))
		opts = append(opts, gethrpc.WithHeader("Authorization", "Basic "+token))
		u.User = nil
	}
	return gethrpc.DialOptions(ctx, u.String(), opts...)
}

func (c *Client) Close() {
	c.bitcoin.Close()
	c.metashrew.Close()
}

func (c *Client) call(ctx context.Context, cli *gethrpc.Client, result any, method string, params ...any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := cli.CallContext(ctx, result, method, params...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// BitcoinCall is a raw call against the bitcoin node.
func (c *Client) BitcoinCall(ctx context.Context, result any, method string, params ...any) error {
	return c.call(ctx, c.bitcoin, result, method, params...)
}

// MetashrewCall is a raw call against the indexer.
func (c *Client) MetashrewCall(ctx context.Context, result any, method string, params ...any) error {
	return c.call(ctx, c.metashrew, result, method, params...)
}

func (c *Client) GetBlockCount(ctx context.Context) (uint64, error) {
	var n uint64
	err := c.BitcoinCall(ctx, &n, "getblockcount")
	return n, err
}

// GetRawTransaction returns the serialized transaction with the given id.
func (c *Client) GetRawTransaction(ctx context.Context, txid string) ([]byte, error) {
	var h string
	if err := c.BitcoinCall(ctx, &h, "getrawtransaction", txid); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("getrawtransaction: %w", err)
	}
	return raw, nil
}

// SendRawTransaction broadcasts a serialized transaction and returns its id.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	var txid string
	err := c.BitcoinCall(ctx, &txid, "sendrawtransaction", hex.EncodeToString(raw))
	return txid, err
}

// MetashrewHeight returns the indexer tip. The indexer may answer with a
// number or a decimal string.
func (c *Client) MetashrewHeight(ctx context.Context) (uint64, error) {
	var raw json.RawMessage
	if err := c.MetashrewCall(ctx, &raw, "metashrew_height"); err != nil {
		return 0, err
	}
	s := strings.Trim(string(raw), `"`)
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("metashrew_height: %w", err)
	}
	return n, nil
}

// MetashrewView runs a read-only view function at block ("latest" or a
// height).
func (c *Client) MetashrewView(ctx context.Context, view string, input []byte, block string) ([]byte, error) {
	var out hexutil.Bytes
	if err := c.MetashrewCall(ctx, &out, "metashrew_view", view, hexutil.Encode(input), block); err != nil {
		return nil, err
	}
	return out, nil
}
