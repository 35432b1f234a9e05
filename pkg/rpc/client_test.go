package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

/* ---------------- fixture server ---------------- */

type request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

// serve answers every call with results[method], echoing the request id.
func serve(t *testing.T, results map[string]json.RawMessage, seen chan<- *http.Request) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req request
		require.NoError(t, json.Unmarshal(body, &req))
		if seen != nil {
			seen <- r
		}

		w.Header().Set("Content-Type", "application/json")
		result, ok := results[req.Method]
		if !ok {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":-32601,"message":"Method not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + string(result) + `}`))
	}))
}

func fixture(t *testing.T, name string) json.RawMessage {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return b
}

/* ---------------- tests ---------------- */

func TestBitcoinCalls(t *testing.T) {
	seen := make(chan *http.Request, 4)
	srv := serve(t, map[string]json.RawMessage{
		"getblockcount":      json.RawMessage(`840000`),
		"getrawtransaction":  fixture(t, "getrawtransaction.json"),
		"sendrawtransaction": json.RawMessage(`"abcd"`),
	}, seen)
	defer srv.Close()

	u := "http://bitcoinrpc:secret@" + srv.Listener.Addr().String()
	cli, err := Dial(context.Background(), Config{BitcoinURL: u, MetashrewURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	defer cli.Close()

	n, err := cli.GetBlockCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(840000), n)

	r := <-seen
	user, pass, ok := r.BasicAuth()
	require.True(t, ok)
	require.Equal(t, "bitcoinrpc", user)
	require.Equal(t, "secret", pass)

	raw, err := cli.GetRawTransaction(context.Background(), "00")
	require.NoError(t, err)
	require.Equal(t, byte(0x02), raw[0])

	txid, err := cli.SendRawTransaction(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "abcd", txid)
}

func TestMetashrewCalls(t *testing.T) {
	srv := serve(t, map[string]json.RawMessage{
		"metashrew_height": json.RawMessage(`"880123"`),
		"metashrew_view":   json.RawMessage(`"0x1111"`),
	}, nil)
	defer srv.Close()

	cli, err := Dial(context.Background(), Config{BitcoinURL: srv.URL, MetashrewURL: srv.URL})
	require.NoError(t, err)
	defer cli.Close()

	h, err := cli.MetashrewHeight(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(880123), h)

	out, err := cli.MetashrewView(context.Background(), "simulate", []byte{0x61}, "latest")
	require.NoError(t, err)
	require.Equal(t, []byte{0x11, 0x11}, out)
}

func TestServerError(t *testing.T) {
	srv := serve(t, nil, nil)
	defer srv.Close()

	cli, err := Dial(context.Background(), Config{BitcoinURL: srv.URL, MetashrewURL: srv.URL})
	require.NoError(t, err)
	defer cli.Close()

	_, err = cli.GetBlockCount(context.Background())
	require.ErrorContains(t, err, "Method not found")
}
