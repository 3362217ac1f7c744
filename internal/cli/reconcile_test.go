package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vietddude/unstuck/internal/core/domain"
)

const hardhatKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcab3d8c2d7e7e4ff80"

var hardhatAddr = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

// fakeLedger is a JSON-RPC node that includes a transaction as soon as it is
// submitted, provided its nonce is the next one.
type fakeLedger struct {
	mu sync.Mutex

	chainID  *big.Int
	latest   uint64
	pending  uint64
	gasPrice int64

	receipts map[string]uint64
	sent     []*types.Transaction
	requests int
}

func newFakeLedger(latest, pending uint64, gasPrice int64) *fakeLedger {
	return &fakeLedger{
		chainID:  big.NewInt(31337),
		latest:   latest,
		pending:  pending,
		gasPrice: gasPrice,
		receipts: map[string]uint64{},
	}
}

func (l *fakeLedger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     any               `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests++

	result, rpcErr := l.handle(req.Method, req.Params)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != "" {
		resp["error"] = map[string]any{"code": -32000, "message": rpcErr}
	} else {
		resp["result"] = result
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (l *fakeLedger) handle(method string, params []json.RawMessage) (any, string) {
	param := func(i int) string {
		var s string
		if i < len(params) {
			_ = json.Unmarshal(params[i], &s)
		}
		return s
	}

	switch method {
	case "eth_chainId":
		return hexutil.EncodeBig(l.chainID), ""
	case "eth_getTransactionCount":
		if param(1) == "pending" {
			return hexutil.EncodeUint64(l.pending), ""
		}
		return hexutil.EncodeUint64(l.latest), ""
	case "eth_getBalance":
		return "0xde0b6b3a7640000", ""
	case "eth_gasPrice":
		return hexutil.EncodeBig(big.NewInt(l.gasPrice)), ""
	case "eth_sendRawTransaction":
		raw, err := hexutil.Decode(param(0))
		if err != nil {
			return nil, "invalid raw transaction"
		}
		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(raw); err != nil {
			return nil, "rlp: " + err.Error()
		}
		sender, err := types.Sender(types.LatestSignerForChainID(l.chainID), tx)
		if err != nil || tx.To() == nil || sender != *tx.To() {
			return nil, "invalid sender"
		}
		if tx.Nonce() != l.latest {
			return nil, fmt.Sprintf("nonce too high: next nonce %d, tx nonce %d", l.latest, tx.Nonce())
		}
		l.sent = append(l.sent, tx)
		l.receipts[tx.Hash().Hex()] = 100 + tx.Nonce()
		l.latest++
		if l.pending < l.latest {
			l.pending = l.latest
		}
		return tx.Hash().Hex(), ""
	case "eth_getTransactionReceipt":
		block, ok := l.receipts[strings.ToLower(param(0))]
		if !ok {
			return nil, ""
		}
		return map[string]any{
			"transactionHash": param(0),
			"blockNumber":     hexutil.EncodeUint64(block),
			"status":          "0x1",
		}, ""
	default:
		return nil, "method not found"
	}
}

// useConfig points the root command at a config file for the node at url.
func useConfig(t *testing.T, url string, format string, dry bool) {
	t.Helper()
	useConfigWithKey(t, url, hardhatKey, format, dry)
}

// useConfigWithKey is useConfig with an explicit account key; empty omits it.
func useConfigWithKey(t *testing.T, url, key string, format string, dry bool) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
node:
  url: "%s"
account:
  private_key: "%s"
replacement:
  receipt_poll_interval: 10ms
retry:
  max_attempts: 2
  initial_delay: 10ms
  max_delay: 20ms
`, url, key)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	oldPath, oldFormat, oldDry := cfgPath, outputFormat, dryRun
	cfgPath, outputFormat, dryRun = path, format, dry
	t.Cleanup(func() {
		cfgPath, outputFormat, dryRun = oldPath, oldFormat, oldDry
	})
}

func readJSONLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		records = append(records, rec)
	}
	return records
}

func TestReconcileMain_ResolvesGap(t *testing.T) {
	ledger := newFakeLedger(10, 13, 20)
	srv := httptest.NewServer(ledger)
	defer srv.Close()
	useConfig(t, srv.URL, "jsonl", false)

	var out bytes.Buffer
	code := reconcileMain(context.Background(), rootCmd, &out)
	require.Equal(t, 0, code, out.String())

	require.Len(t, ledger.sent, 3)
	for i, tx := range ledger.sent {
		assert.Equal(t, uint64(10+i), tx.Nonce())
		assert.Equal(t, int64(30), tx.GasPrice().Int64())
		assert.Equal(t, uint64(21000), tx.Gas())
		assert.Equal(t, 0, tx.Value().Sign())
		assert.Equal(t, hardhatAddr, *tx.To())
	}

	records := readJSONLines(t, out.String())
	require.Len(t, records, 5)
	assert.Equal(t, "run", records[0]["type"])
	assert.Equal(t, float64(31337), records[0]["chain_id"])
	summary := records[4]
	assert.Equal(t, "summary", summary["type"])
	assert.Equal(t, float64(3), summary["confirmed"])
	assert.Equal(t, float64(0), summary["residual_gap"])
	assert.Equal(t, float64(13), summary["latest_nonce"])
}

func TestReconcileMain_Clean(t *testing.T) {
	ledger := newFakeLedger(10, 10, 20)
	srv := httptest.NewServer(ledger)
	defer srv.Close()
	useConfig(t, srv.URL, "text", false)

	var out bytes.Buffer
	code := reconcileMain(context.Background(), rootCmd, &out)

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "no stuck transactions")
	assert.Empty(t, ledger.sent)
}

func TestReconcileMain_DryRun(t *testing.T) {
	ledger := newFakeLedger(4, 6, 20)
	srv := httptest.NewServer(ledger)
	defer srv.Close()
	useConfig(t, srv.URL, "text", true)

	var out bytes.Buffer
	code := reconcileMain(context.Background(), rootCmd, &out)

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Dry run")
	assert.Empty(t, ledger.sent)
}

func TestReconcileMain_NodeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	useConfig(t, url, "text", false)

	var out bytes.Buffer
	code := reconcileMain(context.Background(), rootCmd, &out)

	assert.Equal(t, 1, code)
	assert.Empty(t, out.String())
}

func TestReconcileMain_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		url  bool
		key  string
	}{
		{"no private key", true, ""},
		{"malformed private key", true, "0xabcd"},
		{"no rpc url", false, hardhatKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PRIVATE_KEY", "")
			t.Setenv("RPC_URL", "")

			ledger := newFakeLedger(10, 13, 20)
			srv := httptest.NewServer(ledger)
			defer srv.Close()

			url := ""
			if tt.url {
				url = srv.URL
			}
			useConfigWithKey(t, url, tt.key, "jsonl", false)

			var out bytes.Buffer
			code := reconcileMain(context.Background(), rootCmd, &out)

			assert.Equal(t, 1, code)
			assert.Empty(t, out.String())
			assert.Zero(t, ledger.requests, "no request may reach the node")
		})
	}
}

func TestNewApp_WrapsKeyError(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "")
	useConfigWithKey(t, "http://127.0.0.1:8545", "0x"+strings.Repeat("zz", 32), "text", false)

	_, err := newApp(rootCmd)

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "account.private_key", cfgErr.Field)
}

func TestReconcileMain_BadFormat(t *testing.T) {
	ledger := newFakeLedger(1, 1, 20)
	srv := httptest.NewServer(ledger)
	defer srv.Close()
	useConfig(t, srv.URL, "xml", false)

	var out bytes.Buffer
	assert.Equal(t, 1, reconcileMain(context.Background(), rootCmd, &out))
}
