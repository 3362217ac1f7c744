package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vietddude/unstuck/internal/core/domain"
)

var addr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func cleanRun() *domain.RunResult {
	return &domain.RunResult{
		RunID:      "run-clean",
		Before:     domain.NewNonceGapReport(addr, 10, 10),
		StartedAt:  time.Unix(1700000000, 0).UTC(),
		FinishedAt: time.Unix(1700000001, 0).UTC(),
	}
}

func partialRun() *domain.RunResult {
	ok := domain.NewReplacementAttempt(10, big.NewInt(30))
	_ = ok.MarkSubmitted("0xaaa")
	_ = ok.MarkConfirmed(101)

	failed := domain.NewReplacementAttempt(11, big.NewInt(30))
	_ = failed.MarkFailed("submit: rpc error -32000: already known")

	last := domain.NewReplacementAttempt(12, big.NewInt(30))
	_ = last.MarkSubmitted("0xccc")
	_ = last.MarkConfirmed(103)

	return &domain.RunResult{
		RunID:   "run-partial",
		ChainID: 31337,
		Before:  domain.NewNonceGapReport(addr, 10, 13),
		Balance: big.NewInt(1_000_000),
		Quote: &domain.GasQuote{
			BaseFee:        big.NewInt(20),
			ReplacementFee: big.NewInt(30),
			Source:         domain.FeeSourceNode,
		},
		Attempts:   []*domain.ReplacementAttempt{ok, failed, last},
		After:      domain.NewNonceGapReport(addr, 13, 13),
		StartedAt:  time.Unix(1700000000, 0).UTC(),
		FinishedAt: time.Unix(1700000030, 0).UTC(),
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	r, err := New(FormatText, &buf)
	require.NoError(t, err)
	assert.IsType(t, &TextReporter{}, r)

	r, err = New("", &buf)
	require.NoError(t, err)
	assert.IsType(t, &TextReporter{}, r)

	r, err = New(FormatJSONL, &buf)
	require.NoError(t, err)
	assert.IsType(t, &JSONReporter{}, r)

	_, err = New("xml", &buf)
	assert.Error(t, err)
}

func TestTextReporter_Clean(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextReporter(&buf).Report(cleanRun()))

	out := buf.String()
	assert.Contains(t, out, "no stuck transactions")
	assert.Contains(t, out, "latest 10, pending 10, gap 0")
	assert.NotContains(t, out, "NONCE")
}

func TestTextReporter_PartialFailure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextReporter(&buf).Report(partialRun()))

	out := buf.String()
	assert.Contains(t, out, "10..12")
	assert.Contains(t, out, "base 20 wei, replacement 30 wei (node)")
	assert.Contains(t, out, "already known")
	assert.Contains(t, out, "0xaaa")
	assert.Contains(t, out, "latest 13, pending 13, gap 0")
	assert.Contains(t, out, "2 confirmed, 1 failed, residual gap 0")
}

func TestTextReporter_DryRun(t *testing.T) {
	result := partialRun()
	result.DryRun = true
	result.Attempts = nil
	result.After = nil

	var buf bytes.Buffer
	require.NoError(t, NewTextReporter(&buf).Report(result))
	assert.Contains(t, buf.String(), "Dry run: 3 replacement(s) not sent")
}

func TestTextReporter_UnknownAfter(t *testing.T) {
	result := partialRun()
	result.After = nil

	var buf bytes.Buffer
	require.NoError(t, NewTextReporter(&buf).Report(result))
	assert.Contains(t, buf.String(), "After:")
	assert.Contains(t, buf.String(), "unknown")
	assert.Contains(t, buf.String(), "residual gap 3")
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONReporter(&buf).Report(partialRun()))

	var lines []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(buf.String()))
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		lines = append(lines, rec)
	}
	require.Len(t, lines, 5)

	assert.Equal(t, "run", lines[0]["type"])
	assert.Equal(t, "run-partial", lines[0]["run_id"])
	assert.Equal(t, "30", lines[0]["replacement_fee"])
	assert.Equal(t, float64(3), lines[0]["gap"])

	assert.Equal(t, "attempt", lines[2]["type"])
	assert.Equal(t, float64(11), lines[2]["nonce"])
	assert.Equal(t, "failed", lines[2]["status"])
	assert.Contains(t, lines[2]["reason"], "already known")

	assert.Equal(t, "summary", lines[4]["type"])
	assert.Equal(t, float64(0), lines[4]["residual_gap"])
	assert.Equal(t, float64(2), lines[4]["confirmed"])
	assert.Equal(t, float64(1), lines[4]["failed"])
}

func TestJSONReporter_Clean(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONReporter(&buf).Report(cleanRun()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"stuck_nonces":[]`)
	assert.Contains(t, lines[1], `"residual_gap":0`)
}
