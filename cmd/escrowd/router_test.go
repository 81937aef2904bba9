package main

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"agentpay/core/state"
	"agentpay/native/bank"
	"agentpay/native/escrow"
	"agentpay/native/reputation"
	"agentpay/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *escrow.Engine, *bank.Ledger) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	vault := addrFromByte(0x06)
	ledger := bank.NewLedger(manager, vault)
	rep := reputation.NewLedger(manager)

	engine := escrow.NewEngine()
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetReputation(rep)
	require.NoError(t, engine.SetIdentities(addrFromByte(0x03), addrFromByte(0x04), addrFromByte(0x05), vault))

	server := httptest.NewServer(newRouter(engine, rep))
	t.Cleanup(server.Close)
	return server, engine, ledger
}

func addrFromByte(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestRouterJobLookup(t *testing.T) {
	server, engine, ledger := newTestServer(t)
	employer := addrFromByte(0x01)
	worker := addrFromByte(0x02)
	require.NoError(t, ledger.Mint(employer, big.NewInt(1_000_000_000)))

	deadline := int64(2_000_000_000)
	engine.SetNowFunc(func() int64 { return deadline - 24*3600 })
	job, err := engine.Create(employer, worker, big.NewInt(100_000_000), big.NewInt(1_000_000), "index dataset", "complete index", deadline)
	require.NoError(t, err)

	var view jobView
	status := getJSON(t, server.URL+"/v1/jobs/1", &view)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, job.ID, view.ID)
	require.Equal(t, "100000000", view.Amount)
	require.Equal(t, "created", view.Status)

	var missing map[string]string
	status = getJSON(t, server.URL+"/v1/jobs/42", &missing)
	require.Equal(t, http.StatusNotFound, status)

	var badID map[string]string
	status = getJSON(t, server.URL+"/v1/jobs/not-a-number", &badID)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestRouterIndexesAndDispute(t *testing.T) {
	server, engine, ledger := newTestServer(t)
	employer := addrFromByte(0x01)
	worker := addrFromByte(0x02)
	require.NoError(t, ledger.Mint(employer, big.NewInt(1_000_000_000)))

	deadline := int64(2_000_000_000)
	engine.SetNowFunc(func() int64 { return deadline - 24*3600 })
	job, err := engine.Create(employer, worker, big.NewInt(100_000_000), big.NewInt(1_000_000), "task", "criteria", deadline)
	require.NoError(t, err)
	require.NoError(t, engine.RaiseDispute(employer, job.ID, "work never delivered"))

	var listing map[string][]uint64
	status := getJSON(t, server.URL+"/v1/employers/0x0101010101010101010101010101010101010101/jobs", &listing)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []uint64{job.ID}, listing["jobs"])

	var dispute disputeView
	status = getJSON(t, server.URL+"/v1/jobs/1/dispute", &dispute)
	require.Equal(t, http.StatusOK, status)
	require.True(t, dispute.Active)
	require.Equal(t, "work never delivered", dispute.Reason)

	var none map[string]string
	status = getJSON(t, server.URL+"/v1/jobs/2/dispute", &none)
	require.Equal(t, http.StatusNotFound, status)
}

func TestRouterReputation(t *testing.T) {
	server, engine, ledger := newTestServer(t)
	employer := addrFromByte(0x01)
	worker := addrFromByte(0x02)
	require.NoError(t, ledger.Mint(employer, big.NewInt(1_000_000_000)))

	deadline := int64(2_000_000_000)
	engine.SetNowFunc(func() int64 { return deadline - 24*3600 })
	job, err := engine.Create(employer, worker, big.NewInt(100_000_000), big.NewInt(1_000_000), "task", "criteria", deadline)
	require.NoError(t, err)
	require.NoError(t, engine.ManualRelease(employer, job.ID))

	var view reputationView
	status := getJSON(t, server.URL+"/v1/reputation/0x0202020202020202020202020202020202020202", &view)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, uint32(10), view.Score)
	require.Equal(t, uint64(1), view.CompletedJobs)

	// Unknown participants report a zero score, not an error.
	status = getJSON(t, server.URL+"/v1/reputation/0x0909090909090909090909090909090909090909", &view)
	require.Equal(t, http.StatusOK, status)
	require.Zero(t, view.Score)
}

func TestRouterFeeQuote(t *testing.T) {
	server, _, _ := newTestServer(t)

	var quote feeQuoteView
	status := getJSON(t, server.URL+"/v1/fees/quote?amount=10000000000&complexity=high&worker=0x0202020202020202020202020202020202020202", &quote)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "120000000", quote.Fee)

	var bad map[string]string
	status = getJSON(t, server.URL+"/v1/fees/quote?amount=abc&complexity=high&worker=0x0202020202020202020202020202020202020202", &bad)
	require.Equal(t, http.StatusBadRequest, status)
}
