package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"agentpay/native/escrow"
	"agentpay/native/fees"
	"agentpay/native/reputation"
)

type jobView struct {
	ID                   uint64 `json:"id"`
	Employer             string `json:"employer"`
	Worker               string `json:"worker"`
	Amount               string `json:"amount"`
	Fee                  string `json:"fee"`
	TaskDescription      string `json:"taskDescription"`
	VerificationCriteria string `json:"verificationCriteria"`
	WorkHash             string `json:"workHash,omitempty"`
	WorkURL              string `json:"workUrl,omitempty"`
	Status               string `json:"status"`
	CreatedAt            int64  `json:"createdAt"`
	Deadline             int64  `json:"deadline"`
	SubmittedAt          int64  `json:"submittedAt,omitempty"`
	AIVerified           bool   `json:"aiVerified"`
	VerificationScore    uint8  `json:"verificationScore"`
	VerificationReason   string `json:"verificationReason,omitempty"`
}

type disputeView struct {
	JobID            uint64 `json:"jobId"`
	Active           bool   `json:"active"`
	RaisedAt         int64  `json:"raisedAt"`
	RaisedBy         string `json:"raisedBy"`
	Reason           string `json:"reason"`
	VotesForEmployer uint64 `json:"votesForEmployer"`
	VotesForWorker   uint64 `json:"votesForWorker"`
}

type feeQuoteView struct {
	Amount string `json:"amount"`
	Fee    string `json:"fee"`
}

type reputationView struct {
	Address       string `json:"address"`
	Score         uint32 `json:"score"`
	CompletedJobs uint64 `json:"completedJobs"`
}

func newJobView(j *escrow.Job) jobView {
	view := jobView{
		ID:                   j.ID,
		Employer:             "0x" + hex.EncodeToString(j.Employer[:]),
		Worker:               "0x" + hex.EncodeToString(j.Worker[:]),
		Amount:               j.Amount.String(),
		Fee:                  j.Fee.String(),
		TaskDescription:      j.TaskDescription,
		VerificationCriteria: j.VerificationCriteria,
		WorkURL:              j.WorkURL,
		Status:               j.Status.String(),
		CreatedAt:            j.CreatedAt,
		Deadline:             j.Deadline,
		SubmittedAt:          j.SubmittedAt,
		AIVerified:           j.AIVerified,
		VerificationScore:    j.VerificationScore,
		VerificationReason:   j.VerificationReason,
	}
	if j.WorkHash != ([32]byte{}) {
		view.WorkHash = hex.EncodeToString(j.WorkHash[:])
	}
	return view
}

func newRouter(engine *escrow.Engine, rep *reputation.Ledger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/v1/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(req, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid job id")
			return
		}
		job, err := engine.Job(id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newJobView(job))
	})

	r.Get("/v1/jobs/{id}/dispute", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(req, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid job id")
			return
		}
		dispute, ok, err := engine.DisputeOf(id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "no dispute for job")
			return
		}
		writeJSON(w, http.StatusOK, disputeView{
			JobID:            dispute.JobID,
			Active:           dispute.Active,
			RaisedAt:         dispute.RaisedAt,
			RaisedBy:         "0x" + hex.EncodeToString(dispute.RaisedBy[:]),
			Reason:           dispute.Reason,
			VotesForEmployer: dispute.VotesForEmployer,
			VotesForWorker:   dispute.VotesForWorker,
		})
	})

	r.Get("/v1/employers/{addr}/jobs", func(w http.ResponseWriter, req *http.Request) {
		listJobs(w, req, engine.JobsByEmployer)
	})

	r.Get("/v1/workers/{addr}/jobs", func(w http.ResponseWriter, req *http.Request) {
		listJobs(w, req, engine.JobsByWorker)
	})

	r.Get("/v1/reputation/{addr}", func(w http.ResponseWriter, req *http.Request) {
		addr, err := parseAddrParam(chi.URLParam(req, "addr"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid address")
			return
		}
		score, err := rep.Score(addr)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		completed, err := rep.CompletedJobs(addr)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reputationView{
			Address:       "0x" + hex.EncodeToString(addr[:]),
			Score:         score,
			CompletedJobs: completed,
		})
	})

	r.Get("/v1/fees/quote", func(w http.ResponseWriter, req *http.Request) {
		query := req.URL.Query()
		amount, ok := new(big.Int).SetString(query.Get("amount"), 10)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
		complexity, err := fees.ParseComplexity(query.Get("complexity"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid complexity")
			return
		}
		worker, err := parseAddrParam(query.Get("worker"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid worker address")
			return
		}
		crossDomain := query.Get("crossDomain") == "true"
		fee, err := engine.QuoteFee(amount, complexity, worker, crossDomain)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, feeQuoteView{Amount: amount.String(), Fee: fee.String()})
	})

	return r
}

func listJobs(w http.ResponseWriter, req *http.Request, lookup func([20]byte) ([]uint64, error)) {
	addr, err := parseAddrParam(chi.URLParam(req, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	ids, err := lookup(addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"jobs": ids})
}

func parseAddrParam(raw string) ([20]byte, error) {
	if !common.IsHexAddress(raw) {
		return [20]byte{}, errors.New("invalid hex address")
	}
	return common.HexToAddress(raw), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, escrow.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
