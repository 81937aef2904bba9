package escrow

import (
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// JobStatus represents the lifecycle states of an escrowed job.
type JobStatus uint8

const (
	JobCreated JobStatus = iota
	JobWorkSubmitted
	JobVerified
	JobReleased
	JobDisputed
	JobRefunded
	JobCancelled
)

// Valid reports whether the status value is within the supported range.
func (s JobStatus) Valid() bool {
	switch s {
	case JobCreated, JobWorkSubmitted, JobVerified, JobReleased, JobDisputed, JobRefunded, JobCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobReleased, JobRefunded, JobCancelled:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer for logs and event attributes.
func (s JobStatus) String() string {
	switch s {
	case JobCreated:
		return "created"
	case JobWorkSubmitted:
		return "work_submitted"
	case JobVerified:
		return "verified"
	case JobReleased:
		return "released"
	case JobDisputed:
		return "disputed"
	case JobRefunded:
		return "refunded"
	case JobCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Job captures one escrow instance binding an employer, a worker, a custodied
// amount plus fee, and a lifecycle status. Identity fields are immutable after
// creation; submission and verification fields mutate along the lifecycle.
type Job struct {
	ID                   uint64
	Employer             [20]byte
	Worker               [20]byte
	Amount               *big.Int
	Fee                  *big.Int
	TaskDescription      string
	VerificationCriteria string
	WorkHash             [32]byte
	WorkURL              string
	Status               JobStatus
	CreatedAt            int64
	Deadline             int64
	SubmittedAt          int64
	AIVerified           bool
	VerificationScore    uint8
	VerificationReason   string
}

// Total returns the full custody held for the job: payout amount plus fee.
func (j *Job) Total() *big.Int {
	if j == nil {
		return big.NewInt(0)
	}
	total := big.NewInt(0)
	if j.Amount != nil {
		total.Add(total, j.Amount)
	}
	if j.Fee != nil {
		total.Add(total, j.Fee)
	}
	return total
}

// Clone returns a deep copy of the job so callers can safely mutate the copy
// without affecting the stored instance.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	clone := *j
	if j.Amount != nil {
		clone.Amount = new(big.Int).Set(j.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	if j.Fee != nil {
		clone.Fee = new(big.Int).Set(j.Fee)
	} else {
		clone.Fee = big.NewInt(0)
	}
	return &clone
}

// SanitizeJob validates and normalises the supplied job record, returning a
// cloned instance with non-nil amount fields. The original value is not
// mutated.
func SanitizeJob(j *Job) (*Job, error) {
	if j == nil {
		return nil, fmt.Errorf("escrow: nil job")
	}
	clone := j.Clone()
	if clone.Amount.Sign() < 0 {
		return nil, fmt.Errorf("escrow: job amount must be non-negative")
	}
	if clone.Fee.Sign() < 0 {
		return nil, fmt.Errorf("escrow: job fee must be non-negative")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("escrow: invalid job status: %d", clone.Status)
	}
	if clone.Employer == ([20]byte{}) || clone.Worker == ([20]byte{}) {
		return nil, fmt.Errorf("escrow: job identities required")
	}
	clone.TaskDescription = strings.TrimSpace(clone.TaskDescription)
	clone.VerificationCriteria = strings.TrimSpace(clone.VerificationCriteria)
	return clone, nil
}

// Dispute tracks the community vote opened when a job's normal path is
// contested. The voted set is append-only for the life of the record.
type Dispute struct {
	JobID            uint64
	Active           bool
	RaisedAt         int64
	RaisedBy         [20]byte
	Reason           string
	VotesForEmployer uint64
	VotesForWorker   uint64
	HasVoted         map[[20]byte]bool
}

// Clone returns a deep copy of the dispute record.
func (d *Dispute) Clone() *Dispute {
	if d == nil {
		return nil
	}
	clone := *d
	clone.HasVoted = make(map[[20]byte]bool, len(d.HasVoted))
	for voter, voted := range d.HasVoted {
		clone.HasVoted[voter] = voted
	}
	return &clone
}

// ComputeWorkHash derives the canonical content fingerprint for a deliverable
// from its locator and optional raw payload.
func ComputeWorkHash(workURL string, payload []byte) ([32]byte, error) {
	trimmed := strings.TrimSpace(workURL)
	if trimmed == "" {
		return [32]byte{}, fmt.Errorf("escrow: work url required")
	}
	digest := ethcrypto.Keccak256([]byte(trimmed), payload)
	var hash [32]byte
	copy(hash[:], digest)
	return hash, nil
}
