package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"agentpay/core/events"
	"agentpay/core/types"
	"agentpay/native/fees"
)

var (
	errNilState      = errors.New("escrow engine: state not configured")
	errNilLedger     = errors.New("escrow engine: value ledger not configured")
	errNilReputation = errors.New("escrow engine: reputation ledger not configured")

	// ErrJobNotFound marks lookups against unknown job ids.
	ErrJobNotFound = errors.New("escrow engine: job not found")
	// ErrUnauthorized marks callers lacking the identity an operation requires.
	ErrUnauthorized = errors.New("escrow engine: unauthorized caller")
	// ErrInvalidState marks operations attempted outside their required
	// lifecycle state.
	ErrInvalidState = errors.New("escrow engine: invalid job state")
	// ErrValidation marks malformed operation inputs.
	ErrValidation = errors.New("escrow engine: invalid input")
	// ErrDeadlinePassed marks submissions after the job deadline.
	ErrDeadlinePassed = errors.New("escrow engine: deadline passed")
	// ErrDeadlineNotReached marks refunds attempted before the deadline.
	ErrDeadlineNotReached = errors.New("escrow engine: deadline not reached")
	// ErrTransferFailed marks value-ledger transfers that returned failure.
	ErrTransferFailed = errors.New("escrow engine: transfer failed")
)

// Reputation deltas applied on settlement outcomes. The penalty is double the
// reward so a failed delivery costs more than a success earns.
const (
	reputationReward  uint32 = 10
	reputationPenalty uint32 = 20
)

// ValueLedger is the fungible-asset transfer primitive the engine custodies
// value through. A false return without an error is an ordinary failure (for
// example insufficient balance) and aborts the enclosing operation.
type ValueLedger interface {
	TransferFrom(from, to [20]byte, amount *big.Int) (bool, error)
	Transfer(to [20]byte, amount *big.Int) (bool, error)
	BalanceOf(addr [20]byte) (*big.Int, error)
}

// ReputationLedger records settlement outcomes per participant.
type ReputationLedger interface {
	Score(addr [20]byte) (uint32, error)
	Increase(addr [20]byte, delta uint32) (uint32, error)
	Decrease(addr [20]byte, delta uint32) (uint32, error)
	RecordCompletion(addr [20]byte) (uint64, error)
}

type engineState interface {
	JobPut(*Job) error
	JobGet(id uint64) (*Job, bool, error)
	NextJobID() (uint64, error)
	JobsAppendEmployer(addr [20]byte, id uint64) error
	JobsAppendWorker(addr [20]byte, id uint64) error
	JobsByEmployer(addr [20]byte) ([]uint64, error)
	JobsByWorker(addr [20]byte) ([]uint64, error)
	DisputePut(*Dispute) error
	DisputeGet(jobID uint64) (*Dispute, bool, error)
}

// Params bounds job creation and the dispute voting window. Durations are
// seconds.
type Params struct {
	MinEscrowAmount *big.Int
	MaxEscrowAmount *big.Int
	MinDeadline     int64
	MaxDeadline     int64
	DisputeWindow   int64
}

// DefaultParams returns the production limits: escrows between 1 and one
// million six-decimal USDC units, deadlines between one hour and thirty days,
// and a seven day dispute window.
func DefaultParams() Params {
	return Params{
		MinEscrowAmount: big.NewInt(1_000_000),
		MaxEscrowAmount: new(big.Int).SetUint64(1_000_000_000_000),
		MinDeadline:     3600,
		MaxDeadline:     30 * 24 * 3600,
		DisputeWindow:   7 * 24 * 3600,
	}
}

// Validate ensures the parameter set is internally consistent.
func (p Params) Validate() error {
	if p.MinEscrowAmount == nil || p.MinEscrowAmount.Sign() <= 0 {
		return fmt.Errorf("escrow: min escrow amount must be positive")
	}
	if p.MaxEscrowAmount == nil || p.MaxEscrowAmount.Cmp(p.MinEscrowAmount) < 0 {
		return fmt.Errorf("escrow: max escrow amount below minimum")
	}
	if p.MinDeadline <= 0 || p.MaxDeadline < p.MinDeadline {
		return fmt.Errorf("escrow: deadline bounds invalid")
	}
	if p.DisputeWindow <= 0 {
		return fmt.Errorf("escrow: dispute window must be positive")
	}
	return nil
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

type lockTable struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func (t *lockTable) lock(id uint64) func() {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = make(map[uint64]*sync.Mutex)
	}
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	t.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Engine owns the per-job escrow state machine: authorization rules, deadline
// enforcement, payout and refund execution, and the dispute sub-protocol.
// Operations on the same job are mutually exclusive; operations on distinct
// jobs proceed independently. Deadlines and voting windows are checked lazily
// against the engine clock at call time.
type Engine struct {
	state      engineState
	ledger     ValueLedger
	reputation ReputationLedger
	emitter    events.Emitter
	params     Params
	feePolicy  fees.Policy
	nowFn      func() int64
	jobs       lockTable

	identityMu   sync.RWMutex
	verifier     [20]byte
	admin        [20]byte
	feeCollector [20]byte
	vault        [20]byte
}

// NewEngine creates an escrow engine with default parameters and a no-op
// emitter. Callers wire state, ledgers and identities before use.
func NewEngine() *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		params:    DefaultParams(),
		feePolicy: fees.DefaultPolicy(),
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the value-transfer primitive custodying escrowed funds.
func (e *Engine) SetLedger(ledger ValueLedger) { e.ledger = ledger }

// SetReputation configures the reputation ledger updated on settlements.
func (e *Engine) SetReputation(ledger ReputationLedger) { e.reputation = ledger }

// SetParams overrides the engine limits. Invalid parameter sets are rejected.
func (e *Engine) SetParams(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	e.params = params
	return nil
}

// SetFeePolicy overrides the fee policy used for quotes.
func (e *Engine) SetFeePolicy(policy fees.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	e.feePolicy = policy.Clone()
	return nil
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetIdentities wires the trusted identities: the verifier allowed to attest
// work, the protocol admin, the fee collector, and the custody vault.
func (e *Engine) SetIdentities(verifier, admin, feeCollector, vault [20]byte) error {
	if verifier == ([20]byte{}) || admin == ([20]byte{}) || feeCollector == ([20]byte{}) || vault == ([20]byte{}) {
		return fmt.Errorf("%w: identities must be non-zero", ErrValidation)
	}
	e.identityMu.Lock()
	defer e.identityMu.Unlock()
	e.verifier = verifier
	e.admin = admin
	e.feeCollector = feeCollector
	e.vault = vault
	return nil
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) verifierIdentity() [20]byte {
	e.identityMu.RLock()
	defer e.identityMu.RUnlock()
	return e.verifier
}

func (e *Engine) adminIdentity() [20]byte {
	e.identityMu.RLock()
	defer e.identityMu.RUnlock()
	return e.admin
}

func (e *Engine) feeCollectorIdentity() [20]byte {
	e.identityMu.RLock()
	defer e.identityMu.RUnlock()
	return e.feeCollector
}

func (e *Engine) vaultIdentity() [20]byte {
	e.identityMu.RLock()
	defer e.identityMu.RUnlock()
	return e.vault
}

func (e *Engine) ensureWired() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if e.reputation == nil {
		return errNilReputation
	}
	return nil
}

func (e *Engine) loadJob(id uint64) (*Job, error) {
	job, ok, err := e.state.JobGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func cloneOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// QuoteFee runs the fee pipeline for a prospective job, resolving the worker's
// current reputation from the ledger.
func (e *Engine) QuoteFee(amount *big.Int, complexity fees.Complexity, worker [20]byte, crossDomain bool) (*big.Int, error) {
	if err := e.ensureWired(); err != nil {
		return nil, err
	}
	score, err := e.reputation.Score(worker)
	if err != nil {
		return nil, err
	}
	return fees.Calculate(e.feePolicy, amount, complexity, score, crossDomain)
}

// Create pulls amount+fee from the employer into custody and persists the new
// job atomically: a failed pull leaves no record, a failed persist returns the
// pulled funds. Returns the stored job.
func (e *Engine) Create(employer, worker [20]byte, amount, fee *big.Int, description, criteria string, deadline int64) (*Job, error) {
	if err := e.ensureWired(); err != nil {
		return nil, err
	}
	if employer == ([20]byte{}) {
		return nil, fmt.Errorf("%w: employer identity required", ErrValidation)
	}
	if worker == ([20]byte{}) {
		return nil, fmt.Errorf("%w: worker identity required", ErrValidation)
	}
	if worker == employer {
		return nil, fmt.Errorf("%w: worker must differ from employer", ErrValidation)
	}
	amt := cloneOrZero(amount)
	if amt.Cmp(e.params.MinEscrowAmount) < 0 || amt.Cmp(e.params.MaxEscrowAmount) > 0 {
		return nil, fmt.Errorf("%w: amount outside escrow bounds", ErrValidation)
	}
	jobFee := cloneOrZero(fee)
	if jobFee.Sign() < 0 {
		return nil, fmt.Errorf("%w: fee must be non-negative", ErrValidation)
	}
	trimmedDescription := strings.TrimSpace(description)
	trimmedCriteria := strings.TrimSpace(criteria)
	if trimmedDescription == "" || trimmedCriteria == "" {
		return nil, fmt.Errorf("%w: description and criteria required", ErrValidation)
	}
	now := e.now()
	if deadline < now+e.params.MinDeadline || deadline > now+e.params.MaxDeadline {
		return nil, fmt.Errorf("%w: deadline outside allowed window", ErrValidation)
	}

	id, err := e.state.NextJobID()
	if err != nil {
		return nil, err
	}
	total := new(big.Int).Add(amt, jobFee)
	ok, err := e.ledger.TransferFrom(employer, e.vaultIdentity(), total)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: custody pull rejected", ErrTransferFailed)
	}

	job := &Job{
		ID:                   id,
		Employer:             employer,
		Worker:               worker,
		Amount:               amt,
		Fee:                  jobFee,
		TaskDescription:      trimmedDescription,
		VerificationCriteria: trimmedCriteria,
		Status:               JobCreated,
		CreatedAt:            now,
		Deadline:             deadline,
	}
	if err := e.persistNewJob(job); err != nil {
		// Return the custody pull so a storage failure cannot strand
		// the employer's funds.
		if returned, txErr := e.ledger.Transfer(employer, total); txErr != nil || !returned {
			return nil, fmt.Errorf("escrow engine: store failed (%v) and custody return failed", err)
		}
		return nil, err
	}
	e.emit(newJobCreatedEvent(job))
	return job.Clone(), nil
}

func (e *Engine) persistNewJob(job *Job) error {
	if err := e.state.JobPut(job); err != nil {
		return err
	}
	if err := e.state.JobsAppendEmployer(job.Employer, job.ID); err != nil {
		return err
	}
	return e.state.JobsAppendWorker(job.Worker, job.ID)
}

// SubmitWork records the worker's deliverable fingerprint and locator and
// moves the job to WorkSubmitted. Only the job's worker may submit, only from
// Created, and only while the deadline has not passed.
func (e *Engine) SubmitWork(caller [20]byte, jobID uint64, workHash [32]byte, workURL string) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	unlock := e.jobs.lock(jobID)
	defer unlock()

	job, err := e.loadJob(jobID)
	if err != nil {
		return err
	}
	if caller != job.Worker {
		return fmt.Errorf("%w: only the worker may submit", ErrUnauthorized)
	}
	if job.Status != JobCreated {
		return fmt.Errorf("%w: cannot submit in state %s", ErrInvalidState, job.Status)
	}
	if e.now() > job.Deadline {
		return ErrDeadlinePassed
	}
	if workHash == ([32]byte{}) {
		return fmt.Errorf("%w: work hash required", ErrValidation)
	}
	trimmedURL := strings.TrimSpace(workURL)
	if trimmedURL == "" {
		return fmt.Errorf("%w: work url required", ErrValidation)
	}
	job.WorkHash = workHash
	job.WorkURL = trimmedURL
	job.SubmittedAt = e.now()
	job.Status = JobWorkSubmitted
	if err := e.state.JobPut(job); err != nil {
		return err
	}
	e.emit(newWorkSubmittedEvent(job))
	return nil
}

// Verify records the trusted verifier's attestation. A passing attestation
// settles the job immediately; a failing one returns it to Created so the
// worker may resubmit before the deadline.
func (e *Engine) Verify(caller [20]byte, jobID uint64, passed bool, score uint8, reason string) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	unlock := e.jobs.lock(jobID)
	defer unlock()

	job, err := e.loadJob(jobID)
	if err != nil {
		return err
	}
	if caller != e.verifierIdentity() {
		return fmt.Errorf("%w: only the verifier may attest", ErrUnauthorized)
	}
	if job.Status != JobWorkSubmitted {
		return fmt.Errorf("%w: cannot verify in state %s", ErrInvalidState, job.Status)
	}
	if score > 100 {
		return fmt.Errorf("%w: score must be at most 100", ErrValidation)
	}
	job.AIVerified = passed
	job.VerificationScore = score
	job.VerificationReason = strings.TrimSpace(reason)
	if !passed {
		job.Status = JobCreated
		if err := e.state.JobPut(job); err != nil {
			return err
		}
		e.emit(newVerifiedEvent(job, false))
		return nil
	}
	job.Status = JobVerified
	if err := e.settle(job); err != nil {
		return err
	}
	e.emit(newVerifiedEvent(job, true))
	return nil
}

// ManualRelease lets the employer settle early without verifier involvement,
// from Created or WorkSubmitted.
func (e *Engine) ManualRelease(caller [20]byte, jobID uint64) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	unlock := e.jobs.lock(jobID)
	defer unlock()

	job, err := e.loadJob(jobID)
	if err != nil {
		return err
	}
	if caller != job.Employer {
		return fmt.Errorf("%w: only the employer may release", ErrUnauthorized)
	}
	if job.Status != JobCreated && job.Status != JobWorkSubmitted {
		return fmt.Errorf("%w: cannot release in state %s", ErrInvalidState, job.Status)
	}
	job.Status = JobVerified
	return e.settle(job)
}

// settle pays the worker and fee collector, persists the Released state, then
// records reputations and the worker's completion. A failed transfer or a
// failed persist claws every payout already made back into the vault, so a job
// that did not reach Released never keeps its disbursement.
func (e *Engine) settle(job *Job) error {
	if job.Status != JobVerified {
		return fmt.Errorf("%w: settle requires verified state", ErrInvalidState)
	}
	amount := cloneOrZero(job.Amount)
	fee := cloneOrZero(job.Fee)
	ok, err := e.ledger.Transfer(job.Worker, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: worker payout rejected", ErrTransferFailed)
	}
	if fee.Sign() > 0 {
		ok, err := e.ledger.Transfer(e.feeCollectorIdentity(), fee)
		if err != nil || !ok {
			if clawErr := e.reclaim(job.Worker, amount); clawErr != nil {
				return fmt.Errorf("%w: fee payout failed and worker payout stranded: %v", ErrTransferFailed, clawErr)
			}
			if err != nil {
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
			return fmt.Errorf("%w: fee payout rejected", ErrTransferFailed)
		}
	}
	job.Status = JobReleased
	if err := e.state.JobPut(job); err != nil {
		job.Status = JobVerified
		var clawErr error
		if fee.Sign() > 0 {
			clawErr = e.reclaim(e.feeCollectorIdentity(), fee)
		}
		if clawErr == nil {
			clawErr = e.reclaim(job.Worker, amount)
		}
		if clawErr != nil {
			return fmt.Errorf("escrow engine: store failed (%v) and payout return failed: %v", err, clawErr)
		}
		return err
	}
	if _, err := e.reputation.Increase(job.Employer, reputationReward); err != nil {
		return err
	}
	if _, err := e.reputation.Increase(job.Worker, reputationReward); err != nil {
		return err
	}
	if _, err := e.reputation.RecordCompletion(job.Worker); err != nil {
		return err
	}
	e.emit(newReleasedEvent(job))
	return nil
}

// reclaim pulls a compensating amount back into the vault, treating a rejected
// transfer the same as a failed one.
func (e *Engine) reclaim(from [20]byte, amount *big.Int) error {
	ok, err := e.ledger.TransferFrom(from, e.vaultIdentity(), amount)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("reclaim rejected")
	}
	return nil
}

// Refund returns the full custody to the employer once the deadline has
// elapsed on an unsubmitted job. Callable by the employer or the admin. The
// worker is penalized for non-delivery.
func (e *Engine) Refund(caller [20]byte, jobID uint64) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	unlock := e.jobs.lock(jobID)
	defer unlock()

	job, err := e.loadJob(jobID)
	if err != nil {
		return err
	}
	if caller != job.Employer && caller != e.adminIdentity() {
		return fmt.Errorf("%w: only the employer or admin may refund", ErrUnauthorized)
	}
	if job.Status != JobCreated {
		return fmt.Errorf("%w: cannot refund in state %s", ErrInvalidState, job.Status)
	}
	if e.now() <= job.Deadline {
		return ErrDeadlineNotReached
	}
	ok, err := e.ledger.Transfer(job.Employer, job.Total())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: refund rejected", ErrTransferFailed)
	}
	job.Status = JobRefunded
	if err := e.state.JobPut(job); err != nil {
		if clawErr := e.reclaim(job.Employer, job.Total()); clawErr != nil {
			return fmt.Errorf("escrow engine: store failed (%v) and refund return failed: %v", err, clawErr)
		}
		return err
	}
	if _, err := e.reputation.Decrease(job.Worker, reputationPenalty); err != nil {
		return err
	}
	e.emit(newRefundedEvent(job))
	return nil
}

// Cancel lets the employer withdraw an untouched job before any submission.
// Full custody returns to the employer; no fault is recorded.
func (e *Engine) Cancel(caller [20]byte, jobID uint64) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	unlock := e.jobs.lock(jobID)
	defer unlock()

	job, err := e.loadJob(jobID)
	if err != nil {
		return err
	}
	if caller != job.Employer {
		return fmt.Errorf("%w: only the employer may cancel", ErrUnauthorized)
	}
	if job.Status != JobCreated || job.SubmittedAt != 0 {
		return fmt.Errorf("%w: cancel requires an unsubmitted job", ErrInvalidState)
	}
	ok, err := e.ledger.Transfer(job.Employer, job.Total())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: cancel refund rejected", ErrTransferFailed)
	}
	job.Status = JobCancelled
	if err := e.state.JobPut(job); err != nil {
		if clawErr := e.reclaim(job.Employer, job.Total()); clawErr != nil {
			return fmt.Errorf("escrow engine: store failed (%v) and refund return failed: %v", err, clawErr)
		}
		return err
	}
	e.emit(newCancelledEvent(job))
	return nil
}

// Job returns a copy of the stored job record.
func (e *Engine) Job(id uint64) (*Job, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadJob(id)
}

// JobsByEmployer lists job ids created by the employer, oldest first.
func (e *Engine) JobsByEmployer(addr [20]byte) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.JobsByEmployer(addr)
}

// JobsByWorker lists job ids assigned to the worker, oldest first.
func (e *Engine) JobsByWorker(addr [20]byte) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.JobsByWorker(addr)
}

// SetVerifierIdentity rotates the trusted verifier. Admin only.
func (e *Engine) SetVerifierIdentity(caller, verifier [20]byte) error {
	if verifier == ([20]byte{}) {
		return fmt.Errorf("%w: verifier identity required", ErrValidation)
	}
	e.identityMu.Lock()
	defer e.identityMu.Unlock()
	if caller != e.admin {
		return fmt.Errorf("%w: only the admin may rotate the verifier", ErrUnauthorized)
	}
	e.verifier = verifier
	return nil
}

// SetFeeCollectorIdentity rotates the fee collector. Admin only.
func (e *Engine) SetFeeCollectorIdentity(caller, collector [20]byte) error {
	if collector == ([20]byte{}) {
		return fmt.Errorf("%w: fee collector identity required", ErrValidation)
	}
	e.identityMu.Lock()
	defer e.identityMu.Unlock()
	if caller != e.admin {
		return fmt.Errorf("%w: only the admin may rotate the fee collector", ErrUnauthorized)
	}
	e.feeCollector = collector
	return nil
}

// EmergencySweep drains the custody vault's residual balance to the target
// identity. Admin only; intended for recovery after an incident, not for
// routine operation.
func (e *Engine) EmergencySweep(caller, to [20]byte) (*big.Int, error) {
	if err := e.ensureWired(); err != nil {
		return nil, err
	}
	if to == ([20]byte{}) {
		return nil, fmt.Errorf("%w: sweep target required", ErrValidation)
	}
	if caller != e.adminIdentity() {
		return nil, fmt.Errorf("%w: only the admin may sweep", ErrUnauthorized)
	}
	balance, err := e.ledger.BalanceOf(e.vaultIdentity())
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return big.NewInt(0), nil
	}
	ok, err := e.ledger.Transfer(to, balance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: sweep rejected", ErrTransferFailed)
	}
	e.emit(newSweepEvent(to, balance))
	return balance, nil
}
