package escrow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDisputeActive marks a raise attempt while a dispute is already open.
	ErrDisputeActive = errors.New("escrow engine: dispute already active")
	// ErrNoActiveDispute marks vote/resolve attempts without an open dispute.
	ErrNoActiveDispute = errors.New("escrow engine: no active dispute")
	// ErrAlreadyVoted marks a second ballot from the same identity.
	ErrAlreadyVoted = errors.New("escrow engine: already voted")
	// ErrSelfVote marks ballots cast by the disputed job's own parties.
	ErrSelfVote = errors.New("escrow engine: parties may not vote")
	// ErrVotingClosed marks ballots cast after the voting window elapsed.
	ErrVotingClosed = errors.New("escrow engine: voting window closed")
	// ErrWindowOpen marks resolution attempts before the window elapsed.
	ErrWindowOpen = errors.New("escrow engine: voting window still open")
)

// RaiseDispute escalates a job to the community vote path. Only the employer
// or worker may raise, only from Created or WorkSubmitted, and only one
// dispute may be active per job. The voting window opens immediately.
func (e *Engine) RaiseDispute(caller [20]byte, jobID uint64, reason string) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	unlock := e.jobs.lock(jobID)
	defer unlock()

	job, err := e.loadJob(jobID)
	if err != nil {
		return err
	}
	if caller != job.Employer && caller != job.Worker {
		return fmt.Errorf("%w: only the employer or worker may dispute", ErrUnauthorized)
	}
	if job.Status != JobCreated && job.Status != JobWorkSubmitted {
		return fmt.Errorf("%w: cannot dispute in state %s", ErrInvalidState, job.Status)
	}
	trimmedReason := strings.TrimSpace(reason)
	if trimmedReason == "" {
		return fmt.Errorf("%w: dispute reason required", ErrValidation)
	}
	if existing, ok, err := e.state.DisputeGet(jobID); err != nil {
		return err
	} else if ok && existing.Active {
		return ErrDisputeActive
	}
	dispute := &Dispute{
		JobID:    jobID,
		Active:   true,
		RaisedAt: e.now(),
		RaisedBy: caller,
		Reason:   trimmedReason,
		HasVoted: make(map[[20]byte]bool),
	}
	if err := e.state.DisputePut(dispute); err != nil {
		return err
	}
	job.Status = JobDisputed
	if err := e.state.JobPut(job); err != nil {
		return err
	}
	e.emit(newDisputedEvent(job, dispute))
	return nil
}

// Vote casts one unweighted ballot on an active dispute. The job's own
// parties are excluded; every other identity may vote exactly once while the
// window is open.
func (e *Engine) Vote(caller [20]byte, jobID uint64, forEmployer bool) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	unlock := e.jobs.lock(jobID)
	defer unlock()

	job, err := e.loadJob(jobID)
	if err != nil {
		return err
	}
	if job.Status != JobDisputed {
		return fmt.Errorf("%w: cannot vote in state %s", ErrInvalidState, job.Status)
	}
	dispute, ok, err := e.state.DisputeGet(jobID)
	if err != nil {
		return err
	}
	if !ok || !dispute.Active {
		return ErrNoActiveDispute
	}
	if caller == job.Employer || caller == job.Worker {
		return ErrSelfVote
	}
	if caller == ([20]byte{}) {
		return fmt.Errorf("%w: voter identity required", ErrValidation)
	}
	if e.now() > dispute.RaisedAt+e.params.DisputeWindow {
		return ErrVotingClosed
	}
	if dispute.HasVoted[caller] {
		return ErrAlreadyVoted
	}
	if forEmployer {
		dispute.VotesForEmployer++
	} else {
		dispute.VotesForWorker++
	}
	dispute.HasVoted[caller] = true
	if err := e.state.DisputePut(dispute); err != nil {
		return err
	}
	e.emit(newVoteEvent(job, caller, forEmployer))
	return nil
}

// ResolveDispute closes an active dispute once the voting window has elapsed.
// Callable by anyone. A strict employer majority refunds the full custody to
// the employer; every other tally, ties and zero votes included, releases to
// the worker. Defaulting ties to the worker is a deliberate
// default-to-completion policy.
func (e *Engine) ResolveDispute(caller [20]byte, jobID uint64) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	unlock := e.jobs.lock(jobID)
	defer unlock()

	job, err := e.loadJob(jobID)
	if err != nil {
		return err
	}
	if job.Status != JobDisputed {
		return fmt.Errorf("%w: cannot resolve in state %s", ErrInvalidState, job.Status)
	}
	dispute, ok, err := e.state.DisputeGet(jobID)
	if err != nil {
		return err
	}
	if !ok || !dispute.Active {
		return ErrNoActiveDispute
	}
	if e.now() <= dispute.RaisedAt+e.params.DisputeWindow {
		return ErrWindowOpen
	}

	employerWins := dispute.VotesForEmployer > dispute.VotesForWorker
	if employerWins {
		ok, err := e.ledger.Transfer(job.Employer, job.Total())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		if !ok {
			return fmt.Errorf("%w: dispute refund rejected", ErrTransferFailed)
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
	} else {
		job.Status = JobVerified
		if err := e.settle(job); err != nil {
			return err
		}
	}
	// The job is terminal from here, so the state gate above already blocks
	// a second resolution even if deactivating the record fails.
	dispute.Active = false
	if err := e.state.DisputePut(dispute); err != nil {
		return err
	}
	e.emit(newResolvedEvent(job, dispute, employerWins))
	return nil
}

// DisputeOf returns a snapshot of the job's dispute record, if one exists.
// Resolved disputes remain queryable with Active=false.
func (e *Engine) DisputeOf(jobID uint64) (*Dispute, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	return e.state.DisputeGet(jobID)
}
