package escrow

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"agentpay/core/types"
)

const (
	EventTypeJobCreated    = "escrow.job.created"
	EventTypeWorkSubmitted = "escrow.job.submitted"
	EventTypeJobVerified   = "escrow.job.verified"
	EventTypeJobReleased   = "escrow.job.released"
	EventTypeJobRefunded   = "escrow.job.refunded"
	EventTypeJobCancelled  = "escrow.job.cancelled"
	EventTypeJobDisputed   = "escrow.job.disputed"
	EventTypeDisputeVote   = "escrow.dispute.vote"
	EventTypeDisputeClosed = "escrow.dispute.resolved"
	EventTypeAdminSweep    = "escrow.admin.sweep"
)

func newJobCreatedEvent(j *Job) *types.Event { return newJobEvent(EventTypeJobCreated, j) }

func newWorkSubmittedEvent(j *Job) *types.Event {
	evt := newJobEvent(EventTypeWorkSubmitted, j)
	if j != nil {
		evt.Attributes["workHash"] = hex.EncodeToString(j.WorkHash[:])
		evt.Attributes["workUrl"] = j.WorkURL
		evt.Attributes["submittedAt"] = strconv.FormatInt(j.SubmittedAt, 10)
	}
	return evt
}

func newVerifiedEvent(j *Job, passed bool) *types.Event {
	evt := newJobEvent(EventTypeJobVerified, j)
	evt.Attributes["passed"] = strconv.FormatBool(passed)
	if j != nil {
		evt.Attributes["score"] = strconv.FormatUint(uint64(j.VerificationScore), 10)
		evt.Attributes["reason"] = j.VerificationReason
	}
	return evt
}

func newReleasedEvent(j *Job) *types.Event { return newJobEvent(EventTypeJobReleased, j) }

func newRefundedEvent(j *Job) *types.Event { return newJobEvent(EventTypeJobRefunded, j) }

func newCancelledEvent(j *Job) *types.Event { return newJobEvent(EventTypeJobCancelled, j) }

func newDisputedEvent(j *Job, d *Dispute) *types.Event {
	evt := newJobEvent(EventTypeJobDisputed, j)
	if d != nil {
		evt.Attributes["raisedBy"] = hex.EncodeToString(d.RaisedBy[:])
		evt.Attributes["raisedAt"] = strconv.FormatInt(d.RaisedAt, 10)
		evt.Attributes["reason"] = d.Reason
	}
	return evt
}

func newVoteEvent(j *Job, voter [20]byte, forEmployer bool) *types.Event {
	evt := newJobEvent(EventTypeDisputeVote, j)
	evt.Attributes["voter"] = hex.EncodeToString(voter[:])
	evt.Attributes["forEmployer"] = strconv.FormatBool(forEmployer)
	return evt
}

func newResolvedEvent(j *Job, d *Dispute, employerWins bool) *types.Event {
	evt := newJobEvent(EventTypeDisputeClosed, j)
	if employerWins {
		evt.Attributes["outcome"] = "employer"
	} else {
		evt.Attributes["outcome"] = "worker"
	}
	if d != nil {
		evt.Attributes["votesForEmployer"] = strconv.FormatUint(d.VotesForEmployer, 10)
		evt.Attributes["votesForWorker"] = strconv.FormatUint(d.VotesForWorker, 10)
	}
	return evt
}

func newSweepEvent(to [20]byte, amount *big.Int) *types.Event {
	attrs := map[string]string{
		"to": hex.EncodeToString(to[:]),
	}
	if amount != nil {
		attrs["amount"] = amount.String()
	}
	return &types.Event{Type: EventTypeAdminSweep, Attributes: attrs}
}

func newJobEvent(eventType string, j *Job) *types.Event {
	attrs := make(map[string]string)
	evt := &types.Event{Type: eventType, Attributes: attrs}
	if j == nil {
		return evt
	}
	attrs["id"] = strconv.FormatUint(j.ID, 10)
	attrs["employer"] = hex.EncodeToString(j.Employer[:])
	attrs["worker"] = hex.EncodeToString(j.Worker[:])
	if j.Amount != nil {
		attrs["amount"] = j.Amount.String()
	}
	if j.Fee != nil {
		attrs["fee"] = j.Fee.String()
	}
	attrs["status"] = j.Status.String()
	attrs["deadline"] = strconv.FormatInt(j.Deadline, 10)
	return evt
}
