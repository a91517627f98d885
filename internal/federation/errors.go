package federation

import "errors"

// Error taxonomy for the trust pipeline. Callers branch with errors.Is; the
// concrete cause is carried in the wrapped message.
var (
	// ErrTransport marks network or HTTP failures reaching an external
	// endpoint. Never retried here beyond what the classifier mandates.
	ErrTransport = errors.New("federation: transport failure")

	// ErrTrust marks signature or certificate chain verification failures.
	// Always fatal for the fetch attempt, never downgraded to a verdict.
	ErrTrust = errors.New("federation: trust verification failure")

	// ErrSchema marks a verified payload that does not match the expected
	// structure.
	ErrSchema = errors.New("federation: malformed list payload")
)
