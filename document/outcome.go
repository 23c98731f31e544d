// Package document generates the per-order artifacts: PDF invoice,
// shipping label and plain-text order details.
package document

// Outcome is the tri-state result of one document generator.
type Outcome string

const (
	// OutcomeGenerated means the document was written to the order folder.
	OutcomeGenerated Outcome = "generated"
	// OutcomeSkipped means the document is legitimately absent, such as an
	// order whose shipping label was never purchased.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means generation was attempted and did not produce
	// the document.
	OutcomeFailed Outcome = "failed"
)

// Artifact names the document types.
const (
	ArtifactInvoice = "invoice"
	ArtifactLabel   = "label"
	ArtifactDetails = "details"
)

// Result reports what one generator did for one order.
type Result struct {
	Artifact string
	Outcome  Outcome
	// Path of the written document, set when Outcome is OutcomeGenerated.
	Path string
	// Reason explains a skip in human terms.
	Reason string
	// Err carries the failure, set when Outcome is OutcomeFailed.
	Err error
}

func generated(artifact, path string) Result {
	return Result{Artifact: artifact, Outcome: OutcomeGenerated, Path: path}
}

func skipped(artifact, reason string) Result {
	return Result{Artifact: artifact, Outcome: OutcomeSkipped, Reason: reason}
}

func failed(artifact string, err error) Result {
	return Result{Artifact: artifact, Outcome: OutcomeFailed, Err: err}
}
