package domain

import "errors"

var (
	// ErrInvalidInput indicates a bad language code or an empty answer
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionNotFound indicates an unknown session id
	ErrSessionNotFound = errors.New("session not found")
	// ErrJobNotFound indicates an unknown job id
	ErrJobNotFound = errors.New("job not found")
	// ErrSessionIncomplete indicates the questionnaire has not been finished
	ErrSessionIncomplete = errors.New("session incomplete")
	// ErrSessionAlreadyComplete indicates input was sent after the last question
	ErrSessionAlreadyComplete = errors.New("session already complete")
	// ErrPipelineInFlight indicates the session already has a pending or running job
	ErrPipelineInFlight = errors.New("pipeline already running for session")

	// ErrExtractionParse indicates the extraction output was not a JSON object
	ErrExtractionParse = errors.New("extraction parse error")
	// ErrExtractionValidation indicates the extracted record violates a field invariant
	ErrExtractionValidation = errors.New("extraction validation error")
	// ErrClassificationParse indicates the classification output did not conform
	ErrClassificationParse = errors.New("classification parse error")
	// ErrRoutingParse indicates the routing output did not conform
	ErrRoutingParse = errors.New("routing parse error")

	// ErrUnknownCorpus indicates a corpus name outside triage/routing/orders
	ErrUnknownCorpus = errors.New("unknown corpus")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidInput, "InvalidInput"},
	{ErrSessionNotFound, "SessionNotFound"},
	{ErrJobNotFound, "JobNotFound"},
	{ErrSessionIncomplete, "SessionIncomplete"},
	{ErrSessionAlreadyComplete, "SessionAlreadyComplete"},
	{ErrPipelineInFlight, "PipelineInFlight"},
	{ErrExtractionParse, "ExtractionParseError"},
	{ErrExtractionValidation, "ExtractionValidationError"},
	{ErrClassificationParse, "ClassificationParseError"},
	{ErrRoutingParse, "RoutingParseError"},
	{ErrUnknownCorpus, "UnknownCorpus"},
}

// ErrorKind returns the taxonomy name of err, or "Internal" when err does not
// wrap one of the package sentinels.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
