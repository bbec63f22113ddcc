package enums

// DeadLetterReason records why the pipeline gave up on an event.
type DeadLetterReason string

const (
	DeadLetterMaxRetries   DeadLetterReason = "max_retries"
	DeadLetterMalformed    DeadLetterReason = "malformed"
	DeadLetterNonRetryable DeadLetterReason = "non_retryable"
)

var validDeadLetterReasons = []DeadLetterReason{
	DeadLetterMaxRetries,
	DeadLetterMalformed,
	DeadLetterNonRetryable,
}

func (r DeadLetterReason) IsValid() bool {
	for _, candidate := range validDeadLetterReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
