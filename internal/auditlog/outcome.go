package auditlog

// Outcome records what happened to a log attempt. Public logging entry points
// never return it; it feeds metrics, diagnostics and tests.
type Outcome string

const (
	OutcomeDispatched      Outcome = "dispatched"
	OutcomeSent            Outcome = "sent"
	OutcomeFailed          Outcome = "failed"
	OutcomeCircuitOpen     Outcome = "circuit_open"
	OutcomeCooldown        Outcome = "cooldown"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeDebounced       Outcome = "debounced"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeIgnored         Outcome = "ignored"
	OutcomeInvalid         Outcome = "invalid"
)
