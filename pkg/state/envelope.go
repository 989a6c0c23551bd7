package state

// Envelope is the reply shape of every query endpoint. A non-nil
// PartialFailureWarning means some nodes did not answer but the result is
// still usable; Success=false means the query could not be served at all.
type Envelope struct {
	Success               bool    `json:"success"`
	Message               string  `json:"message"`
	Result                any     `json:"result"`
	PartialFailureWarning *string `json:"partial_failure_warning"`
}

// OK builds a successful envelope. An empty warning is sent as null.
func OK(result any, warning string) Envelope {
	env := Envelope{Success: true, Result: result}
	if warning != "" {
		env.PartialFailureWarning = &warning
	}
	return env
}

// Fail builds a failed envelope with a null result.
func Fail(message string) Envelope {
	return Envelope{Success: false, Message: message}
}
