package runner

// Result is the outcome of running one step. It is either a Success or a Failure.
type Result interface {
	// OK reports whether the step succeeded.
	OK() bool
	// Text is the text surfaced to the operator: stdout on success,
	// the diagnostic on failure.
	Text() string

	isResult()
}

// Success carries the captured standard output of a step.
type Success struct {
	Output string
}

func (Success) OK() bool { return true }
func (s Success) Text() string { return s.Output }
func (Success) isResult() {}

// Failure carries the captured standard error of a failed step. Err holds
// the underlying cause, such as a non-zero exit or a start failure. For a
// command that exited non-zero the Diagnostic is its stderr, even when empty.
type Failure struct {
	Diagnostic string
	Err        error
}

func (Failure) OK() bool { return false }
func (f Failure) Text() string { return f.Diagnostic }
func (Failure) isResult() {}

func (f Failure) Error() string {
	if f.Diagnostic == "" && f.Err != nil {
		return f.Err.Error()
	}
	return f.Diagnostic
}

func (f Failure) Unwrap() error {
	return f.Err
}
