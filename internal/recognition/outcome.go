package recognition

import "fmt"

// Outcome is the decoded result of one recognition exchange: either
// Recognized or NotRecognized.
type Outcome interface {
	fmt.Stringer
	outcome()
}

type Recognized struct {
	Label string
	// Confidence is set only when the server reports one.
	Confidence *float64
}

type NotRecognized struct {
	Reason string
}

const (
	ReasonEmptyLabel    = "empty label"
	ReasonMissingField  = "response field missing"
	ReasonNoGesture     = "no gesture detected"
	ReasonNoSign        = "no sign detected"
	ReasonRequestFailed = "request failed"
	ReasonEmptyMedia    = "no media captured"
	ReasonCancelled     = "capture cancelled"
)

func (Recognized) outcome()    {}
func (NotRecognized) outcome() {}

func (r Recognized) String() string {
	if r.Confidence != nil {
		return fmt.Sprintf("recognized %q (%.2f)", r.Label, *r.Confidence)
	}
	return fmt.Sprintf("recognized %q", r.Label)
}

func (n NotRecognized) String() string {
	return "not recognized: " + n.Reason
}

// Label returns the recognized label, or false for NotRecognized.
func Label(o Outcome) (string, bool) {
	r, ok := o.(Recognized)
	if !ok {
		return "", false
	}
	return r.Label, true
}
