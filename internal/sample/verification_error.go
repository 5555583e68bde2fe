package sample

import "fmt"

// VerificationErrorClass categorizes why a candidate link failed
// bidirectional verification.
type VerificationErrorClass int

const (
	// ClassUnparsable means one or both sides' descriptions didn't yield
	// a hint at all.
	ClassUnparsable VerificationErrorClass = iota
	// ClassLoop means both sides name the same node.
	ClassLoop
	// ClassMismatchInterface means the nodes agree but the parsed remote
	// interface ID doesn't appear in the actual peer's interface ID.
	ClassMismatchInterface
	// ClassMismatchNode means the parsed remote node doesn't appear in
	// the actual peer's node name.
	ClassMismatchNode
)

// String reports the errortype value surfaced on the CSV and API error
// reports: "loop" for ClassLoop, "mismatch" for everything else
// (ClassUnparsable, ClassMismatchInterface, ClassMismatchNode). The
// three non-loop classes stay distinct internally, since ParsedRemote and
// Expected already carry the detail a caller needs to tell them apart,
// but the surfaced taxonomy is the two-value mismatch/loop scheme.
func (c VerificationErrorClass) String() string {
	if c == ClassLoop {
		return "loop"
	}
	return "mismatch"
}

// VerificationError records one failed link-verification attempt: the
// interface whose description was parsed, what it claimed, and what was
// actually found there.
type VerificationError struct {
	Class        VerificationErrorClass
	Source       Interface
	ParsedRemote string
	Expected     string
	Message      string
}

func (e *VerificationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s/%s parsed remote %q, expected %q", e.Class, e.Source.Node, e.Source.InterfaceID, e.ParsedRemote, e.Expected)
}
