package simindex

import "fmt"

// NotFoundError reports a lookup against an unknown name or docid, kept
// distinguishable from a generic I/O failure so callers can errors.As it.
type NotFoundError struct {
	Kind string // "name" or "docid"
	Key  any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("simindex: unknown %s %v", e.Kind, e.Key)
}

// BadRequestError reports malformed input: an unrecognized configuration
// key, a malformed node-docid or RPC argument, or a similarly
// caller-supplied defect. (Malformed document-frequency lines are reported
// by dffile.FormatError instead.)
type BadRequestError struct {
	Msg string
}

func (e *BadRequestError) Error() string { return "simindex: bad request: " + e.Msg }

// UnsupportedMethodError reports a call to an operation that is not part of
// the callee's capability surface: a remote proxy or RPC server asked for a
// method outside its whitelist, or an instance scorer crossing a remote
// boundary. In-place mutation of a storage-backed map value is not detected
// and raises no error (see Store).
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("simindex: unsupported method %q", e.Method)
}
