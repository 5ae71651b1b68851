package signup

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEntryNotFound = errors.New("entry not found")
)

// Kind classifies a rejected request.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindPermission  Kind = "permission"
	KindWindow      Kind = "window"
	KindCapacity    Kind = "capacity"
	KindDuplicate   Kind = "duplicate"
	KindConsistency Kind = "consistency"
)

// Rejection is a user-facing refusal of a request. Nothing has been written
// when one is returned; the caller may correct the request and resubmit.
type Rejection struct {
	Kind    Kind
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}

func reject(kind Kind, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a *Rejection.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// IsKind reports whether err is a rejection of the given kind.
func IsKind(err error, kind Kind) bool {
	r, ok := AsRejection(err)
	return ok && r.Kind == kind
}
