package store

import (
	"fmt"

	"github.com/arloliu/seqstore/errs"
	"github.com/arloliu/seqstore/value"
)

// IdentityError reports a file whose identity tag differs from the expected one.
// Expected and Actual are Text values, or None for an absent tag.
type IdentityError struct {
	Name     string
	Expected value.Value
	Actual   value.Value
}

func (e *IdentityError) Error() string {
	switch {
	case e.Actual.IsNone():
		return fmt.Sprintf("%s: %s has no tag, expected %s", errs.ErrIdentityMismatch, e.Name, e.Expected)
	case e.Expected.IsNone():
		return fmt.Sprintf("%s: %s has tag %s, expected no tag", errs.ErrIdentityMismatch, e.Name, e.Actual)
	default:
		return fmt.Sprintf("%s: %s has tag %s, expected %s", errs.ErrIdentityMismatch, e.Name, e.Actual, e.Expected)
	}
}

func (e *IdentityError) Unwrap() error {
	return errs.ErrIdentityMismatch
}
