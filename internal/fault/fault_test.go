package fault_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogotex/docbase/internal/fault"
)

var (
	errAuthorizationOne = fault.AuthorizationError("authorization one")
	errAllocationOne    = fault.AllocationError("allocation one")
	errInvalidOne       = fault.InvalidError("invalid one")
	errNotFoundOne      = fault.NotFoundError("not found one")
	errRangeOne         = fault.RangeError("range one")
)

// each error must be classified as exactly one kind, wrapped or not
func TestKinds(t *testing.T) {
	errorList := []struct {
		err           error
		authorization bool
		allocation    bool
		invalid       bool
		notFound      bool
		rng           bool
	}{
		{errAuthorizationOne, true, false, false, false, false},
		{fault.ErrNotAuthority, true, false, false, false, false},
		{errAllocationOne, false, true, false, false, false},
		{fault.ErrRecordExists, false, true, false, false, false},
		{errInvalidOne, false, false, true, false, false},
		{fault.ErrContentTooLarge, false, false, true, false, false},
		{errNotFoundOne, false, false, false, true, false},
		{fault.ErrDocumentNotFound, false, false, false, true, false},
		{errRangeOne, false, false, false, false, true},
		{fault.ErrCounterUnderflow, false, false, false, false, true},
		{fmt.Errorf("sqlite commit: %w", fault.ErrRecordExists), false, true, false, false, false},
		{errors.New("plain"), false, false, false, false, false},
	}

	for i, e := range errorList {
		err := e.err
		if fault.IsErrAuthorization(err) != e.authorization {
			t.Errorf("%d: expected 'authorization' == %v for err = %v", i, e.authorization, err)
		}
		if fault.IsErrAllocation(err) != e.allocation {
			t.Errorf("%d: expected 'allocation' == %v for err = %v", i, e.allocation, err)
		}
		if fault.IsErrInvalid(err) != e.invalid {
			t.Errorf("%d: expected 'invalid' == %v for err = %v", i, e.invalid, err)
		}
		if fault.IsErrNotFound(err) != e.notFound {
			t.Errorf("%d: expected 'not found' == %v for err = %v", i, e.notFound, err)
		}
		if fault.IsErrRange(err) != e.rng {
			t.Errorf("%d: expected 'range' == %v for err = %v", i, e.rng, err)
		}
	}
}

func TestWrappedIdentity(t *testing.T) {
	err := fmt.Errorf("update: %w", fault.ErrContentTooLarge)
	if !errors.Is(err, fault.ErrContentTooLarge) {
		t.Fatalf("expected wrapped error to match sentinel: %v", err)
	}
	if errors.Is(err, fault.ErrInvalidAddress) {
		t.Fatalf("unexpected match against a different sentinel of the same kind")
	}
}
