package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonTransportRead)
	if Reason(err) != ReasonTransportRead {
		t.Fatalf("expected reason %s, got %s", ReasonTransportRead, Reason(err))
	}
	if !HasReason(err, ReasonTransportRead) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonDecode)
	second := Wrap(first, ReasonProtocol)
	if Reason(second) != ReasonDecode {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestNewCarriesMessageAndReason(t *testing.T) {
	err := New("backend overloaded", ReasonProtocol)
	if err.Error() != "backend overloaded" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if Reason(err) != ReasonProtocol {
		t.Fatalf("expected protocol reason, got %s", Reason(err))
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
