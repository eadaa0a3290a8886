package protocol

import "testing"

func strPtr(s string) *string { return &s }

func TestCheckCompatibilityRejectsUnsupportedVersion(t *testing.T) {
	c := CheckCompatibility("999", nil, nil)
	if c.Decision != Reject || c.Accepted() {
		t.Fatalf("got %+v, want Reject", c)
	}
}

func TestCheckCompatibilityAcceptsSupportedVersion(t *testing.T) {
	c := CheckCompatibility("1", nil, nil)
	if c.Decision != Accept || !c.Accepted() {
		t.Fatalf("got %+v, want Accept", c)
	}
}

func TestCheckCompatibilityRejectsWhenRuntimeBelowMin(t *testing.T) {
	c := CheckCompatibility("1", strPtr("2"), nil)
	if c.Decision != Reject {
		t.Fatalf("got %+v, want Reject (runtime 1 below min 2)", c)
	}
}

func TestCheckCompatibilityRejectsWhenRuntimeAboveMax(t *testing.T) {
	c := CheckCompatibility("1", nil, strPtr("0"))
	if c.Decision != Reject {
		t.Fatalf("got %+v, want Reject (runtime 1 above max 0)", c)
	}
}

func TestCheckCompatibilityAcceptsWithinBounds(t *testing.T) {
	c := CheckCompatibility("1", strPtr("1"), strPtr("1"))
	if c.Decision != Accept {
		t.Fatalf("got %+v, want Accept", c)
	}
}

func TestCheckCompatibilityRejectsNonNumericBound(t *testing.T) {
	c := CheckCompatibility("1", strPtr("not-a-number"), nil)
	if c.Decision != Reject {
		t.Fatalf("got %+v, want Reject for non-numeric min bound", c)
	}
}

func TestCheckCompatibilityDeprecatedAcceptsWithWarning(t *testing.T) {
	DeprecatedProtocolVersions["1"] = true
	defer delete(DeprecatedProtocolVersions, "1")

	c := CheckCompatibility("1", nil, nil)
	if c.Decision != AcceptWithWarning {
		t.Fatalf("got %+v, want AcceptWithWarning", c)
	}
	if c.Warning == "" {
		t.Fatal("expected a non-empty warning for deprecated version")
	}
	if !c.Accepted() {
		t.Fatal("AcceptWithWarning should still be Accepted()")
	}
}
