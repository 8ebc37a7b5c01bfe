package addr

import "testing"

func TestParseRoundTripsWithString(t *testing.T) {
	a, err := Parse("127.0.0.1:6142")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if a.IP != "127.0.0.1" || a.Port != 6142 {
		t.Fatalf("Parse = %+v, want IP=127.0.0.1 Port=6142", a)
	}
	if got := a.String(); got != "127.0.0.1:6142" {
		t.Errorf("String() = %q, want %q", got, "127.0.0.1:6142")
	}
}

func TestParseRejectsMissingPort(t *testing.T) {
	if _, err := Parse("127.0.0.1"); err == nil {
		t.Fatal("expected an error for a host with no port")
	}
}

func TestZero(t *testing.T) {
	if !(NeighborAddr{}).Zero() {
		t.Error("zero value should report Zero() == true")
	}
	a, _ := Parse("127.0.0.1:1")
	if a.Zero() {
		t.Error("a parsed address should not report Zero() == true")
	}
}
