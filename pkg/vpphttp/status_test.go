package vpphttp

import "testing"

func TestClassOfRegisteredCodeIsFixedPoint(t *testing.T) {
	cls, ok := ClassOf(404)
	if !ok || cls != StatusNotFound {
		t.Fatalf("ClassOf(404) = %v, %v, want StatusNotFound, true", cls, ok)
	}
}

func TestClassOfUnregisteredCodeCollapsesToClassRepresentative(t *testing.T) {
	cases := []struct {
		code uint16
		want StatusClass
	}{
		{199, StatusContinue},
		{299, StatusOK},
		{399, StatusMultipleChoices},
		{499, StatusBadRequest},
		{599, StatusInternalServerError},
	}
	for _, c := range cases {
		got, ok := ClassOf(c.code)
		if !ok || got != c.want {
			t.Errorf("ClassOf(%d) = %v, %v, want %v, true", c.code, got, ok, c.want)
		}
	}
}

func TestClassOfOutOfRange(t *testing.T) {
	if _, ok := ClassOf(600); ok {
		t.Error("ClassOf(600) should report not-ok, the table only covers [0,599]")
	}
}

func TestReasonPhraseKnownAndUnknown(t *testing.T) {
	if got := reasonPhrase(StatusOK); got != "OK" {
		t.Errorf("reasonPhrase(StatusOK) = %q, want %q", got, "OK")
	}
	if got := reasonPhrase(StatusClass(9999)); got != "" {
		t.Errorf("reasonPhrase(unknown) = %q, want empty", got)
	}
}
