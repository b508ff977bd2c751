package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestBuildSetsDefaults(t *testing.T) {
	ee := New(stderrors.New("boom")).Build()
	if ee.Component() != ComponentUnknown {
		t.Errorf("Component() = %q, want %q", ee.Component(), ComponentUnknown)
	}
	if ee.Category != CategoryGeneric {
		t.Errorf("Category = %q, want %q", ee.Category, CategoryGeneric)
	}
}

func TestBuildPropagatesFields(t *testing.T) {
	ee := Newf("fetch failed for %s", "chunk-1").
		Component("asr.fetcher").
		Category(CategoryNetwork).
		Context("chunk_id", "chunk-1").
		Build()

	if ee.Component() != "asr.fetcher" {
		t.Errorf("Component() = %q, want asr.fetcher", ee.Component())
	}
	if ee.Category != CategoryNetwork {
		t.Errorf("Category = %q, want network", ee.Category)
	}
	if got := ee.GetContext()["chunk_id"]; got != "chunk-1" {
		t.Errorf("GetContext()[chunk_id] = %v, want chunk-1", got)
	}
	if !strings.Contains(ee.Error(), "chunk-1") {
		t.Errorf("Error() = %q, want it to contain chunk-1", ee.Error())
	}
}

func TestIsMatchesByCategory(t *testing.T) {
	a := New(stderrors.New("a")).Category(CategoryDatabase).Build()
	b := New(stderrors.New("b")).Category(CategoryDatabase).Build()
	c := New(stderrors.New("c")).Category(CategoryNetwork).Build()

	if !stderrors.Is(a, b) {
		t.Error("Is(a, b) = false, want true: same category should match")
	}
	if stderrors.Is(a, c) {
		t.Error("Is(a, c) = true, want false: different category should not match")
	}
}

func TestCategoryOfUnwrapsThroughPlainErrors(t *testing.T) {
	inner := New(stderrors.New("inner")).Category(CategoryQueue).Build()
	wrapped := stderrors.Join(stderrors.New("outer"), inner)

	if got := CategoryOf(wrapped); got != CategoryQueue {
		t.Errorf("CategoryOf() = %q, want queue", got)
	}
	if got := CategoryOf(stderrors.New("plain")); got != CategoryGeneric {
		t.Errorf("CategoryOf() = %q, want generic for a plain error", got)
	}
}

func TestTruncateLeavesShortStringsAlone(t *testing.T) {
	s := "short message"
	if got := Truncate(s, 100); got != s {
		t.Errorf("Truncate() = %q, want unchanged %q", got, s)
	}
}

func TestTruncateCutsLongStrings(t *testing.T) {
	s := strings.Repeat("x", 2000)
	got := Truncate(s, MaxMessageLength)
	if len([]rune(got)) <= MaxMessageLength {
		t.Errorf("len(Truncate()) = %d, want it to include the truncation marker past %d runes", len([]rune(got)), MaxMessageLength)
	}
	if !strings.HasSuffix(got, "...[truncated]") {
		t.Errorf("Truncate() = %q, want a truncation marker suffix", got)
	}
}

func TestIsTransientNetworkDetectsKnownMarkers(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{stderrors.New("dial tcp: connection refused"), true},
		{stderrors.New("read tcp: i/o timeout"), true},
		{stderrors.New("unexpected EOF"), true},
		{stderrors.New("invalid quality_score: must be 0-3"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := IsTransientNetwork(c.err); got != c.want {
			t.Errorf("IsTransientNetwork(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
