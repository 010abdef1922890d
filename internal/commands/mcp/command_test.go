package mcp

import "testing"

func TestIntArg(t *testing.T) {
	args := map[string]any{"limit": float64(10)}
	if got := intArg(args, "limit", 50); got != 10 {
		t.Fatalf("got %d, want 10", got)
	}
	if got := intArg(args, "offset", 0); got != 0 {
		t.Fatalf("got %d, want fallback 0", got)
	}
	if got := intArg(map[string]any{"limit": "not-a-number"}, "limit", 50); got != 50 {
		t.Fatalf("got %d, want fallback 50 on type mismatch", got)
	}
}

func TestStringArg(t *testing.T) {
	args := map[string]any{"query": "graph neural networks"}
	if got := stringArg(args, "query"); got != "graph neural networks" {
		t.Fatalf("got %q", got)
	}
	if got := stringArg(args, "missing"); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
	if got := stringArg(map[string]any{"query": 42}, "query"); got != "" {
		t.Fatalf("got %q, want empty on type mismatch", got)
	}
}

func TestBoolArg(t *testing.T) {
	if got := boolArg(map[string]any{"spam": true}, "spam"); !got {
		t.Fatalf("got false, want true")
	}
	if got := boolArg(map[string]any{}, "spam"); got {
		t.Fatalf("got true, want fallback false")
	}
	if got := boolArg(map[string]any{"spam": "true"}, "spam"); got {
		t.Fatalf("got true, want fallback false on type mismatch")
	}
}

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"2401.00001", []string{"2401.00001"}},
		{"2401.00001,2401.00002", []string{"2401.00001", "2401.00002"}},
		{"2401.00001, 2401.00002", []string{"2401.00001", " 2401.00002"}},
		{"a,,b", []string{"a", "b"}},
		{",", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("splitCSV(%q) = %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("splitCSV(%q) = %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestAsJSON(t *testing.T) {
	res, err := asJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("asJSON: %v", err)
	}
	if res == nil {
		t.Fatalf("expected non-nil result")
	}
}
