package bus

import "testing"

func TestPnLHistoryKey(t *testing.T) {
	cases := []struct {
		id   string
		want string
	}{
		{"A", "perf:A:pnl_history"},
		{"strategy-7", "perf:strategy-7:pnl_history"},
	}

	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			if got := PnLHistoryKey(tc.id); got != tc.want {
				t.Fatalf("PnLHistoryKey(%q) = %q, want %q", tc.id, got, tc.want)
			}
		})
	}
}
