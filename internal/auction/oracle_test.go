package auction

import "testing"

func TestBasePriceInterpolates(t *testing.T) {
	rec := &Record{Bounty: 1000, InitialBlock: 0, TerminalBlock: 10}

	cases := []struct {
		now  uint64
		want uint64
	}{
		{0, 0},
		{5, 500},
		{9, 900},
		{10, 1000},
		{100, 1000},
	}
	for _, c := range cases {
		if got := BasePrice(rec, c.now); got != c.want {
			t.Errorf("BasePrice(now=%d) = %d, want %d", c.now, got, c.want)
		}
	}
}

func TestBasePriceTruncatesTowardZero(t *testing.T) {
	rec := &Record{Bounty: 1000, InitialBlock: 0, TerminalBlock: 3}
	// elapsed=1, span=3: 1000*1/3 = 333.33 -> 333
	if got := BasePrice(rec, 1); got != 333 {
		t.Errorf("BasePrice = %d, want 333", got)
	}
}

func TestIsAssigned(t *testing.T) {
	if !IsAssigned(500, 500) {
		t.Error("price equal to base price should be assigned")
	}
	if IsAssigned(501, 500) {
		t.Error("price above base price should not be assigned")
	}
	if !IsAssigned(0, 0) {
		t.Error("degenerate zero-zero case should be assigned")
	}
}
