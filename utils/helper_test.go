package utils

import "testing"

func TestFormatOrderNumber(t *testing.T) {
	cases := []struct {
		seq  int64
		want string
	}{
		{1, "0001"},
		{42, "0042"},
		{9999, "9999"},
		{10000, "10000"},
	}
	for _, c := range cases {
		if got := FormatOrderNumber(c.seq); got != c.want {
			t.Errorf("FormatOrderNumber(%d) = %q, want %q", c.seq, got, c.want)
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	if len(got) != 3 {
		t.Fatalf("expected 3 unique values, got %v", got)
	}
	seen := map[int]bool{}
	for _, v := range got {
		if seen[v] {
			t.Fatalf("duplicate %d in %v", v, got)
		}
		seen[v] = true
	}
}
