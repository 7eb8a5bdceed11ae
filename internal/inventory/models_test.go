package inventory

import "testing"

func TestFormatSize(t *testing.T) {
	cases := []struct {
		size float64
		want string
	}{
		{40, "40"},
		{40.5, "40.5"},
		{36, "36"},
		{47.5, "47.5"},
	}
	for _, c := range cases {
		if got := FormatSize(c.size); got != c.want {
			t.Errorf("FormatSize(%v) = %q, want %q", c.size, got, c.want)
		}
	}
}

func TestRecordAvailable(t *testing.T) {
	cases := []struct {
		qty, reserved, want int
	}{
		{10, 0, 10},
		{10, 4, 6},
		{10, 10, 0},
	}
	for _, c := range cases {
		r := Record{Quantity: c.qty, ReservedQuantity: c.reserved}
		if got := r.Available(); got != c.want {
			t.Errorf("Available() with qty=%d reserved=%d = %d, want %d",
				c.qty, c.reserved, got, c.want)
		}
	}
}
