package normalizer

import (
	"amokanban/pkg/model"
	"testing"
	"time"
)

func TestApply(t *testing.T) {
	bookings := []model.Booking{
		{ID: "1", Status: 10, BookingDate: "2025-08-23"},
		{ID: "2", Status: 10, BookingDate: "2025-08-24"},
		{ID: "3", Status: 20, BookingDate: "2025-08-23"},
		{ID: "4", Status: 10},
	}

	tests := []struct {
		name  string
		preds []Predicate
		want  []string
	}{
		{name: "no predicates", want: []string{"1", "2", "3", "4"}},
		{name: "nil predicate skipped", preds: []Predicate{nil}, want: []string{"1", "2", "3", "4"}},
		{name: "by status", preds: []Predicate{ByStatus(10)}, want: []string{"1", "2", "4"}},
		{name: "by date", preds: []Predicate{ByDate("2025-08-23")}, want: []string{"1", "3"}},
		{name: "composed", preds: []Predicate{ByStatus(10), ByDate("2025-08-23")}, want: []string{"1"}},
		{name: "empty date matches nothing", preds: []Predicate{ByDate("")}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(bookings, tt.preds...)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d bookings, want %d", len(got), len(tt.want))
			}
			for i, b := range got {
				if b.ID != tt.want[i] {
					t.Errorf("booking %d: id %s, want %s", i, b.ID, tt.want[i])
				}
			}
		})
	}
}

func TestToday(t *testing.T) {
	now := time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)

	if got := Today(nil, now); got != "2024-12-31" {
		t.Errorf("utc: got %s", got)
	}
	if got := Today(time.FixedZone("MSK", 3*60*60), now); got != "2025-01-01" {
		t.Errorf("msk: got %s", got)
	}
}
