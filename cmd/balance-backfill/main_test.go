package main

import (
	"testing"
	"time"
)

func TestMonthChunks(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want [][2]string
	}{
		{
			name: "single day",
			from: "2024-02-10",
			to:   "2024-02-10",
			want: [][2]string{{"2024-02-10", "2024-02-10"}},
		},
		{
			name: "partial months across a leap february",
			from: "2024-01-15",
			to:   "2024-03-05",
			want: [][2]string{
				{"2024-01-15", "2024-01-31"},
				{"2024-02-01", "2024-02-29"},
				{"2024-03-01", "2024-03-05"},
			},
		},
		{
			name: "year boundary",
			from: "2023-12-01",
			to:   "2024-01-31",
			want: [][2]string{
				{"2023-12-01", "2023-12-31"},
				{"2024-01-01", "2024-01-31"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseBounds(tt.from, tt.to)
			if err != nil {
				t.Fatalf("parse bounds: %v", err)
			}
			got := monthChunks(start, end)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d chunks, got %d", len(tt.want), len(got))
			}
			for i, c := range got {
				if c.start.Format(time.DateOnly) != tt.want[i][0] || c.end.Format(time.DateOnly) != tt.want[i][1] {
					t.Fatalf("chunk %d: expected %v, got %s..%s", i, tt.want[i], c.start.Format(time.DateOnly), c.end.Format(time.DateOnly))
				}
			}
		})
	}
}

func TestParseBoundsRejectsBadInput(t *testing.T) {
	cases := [][2]string{
		{"", "2024-01-01"},
		{"2024-01-01", "tomorrow"},
		{"2024-02-01", "2024-01-01"},
	}
	for _, c := range cases {
		if _, _, err := parseBounds(c[0], c[1]); err == nil {
			t.Fatalf("expected error for %v", c)
		}
	}
}
