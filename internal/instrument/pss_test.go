package instrument

import "testing"

func TestPssCategory(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		want    string
		wantErr bool
	}{
		{name: "zero folds into mild", total: 0, want: PssCategoryMild},
		{name: "mild lower bound", total: 1, want: PssCategoryMild},
		{name: "mild upper bound", total: 13, want: PssCategoryMild},
		{name: "moderate lower bound", total: 14, want: PssCategoryModerate},
		{name: "moderate mid", total: 20, want: PssCategoryModerate},
		{name: "moderate upper bound", total: 26, want: PssCategoryModerate},
		{name: "severe lower bound", total: 27, want: PssCategorySevere},
		{name: "severe upper bound", total: 40, want: PssCategorySevere},
		{name: "negative rejected", total: -1, wantErr: true},
		{name: "above max rejected", total: 41, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PssCategory(tt.total)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PssCategory(%d) error = %v, wantErr %v", tt.total, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PssCategory(%d) = %q, want %q", tt.total, got, tt.want)
			}
		})
	}
}

func TestPssScore(t *testing.T) {
	tests := []struct {
		name    string
		values  []int
		want    int
		wantErr bool
	}{
		{
			name:   "all zero raw scores 16 via reversed items",
			values: []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			// items 4,5,7,8 reverse to 4 each
			want: 16,
		},
		{
			name:   "all four raw scores 24",
			values: []int{4, 4, 4, 4, 4, 4, 4, 4, 4, 4},
			want:   24,
		},
		{
			name:   "mixed values",
			values: []int{3, 2, 3, 1, 0, 2, 1, 0, 3, 2},
			// forward: 3+2+3+2+3+2 = 15, reversed: (4-1)+(4-0)+(4-1)+(4-0) = 14
			want: 29,
		},
		{name: "too few items", values: []int{1, 2, 3}, wantErr: true},
		{name: "value out of range", values: []int{0, 0, 0, 5, 0, 0, 0, 0, 0, 0}, wantErr: true},
		{name: "negative value", values: []int{0, 0, 0, -1, 0, 0, 0, 0, 0, 0}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PssScore(tt.values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PssScore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PssScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPssItemReversed(t *testing.T) {
	reversed := map[int]bool{4: true, 5: true, 7: true, 8: true}
	for item := 1; item <= PssItemCount; item++ {
		if got := PssItemReversed(item); got != reversed[item] {
			t.Errorf("PssItemReversed(%d) = %v, want %v", item, got, reversed[item])
		}
	}
}
