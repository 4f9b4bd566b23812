package parallel

import "testing"

func TestSplitRows(t *testing.T) {
	tests := []struct {
		name       string
		height     int
		bandHeight int
		wantBands  int
		wantLast   int
	}{
		{"exact", 128, 64, 2, 64},
		{"remainder", 130, 64, 3, 2},
		{"single short", 10, 64, 1, 10},
		{"default height", 200, 0, 4, 8},
		{"one row bands", 3, 1, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bands := SplitRows(tt.height, tt.bandHeight)
			if len(bands) != tt.wantBands {
				t.Fatalf("SplitRows(%d, %d) = %d bands, want %d", tt.height, tt.bandHeight, len(bands), tt.wantBands)
			}
			if got := bands[len(bands)-1].Rows(); got != tt.wantLast {
				t.Errorf("last band rows = %d, want %d", got, tt.wantLast)
			}

			next := 0
			for i, b := range bands {
				if b.Index != i {
					t.Errorf("band %d Index = %d", i, b.Index)
				}
				if b.Y0 != next {
					t.Errorf("band %d Y0 = %d, want %d (gap or overlap)", i, b.Y0, next)
				}
				next = b.Y1
			}
			if next != tt.height {
				t.Errorf("bands cover %d rows, want %d", next, tt.height)
			}
		})
	}
}

func TestSplitRowsEmpty(t *testing.T) {
	if got := SplitRows(0, 64); got != nil {
		t.Errorf("SplitRows(0, 64) = %v, want nil", got)
	}
	if got := SplitRows(-3, 64); got != nil {
		t.Errorf("SplitRows(-3, 64) = %v, want nil", got)
	}
}
