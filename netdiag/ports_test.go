package netdiag

import (
	"slices"
	"testing"
)

func TestParsePorts(t *testing.T) {
	tests := []struct {
		spec    string
		want    []int
		wantErr bool
	}{
		{spec: "80,443,22", want: []int{22, 80, 443}},
		{spec: "1-5,3-8", want: []int{1, 2, 3, 4, 5, 6, 7, 8}},
		{spec: "443,443,80", want: []int{80, 443}},
		{spec: "0", wantErr: true},
		{spec: "70000", wantErr: true},
		{spec: "1-1002", wantErr: true},
		{spec: "9-3", wantErr: true},
		{spec: "http", wantErr: true},
		{spec: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.spec, func(t *testing.T) {
			got, err := ParsePorts(tc.spec)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParsePorts(%q) = %v, want error", tc.spec, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePorts(%q) error = %v", tc.spec, err)
			}
			if !slices.Equal(got, tc.want) {
				t.Fatalf("ParsePorts(%q) = %v, want %v", tc.spec, got, tc.want)
			}
		})
	}
}

func TestParsePortsCapsAndSorts(t *testing.T) {
	got, err := ParsePorts("5000-5999,1-10")
	if err != nil {
		t.Fatalf("ParsePorts() error = %v", err)
	}
	if len(got) != MaxScanPorts {
		t.Fatalf("len = %d, want %d", len(got), MaxScanPorts)
	}
	if !slices.IsSorted(got) || got[0] != 1 || got[9] != 10 || got[10] != 5000 {
		t.Fatalf("ParsePorts() = %v...", got[:12])
	}
	if len(slices.Compact(slices.Clone(got))) != len(got) {
		t.Fatal("ParsePorts() returned duplicates")
	}
}
