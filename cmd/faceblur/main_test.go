package main

import (
	"reflect"
	"testing"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"1", []int{1}, false},
		{"1, 3,4", []int{1, 3, 4}, false},
		{"2,,", []int{2}, false},
		{"1,x", nil, true},
	}

	for _, tc := range tests {
		got, err := parseIDs(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseIDs(%q) error = %v", tc.in, err)
			continue
		}
		if !tc.wantErr && !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseIDs(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
