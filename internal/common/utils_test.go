package common

import "testing"

func TestHasAny(t *testing.T) {
	tests := []struct {
		name string
		s    string
		subs []string
		want bool
	}{
		{"match", "light rain", []string{"snow", "rain"}, true},
		{"no match", "clear sky", []string{"snow", "rain"}, false},
		{"no substrings", "clear sky", nil, false},
		{"empty substring ignored", "clear sky", []string{""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasAny(tt.s, tt.subs...); got != tt.want {
				t.Errorf("HasAny(%q, %v) = %v, want %v", tt.s, tt.subs, got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{" , ,", nil},
		{"kafka-1:9092", []string{"kafka-1:9092"}},
		{"a, b ,,c", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		got := SplitList(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitList(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
