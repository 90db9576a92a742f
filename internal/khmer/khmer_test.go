package khmer

import "testing"

func TestContains(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want bool
	}{
		{name: "khmer word", text: "សួស្តី", want: true},
		{name: "mixed", text: "hello ខ្ញុំ", want: true},
		{name: "latin only", text: "hello world", want: false},
		{name: "empty", text: "", want: false},
		{name: "thai not khmer", text: "สวัสดี", want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Contains(tc.text); got != tc.want {
				t.Fatalf("Contains(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestGreeting(t *testing.T) {
	t.Parallel()

	if got := Greeting(8); got != "សួស្តី អរុណសួស្តី!" {
		t.Fatalf("Greeting(8) = %q", got)
	}
	if got := Greeting(14); got != "សួស្តី ទិវាសួស្តី!" {
		t.Fatalf("Greeting(14) = %q", got)
	}
	if got := Greeting(21); got != "សួស្តី រាត្រីសួស្តី!" {
		t.Fatalf("Greeting(21) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("short", 100); got != "short" {
		t.Fatalf("Truncate() = %q, want unchanged", got)
	}
	if got := Truncate("abcdefghij", 4); got != "abcd..." {
		t.Fatalf("Truncate() = %q, want %q", got, "abcd...")
	}
	// Rune-safe on multibyte text.
	if got := Truncate("ខ្ញុំស្រឡាញ់ភាសាខ្មែរ", 5); got == "" {
		t.Fatalf("Truncate() returned empty for khmer text")
	}
}
