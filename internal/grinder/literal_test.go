package grinder

import "testing"

func TestPyString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: `''`},
		{in: "text/html", want: `'text/html'`},
		{in: "it's", want: `'it\'s'`},
		{in: `C:\tmp`, want: `'C:\\tmp'`},
		{in: "a\nb\tc\r", want: `'a\nb\tc\r'`},
		{in: "caf\u00e9", want: `'caf\xc3\xa9'`},
		{in: "\x00", want: `'\x00'`},
	}
	for _, tt := range tests {
		if got := pyString(tt.in); got != tt.want {
			t.Errorf("pyString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCommentTextStaysOnOneLine(t *testing.T) {
	got := commentText("Shop\r\nHome \u00e9")
	want := `Shop  Home \xc3\xa9`
	if got != want {
		t.Fatalf("commentText() = %q, want %q", got, want)
	}
}
