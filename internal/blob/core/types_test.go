package core

import "testing"

func TestKeyForFilePath(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "uploads/H-1/card.pdf", want: "uploads/H-1/card.pdf"},
		{in: "./uploads/H-1/card.pdf", want: "uploads/H-1/card.pdf"},
		{in: "/uploads//H-1/card.pdf", want: "uploads/H-1/card.pdf"},
		{in: `uploads\H-1\card.pdf`, want: "uploads/H-1/card.pdf"},
		{in: "  ", wantErr: true},
		{in: "/", wantErr: true},
		{in: "uploads/../../etc/passwd", wantErr: true},
	}
	for _, tc := range cases {
		got, err := KeyForFilePath(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
