package value

import "testing"

func TestKeywords(t *testing.T) {
	cases := map[string]byte{"full": 255, "half": 128, "out": 0}
	for s, want := range cases {
		got, err := Parse(s)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("Parse(%q)=%d want %d", s, got, want)
		}
	}
}

func TestPercentage(t *testing.T) {
	cases := map[string]byte{
		"0%":   0,
		"100%": 255,
		"50%":  127, // 0.5 * 255 = 127.5, truncated towards zero
	}
	for s, want := range cases {
		got, err := Parse(s)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("Parse(%q)=%d want %d", s, got, want)
		}
	}
}

func TestInteger(t *testing.T) {
	got, err := Parse("200")
	if err != nil {
		t.Fatal(err)
	}
	if got != 200 {
		t.Fatalf("Parse(200)=%d", got)
	}
}

func TestOutOfRange(t *testing.T) {
	for _, s := range []string{"256", "-1", "101%"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("Parse(%q) should have failed", s)
		}
	}
}

func TestMalformed(t *testing.T) {
	for _, s := range []string{"", "abc", "%", "full%"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("Parse(%q) should have failed", s)
		}
	}
}

func FuzzParse(f *testing.F) {
	f.Add("full")
	f.Add("half")
	f.Add("out")
	f.Add("50%")
	f.Add("128")

	f.Fuzz(func(t *testing.T, s string) {
		b, err := Parse(s)
		if err != nil {
			return
		}
		_ = b // any returned byte is by construction in [0,255]
	})
}
