package chunking

import "testing"

func TestNormalizeFoldsArabicVariants(t *testing.T) {
	cases := map[string]string{
		"أحمد":               "احمد",
		"إسلام":              "اسلام",
		"آمن":                "امن",
		"مكتبة":              "مكتبه",
		"على":                "علي",
		"مُحَمَّدٌ":          "محمد",
		"كـــتاب":            "كتاب",
		"  hello \t  world ": "hello world",
		"":                   "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"الْمَدْرَسَةُ   الكبيرة\nفي  المدينة",
		"Café  au\tlait",
		"إِنَّ ٱللَّهَ",
		"cafe\u0653\u0301 au lait",
	}
	n := NewNormalizer()
	for _, in := range inputs {
		once := n.Normalize(in)
		if twice := n.Normalize(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
		lines := n.NormalizeLines(in)
		if again := n.NormalizeLines(lines); again != lines {
			t.Fatalf("lines not idempotent: %q -> %q", lines, again)
		}
	}
}

func TestNormalizeLinesKeepsLineStructure(t *testing.T) {
	in := "  السطر   الأول \r\n\n\t\nالسطر  الثاني\n"
	got := NormalizeLines(in)
	want := "السطر الاول\nالسطر الثاني"
	if got != want {
		t.Fatalf("NormalizeLines = %q, want %q", got, want)
	}
	if CountLines(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", CountLines(got))
	}
}

func TestNormalizeKeepsHamzaCarriers(t *testing.T) {
	if got := Normalize("سُؤال  مَسائِل"); got != "سؤال مسائل" {
		t.Fatalf("unexpected normalization %q", got)
	}
}
