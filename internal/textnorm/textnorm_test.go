package textnorm

import (
	"errors"
	"strings"
	"testing"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

func TestNormalizeDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \t\n ", ""},
		{"diacritics", "حَدَّثَنَا", "حدثنا"},
		{"hamza variants", "أبو إسحاق آمنة", "ابو اسحاق امنه"},
		{"ya and waw", "موسى سئل مؤمن", "موسي سيل مومن"},
		{"lam alef ligature", "\uFEFB إله", "لا اله"},
		{"punctuation", "قال: نعم، ثم (ذهب)", "قال نعم ثم ذهب"},
		{"collapse", "  عن   مالك \n عن نافع ", "عن مالك عن نافع"},
		{"tatweel", "حـــدثنا", "حدثنا"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in, DefaultOptions())
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeToggles(t *testing.T) {
	in := "حَدَّثَنَا 12 ٣٤"

	keep := Normalize(in, Options{CollapseSpace: true})
	if keep != in {
		t.Errorf("only collapse: got %q, want %q", keep, in)
	}

	digitsOff := Normalize(in, Options{StripDigits: true, CollapseSpace: true})
	if strings.ContainsAny(digitsOff, "0123456789٣٤") {
		t.Errorf("digits left in %q", digitsOff)
	}
	if !strings.Contains(digitsOff, "حَدَّثَنَا") {
		t.Errorf("diacritics should be kept when not requested: %q", digitsOff)
	}

	noCollapse := Normalize("a  b", Options{})
	if noCollapse != "a  b" {
		t.Errorf("no options: got %q", noCollapse)
	}
}

func TestStripLinkArtifacts(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"عن nindex.php?page=showalam&ids=12070 مالك", "عن مالك"},
		{"قوله nindex.php?page=tafseer&surano=2&ayano=255  تعالى", "قوله تعالى"},
		{"nindex.php?page=hadith&LINKID=77 باب", "باب"},
		{"موضوع nindex.php?page=treesubj&link=12_34_5", "موضوع"},
		{"عن nindex.php?page=showalam&ids=١٢٠٧٠ مالك", "عن مالك"},
		{"موضوع nindex.php?page=treesubj&link=۱۲_٣٤", "موضوع"},
		{"  بلا روابط  ", "بلا روابط"},
	}

	for _, tt := range tests {
		if got := StripLinkArtifacts(tt.in); got != tt.want {
			t.Errorf("StripLinkArtifacts(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripLinkArtifactsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"عن nindex.php?page=showalam&ids=1 مالك",
		// Removing the inner fragment rejoins the outer one.
		"nindex.php?page=tafseer&surano=1nindex.php?page=showalam&ids=5&ayano=2 نص",
		"nindex.php?page=showalam&ids=nindex.php?page=showalam&ids=12 x",
		"a  b\tc",
		"nindex.php?page=treesubj&link=_ nindex.php?page=hadith&LINKID=",
	}

	for _, in := range inputs {
		once := StripLinkArtifacts(in)
		twice := StripLinkArtifacts(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
		if HasLinkArtifact(once) {
			t.Errorf("fragment left in %q", once)
		}
	}
}

func TestCountMarker(t *testing.T) {
	text := "حدثنا يحيى ح وَحَدَّثَنَا قتيبة ح وحدثنا محمد"

	if got := CountMarker(text, ChainMarker); got != 2 {
		t.Errorf("CountMarker = %d, want 2", got)
	}
	if got := CountMarker("لا يوجد فاصل", ChainMarker); got != 0 {
		t.Errorf("CountMarker without marker = %d, want 0", got)
	}
	if got := CountMarker(text, "   "); got != 0 {
		t.Errorf("empty phrase should count 0, got %d", got)
	}
}

func TestCountMarkerWhitespaceInvariant(t *testing.T) {
	pairs := []struct{ text, phrase string }{
		{"حدثنا يحيى ح وَحَدَّثَنَا قتيبة", ChainMarker},
		{"abcabcab", "abc"},
		{"ح وحدثنا ح وحدثنا", "ح وحدثنا"},
	}

	spread := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			b.WriteRune(r)
			b.WriteString(" \t")
		}
		return b.String()
	}

	for _, p := range pairs {
		base := CountMarker(p.text, p.phrase)
		if got := CountMarker(spread(p.text), p.phrase); got != base {
			t.Errorf("text spacing changed count for %q: %d vs %d", p.text, got, base)
		}
		if got := CountMarker(p.text, spread(p.phrase)); got != base {
			t.Errorf("phrase spacing changed count for %q: %d vs %d", p.phrase, got, base)
		}
	}
}

func TestExtractHadithNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"5 حدثنا عبد الله", "5"},
		{"لا رقم هنا", NotAvailable},
		{"4204 - حَدَّثَنَا", NotAvailable},
		{"١٢ حَدَّثَنَا قتيبة", "12"},
		{"30 وبه قال", "30"},
		{"7 أخبرنا مالك", "7"},
		{"8 اخبرنا مالك", "8"},
		{"", NotAvailable},
	}

	for _, tt := range tests {
		if got := ExtractHadithNumber(tt.in); got != tt.want {
			t.Errorf("ExtractHadithNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIdentifiers(t *testing.T) {
	id, err := ChainID("bukhari", 4204, 1, HadithPadding)
	if err != nil {
		t.Fatalf("ChainID: %v", err)
	}
	if id != "bukhari-04204-01" {
		t.Errorf("ChainID = %q, want bukhari-04204-01", id)
	}

	if id, _ := ChainID("bukhari", 4204, 3, 6); id != "bukhari-004204-03" {
		t.Errorf("ChainID width 6 = %q, want bukhari-004204-03", id)
	}

	hid, err := HadithID("bukhari", "5", HadithPadding)
	if err != nil {
		t.Fatalf("HadithID: %v", err)
	}
	if hid != "bukhari-00005" {
		t.Errorf("HadithID = %q", hid)
	}

	if got := PageID(1681, 12); got != "1681-0012" {
		t.Errorf("PageID = %q", got)
	}
	if got := BookID(7); got != "islamweb-0007" {
		t.Errorf("BookID = %q", got)
	}

	if _, err := HadithID("bukhari", NotAvailable, HadithPadding); !errors.Is(err, types.ErrInvalidID) {
		t.Errorf("expected ErrInvalidID for sentinel, got %v", err)
	}
	if _, err := NumberID("", 1, 5); !errors.Is(err, types.ErrInvalidID) {
		t.Errorf("expected ErrInvalidID for empty base, got %v", err)
	}
}

func TestTextID(t *testing.T) {
	hash, normal := TextID("bukhari", "Quran 2:255-اللَّهُ لَا إِلَهَ إِلَّا هُوَ")
	if len(hash) != 32 {
		t.Errorf("hash length = %d, want 32", len(hash))
	}
	if !strings.HasPrefix(normal, "bukhari-") {
		t.Errorf("normal id %q lacks base prefix", normal)
	}

	again, _ := TextID("bukhari", "Quran 2:255-اللَّهُ لَا إِلَهَ إِلَّا هُوَ")
	if again != hash {
		t.Error("hash should be stable")
	}

	_, long := TextID("b", strings.Repeat("كلمة ", 100))
	if n := len([]rune(long)); n != 100 {
		t.Errorf("normal id has %d runes, want 100", n)
	}
}
