package censor

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func TestCensor_Censor(t *testing.T) {
	tests := []struct {
		name        string
		terms       []string
		whitelist   []string
		fullWords   bool
		text        string
		wantClean   string
		wantMatched []string
	}{
		{
			name:        "Whitelisted phrase holding a banned term",
			terms:       []string{"badword"},
			whitelist:   []string{"goodbadwordword"},
			text:        "this is a badword and goodbadwordword",
			wantClean:   "this is a ******* and goodbadwordword",
			wantMatched: []string{"badword"},
		},
		{
			name:        "Leetspeak",
			terms:       []string{"badword"},
			text:        "you b4dw0rd!",
			wantClean:   "you *******!",
			wantMatched: []string{"b4dw0rd"},
		},
		{
			name:        "Spaced out letters",
			terms:       []string{"badword"},
			text:        "badword and b a d w o r d",
			wantClean:   "******* and *************",
			wantMatched: []string{"badword"},
		},
		{
			name:        "Punctuation between letters",
			terms:       []string{"badword"},
			text:        "what a b*a*d*w*o*r*d thing",
			wantClean:   "what a ************* thing",
			wantMatched: []string{"badword"},
		},
		{
			name:        "Case-insensitive",
			terms:       []string{"badword"},
			text:        "BadWord",
			wantClean:   "*******",
			wantMatched: []string{"badword"},
		},
		{
			name:        "Substrings without full words",
			terms:       []string{"ass"},
			text:        "class ass",
			wantClean:   "cl*** ***",
			wantMatched: []string{"ass"},
		},
		{
			name:        "Full words only",
			terms:       []string{"ass"},
			fullWords:   true,
			text:        "class ass",
			wantClean:   "class ***",
			wantMatched: []string{"ass"},
		},
		{
			name:        "Case-insensitive whitelist",
			terms:       []string{"ass"},
			whitelist:   []string{"classic"},
			text:        "Classic ass",
			wantClean:   "Classic ***",
			wantMatched: []string{"ass"},
		},
		{
			name:        "HTML entities are decoded",
			terms:       []string{"badword"},
			text:        "b&#97;dword",
			wantClean:   "*******",
			wantMatched: []string{"badword"},
		},
		{
			name:        "Reserved runes in input",
			terms:       []string{"badword"},
			text:        "bad\uE000word",
			wantClean:   "********",
			wantMatched: []string{"badword"},
		},
		{
			name:        "Raw pattern",
			terms:       []string{"(evil|wicked)word"},
			text:        "a wickedword here",
			wantClean:   "a ********** here",
			wantMatched: []string{"wickedword"},
		},
		{
			name:        "Wildcard",
			terms:       []string{"b*d"},
			text:        "bad bud b_d",
			wantClean:   "*** *** ***",
			wantMatched: []string{"bad", "bud", "b_d"},
		},
		{
			name:        "Matches are reported once",
			terms:       []string{"bad"},
			text:        "bad, bad, bad",
			wantClean:   "***, ***, ***",
			wantMatched: []string{"bad"},
		},
		{
			name:        "Long run of symbols between letters",
			terms:       []string{"badword"},
			text:        "b" + strings.Repeat("%", 30) + "adword!",
			wantClean:   strings.Repeat("*", 37) + "!",
			wantMatched: []string{"badword"},
		},
		{
			name:        "Tab inside a two word term",
			terms:       []string{"bad word"},
			text:        "a bad\tword here",
			wantClean:   "a ******** here",
			wantMatched: []string{"bad word"},
		},
		{
			name:        "Term spelled with leet symbols",
			terms:       []string{"a$$hole"},
			text:        "you a$$hole",
			wantClean:   "you *******",
			wantMatched: []string{"a$$hole"},
		},
		{
			name:        "Leet symbol term matches plain spelling",
			terms:       []string{"a$$hole"},
			text:        "you asshole",
			wantClean:   "you *******",
			wantMatched: []string{"asshole"},
		},
		{
			name:        "Nothing to mask",
			terms:       []string{"badword"},
			text:        "a perfectly fine sentence",
			wantClean:   "a perfectly fine sentence",
			wantMatched: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			if err := c.SetBannedTerms(tt.terms...); err != nil {
				t.Fatalf("SetBannedTerms() returned error: %v", err)
			}
			c.SetWhitelist(tt.whitelist...)

			res, err := c.Censor(tt.text, tt.fullWords)
			if err != nil {
				t.Fatalf("Censor() returned error: %v", err)
			}
			if res.Orig != tt.text {
				t.Errorf("want orig %q, got %q", tt.text, res.Orig)
			}
			if res.Clean != tt.wantClean {
				t.Errorf("want clean %q, got %q", tt.wantClean, res.Clean)
			}
			if !reflect.DeepEqual(res.Matched, tt.wantMatched) {
				t.Errorf("want matched %q, got %q", tt.wantMatched, res.Matched)
			}
		})
	}
}

func TestCensor_matchedAlwaysMasked(t *testing.T) {
	c := New()
	if err := c.SetBannedTerms("badword", "bad word", "evil", "b*d", "(wicked|vile)one"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}

	for _, text := range []string{
		"b" + strings.Repeat("%", 30) + "adword",
		"so b~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~a d w o r d",
		"a bad\tword, a bad\u00a0word",
		"e.v.i.l and EVIL and 3v!l",
		"the wickedone, the vile-one",
		"bid band bond",
	} {
		for _, fullWords := range []bool{false, true} {
			res, err := c.Censor(text, fullWords)
			if err != nil {
				t.Fatalf("Censor(%q) returned error: %v", text, err)
			}
			if len(res.Matched) == 0 {
				continue
			}
			if res.Clean == text {
				t.Errorf("Censor(%q): matched %q but nothing masked", text, res.Matched)
			}

			again, err := c.Censor(res.Clean, fullWords)
			if err != nil {
				t.Fatalf("Censor(%q) returned error: %v", res.Clean, err)
			}
			if len(again.Matched) != 0 {
				t.Errorf("Censor(%q) = %q: %q still visible", text, res.Clean, again.Matched)
			}
		}
	}
}

func TestViews(t *testing.T) {
	guarded := []rune("B.a" + placeholder(0) + "d!")
	vs := views(guarded)

	want := []struct {
		text string
		pos  []int
	}{
		{"ba", []int{0, 2}},
		{"b.a", []int{0, 1, 2}},
		{"d", []int{len(guarded) - 2}},
		{"d!", []int{len(guarded) - 2, len(guarded) - 1}},
	}

	if len(vs) != len(want) {
		t.Fatalf("want %d views, got %d: %+v", len(want), len(vs), vs)
	}
	for i, w := range want {
		if vs[i].text != w.text || !reflect.DeepEqual(vs[i].pos, w.pos) {
			t.Errorf("view #%d: want %q %v, got %q %v", i, w.text, w.pos, vs[i].text, vs[i].pos)
		}
	}
}

func TestCensor_noTerms(t *testing.T) {
	c := New()
	c.SetWhitelist("anything")

	text := "b&#97;d \uE000 text"
	res, err := c.Censor(text, true)
	if err != nil {
		t.Fatalf("Censor() returned error: %v", err)
	}
	if res.Clean != text || res.Orig != text || len(res.Matched) != 0 {
		t.Errorf("want untouched result, got %+v", res)
	}
}

func TestCensor_lengthPreserved(t *testing.T) {
	c := New()
	if err := c.SetBannedTerms("badword", "ass", "b*d"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}
	if err := c.SetFillValue("•"); err != nil {
		t.Fatalf("SetFillValue() returned error: %v", err)
	}

	for _, text := range []string{
		"bädword über alles",
		"b a d w o r d",
		"a glass of b.a.d.w.o.r.d",
		"ßad bed bid",
		"日本語 badword 日本語",
	} {
		res, err := c.Censor(text, false)
		if err != nil {
			t.Fatalf("Censor(%q) returned error: %v", text, err)
		}
		if want, got := utf8.RuneCountInString(text), utf8.RuneCountInString(res.Clean); want != got {
			t.Errorf("Censor(%q) = %q: want %d runes, got %d", text, res.Clean, want, got)
		}
	}
}

func TestCensor_idempotent(t *testing.T) {
	c := New()
	if err := c.SetBannedTerms("badword", "evil"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}

	first, err := c.Censor("such an evil b4dword, b a d w o r d", false)
	if err != nil {
		t.Fatalf("Censor() returned error: %v", err)
	}
	second, err := c.Censor(first.Clean, false)
	if err != nil {
		t.Fatalf("Censor() returned error: %v", err)
	}

	if second.Clean != first.Clean {
		t.Errorf("want %q, got %q", first.Clean, second.Clean)
	}
	if len(second.Matched) != 0 {
		t.Errorf("want nothing matched in masked text, got %q", second.Matched)
	}
}

func TestCensor_fillPalette(t *testing.T) {
	const palette = "#$%"

	c := New()
	if err := c.SetBannedTerms("evil"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}
	if err := c.SetFillValue(palette); err != nil {
		t.Fatalf("SetFillValue() returned error: %v", err)
	}

	for i := 0; i < 10; i++ {
		res, err := c.Censor("so evil", false)
		if err != nil {
			t.Fatalf("Censor() returned error: %v", err)
		}
		if !strings.HasPrefix(res.Clean, "so ") {
			t.Fatalf("want prefix %q kept, got %q", "so ", res.Clean)
		}

		span := strings.TrimPrefix(res.Clean, "so ")
		if utf8.RuneCountInString(span) != 4 {
			t.Fatalf("want 4 masked runes, got %q", span)
		}
		for _, r := range span {
			if !strings.ContainsRune(palette, r) {
				t.Fatalf("masked span %q holds %q outside the palette", span, r)
			}
		}
	}
}

func TestCensor_SetFillValue(t *testing.T) {
	c := New()

	if err := c.SetFillValue(""); !errors.Is(err, ErrEmptyFill) {
		t.Errorf("want ErrEmptyFill, got %v", err)
	}
	if got := c.FillValue(); got != DefaultFill {
		t.Errorf("want fill %q kept, got %q", DefaultFill, got)
	}

	for _, fill := range []string{"a", "7", "ß", "*x", "\uE000"} {
		if err := c.SetFillValue(fill); !errors.Is(err, ErrInvalidFill) {
			t.Errorf("SetFillValue(%q): want ErrInvalidFill, got %v", fill, err)
		}
	}

	if err := c.SetFillValue("-"); err != nil {
		t.Fatalf("SetFillValue() returned error: %v", err)
	}
	if err := c.SetBannedTerms("bad"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}
	res, _ := c.Censor("bad", false)
	if res.Clean != "---" {
		t.Errorf("want %q, got %q", "---", res.Clean)
	}
}

func TestCensor_symbolFill(t *testing.T) {
	c := New()
	if err := c.SetBannedTerms("sss"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}
	if err := c.SetFillValue("$"); err != nil {
		t.Fatalf("SetFillValue() returned error: %v", err)
	}

	first, err := c.Censor("x sss y", false)
	if err != nil {
		t.Fatalf("Censor() returned error: %v", err)
	}
	if first.Clean != "x $$$ y" {
		t.Fatalf("want %q, got %q", "x $$$ y", first.Clean)
	}

	// '$' spells 's', so the masked span is found again
	second, err := c.Censor(first.Clean, false)
	if err != nil {
		t.Fatalf("Censor() returned error: %v", err)
	}
	if second.Clean != first.Clean || !reflect.DeepEqual(second.Matched, []string{"$$$"}) {
		t.Errorf("want %q with %q matched, got %q with %q", first.Clean, []string{"$$$"}, second.Clean, second.Matched)
	}
}

func TestCensor_patternCompileError(t *testing.T) {
	c := New()
	if err := c.SetBannedTerms("ok"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}

	err := c.SetBannedTerms("fine", "(bad")
	var pce *PatternCompileError
	if !errors.As(err, &pce) {
		t.Fatalf("want *PatternCompileError, got %v", err)
	}
	if pce.Index != 1 || pce.Term != "(bad" {
		t.Errorf("want index 1 and term %q, got %d and %q", "(bad", pce.Index, pce.Term)
	}

	if err := c.AddBannedTerms("b[ad"); !errors.As(err, &pce) {
		t.Fatalf("want *PatternCompileError, got %v", err)
	}
	if pce.Index != 1 {
		t.Errorf("want index 1 after the existing term, got %d", pce.Index)
	}

	if got := c.Terms(); !reflect.DeepEqual(got, Terms("ok")) {
		t.Errorf("want terms untouched, got %+v", got)
	}
}

func TestCensor_invalidTermsSkipped(t *testing.T) {
	c := New()
	if err := c.SetBannedTerms("", "*", "bad", "**"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}

	if got := c.Terms(); !reflect.DeepEqual(got, Terms("bad")) {
		t.Errorf("want only %q registered, got %+v", "bad", got)
	}
}

func TestCensor_duplicateTerms(t *testing.T) {
	c := New()
	if err := c.SetBannedTerms("bad", "evil", "bad"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}
	if err := c.AddBannedTerms("evil", "vile", "vile"); err != nil {
		t.Fatalf("AddBannedTerms() returned error: %v", err)
	}

	if got, want := c.Terms(), Terms("bad", "evil", "vile"); !reflect.DeepEqual(got, want) {
		t.Errorf("want %+v, got %+v", want, got)
	}
}

func TestValidate(t *testing.T) {
	got, err := Validate(Terms("bad", "", "bad", "b*d", "*")...)
	if err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if want := Terms("bad", "b*d"); !reflect.DeepEqual(got, want) {
		t.Errorf("want %+v, got %+v", want, got)
	}

	_, err = Validate(Terms("", "fine", "(broken")...)
	var pce *PatternCompileError
	if !errors.As(err, &pce) || pce.Index != 2 {
		t.Errorf("want *PatternCompileError at index 2, got %v", err)
	}
}

func TestCensor_termBoundary(t *testing.T) {
	c := New()
	err := c.SetTerms(
		Term{Text: "ass", Boundary: BoundaryAlways},
		Term{Text: "hell", Boundary: BoundaryNever},
	)
	if err != nil {
		t.Fatalf("SetTerms() returned error: %v", err)
	}

	for _, fullWords := range []bool{false, true} {
		res, err := c.Censor("class ass shellfish", fullWords)
		if err != nil {
			t.Fatalf("Censor() returned error: %v", err)
		}
		if want := "class *** s****fish"; res.Clean != want {
			t.Errorf("fullWords=%v: want %q, got %q", fullWords, want, res.Clean)
		}
	}
}

func TestCensor_Check(t *testing.T) {
	c := New()
	if err := c.SetBannedTerms("badword"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}

	tests := []struct {
		text string
		want bool
	}{
		{"nice words only", false},
		{"b4dw0rd", true},
		{"B.A.D.W.O.R.D", true},
	}

	for _, tt := range tests {
		got, err := c.Check(tt.text)
		if err != nil {
			t.Fatalf("Check(%q) returned error: %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("Check(%q) = %v; want %v", tt.text, got, tt.want)
		}
	}
}

func TestCensor_invalidation(t *testing.T) {
	c := New()
	if err := c.SetBannedTerms("bad"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}

	res, _ := c.Censor("bad and evil", false)
	if res.Clean != "*** and evil" {
		t.Fatalf("want %q, got %q", "*** and evil", res.Clean)
	}

	if err := c.AddBannedTerms("evil"); err != nil {
		t.Fatalf("AddBannedTerms() returned error: %v", err)
	}
	res, _ = c.Censor("bad and evil", false)
	if res.Clean != "*** and ****" {
		t.Errorf("want %q, got %q", "*** and ****", res.Clean)
	}

	c.AddWhitelist("bad and")
	res, _ = c.Censor("bad and evil", false)
	if res.Clean != "bad and ****" {
		t.Errorf("want %q, got %q", "bad and ****", res.Clean)
	}
}

func TestCensor_concurrent(t *testing.T) {
	c := New()
	if err := c.SetBannedTerms("badword"); err != nil {
		t.Fatalf("SetBannedTerms() returned error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				res, err := c.Censor("a badword here", j%2 == 0)
				if err != nil {
					t.Errorf("Censor() returned error: %v", err)
					return
				}
				if res.Clean != "a ******* here" {
					t.Errorf("want %q, got %q", "a ******* here", res.Clean)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			c.AddWhitelist("harmless")
		}()
	}
	wg.Wait()
}
