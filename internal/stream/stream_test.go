package stream

import "testing"

func TestAppend_DropsEmptyParagraphs(t *testing.T) {
	s := New()
	s.Append(0, "   ", nil)
	s.Append(2, "", []string{""})
	if len(s.Paragraphs) != 0 {
		t.Fatalf("expected 0 paragraphs, got %d", len(s.Paragraphs))
	}
}

func TestAppend_ClampsDepthAndDedupsImages(t *testing.T) {
	s := New()
	s.Append(5, " Deep heading ", []string{"rId1", "rId2", "rId1"})
	if len(s.Paragraphs) != 1 {
		t.Fatalf("expected 1 paragraph, got %d", len(s.Paragraphs))
	}
	p := s.Paragraphs[0]
	if p.Depth != 0 {
		t.Errorf("expected depth 0 for level 5, got %d", p.Depth)
	}
	if p.Text != "Deep heading" {
		t.Errorf("expected trimmed text, got %q", p.Text)
	}
	if len(p.Images) != 2 || p.Images[0] != "rId1" || p.Images[1] != "rId2" {
		t.Errorf("expected [rId1 rId2], got %v", p.Images)
	}
}

func TestMerge_PreservesOrder(t *testing.T) {
	got := Merge([]string{"a", "b"}, []string{"b", "c", "a", "d"})
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCanonicalText_Stable(t *testing.T) {
	build := func() *Stream {
		s := New()
		s.AddImage("rId7", "word/media/image1.png")
		s.Append(1, "Главная", nil)
		s.Append(0, "Текст", []string{"rId7"})
		return s
	}
	a, b := build().CanonicalText(), build().CanonicalText()
	if a != b {
		t.Fatalf("expected identical canonical text, got %q and %q", a, b)
	}
	want := "1\tГлавная\n0\tТекст\t!word/media/image1.png\n"
	if a != want {
		t.Errorf("expected %q, got %q", want, a)
	}
}
