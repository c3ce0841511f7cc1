package hexbuild

import "testing"

func TestIsOutput(t *testing.T) {
	out, err := NewPath("out/foo.o")
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsOutput() {
		t.Error("out/foo.o should be an output")
	}

	for _, raw := range []string{"foo.c", "src/foo.c", "output.c"} {
		p, err := NewPath(raw)
		if err != nil {
			t.Fatal(err)
		}
		if p.IsOutput() {
			t.Errorf("%s should not be an output", raw)
		}
	}
}

func TestNewPathRejectsLeadingSlash(t *testing.T) {
	if _, err := NewPath("/out/lib.o"); err == nil {
		t.Error("expected an error for a path starting with a slash")
	}
}

func TestNewPathRejectsDotDot(t *testing.T) {
	if _, err := NewPath("a/../b"); err == nil {
		t.Error("expected an error for a path containing ..")
	}
}

func TestNewPathRejectsDotSegment(t *testing.T) {
	if _, err := NewPath("a/./b"); err == nil {
		t.Error("expected an error for a path containing a `.` segment")
	}
}

func TestNewPathRejectsEmptySegment(t *testing.T) {
	if _, err := NewPath("a//b"); err == nil {
		t.Error("expected an error for a path with a doubled slash")
	}
}

func TestNewPathRejectsTrailingSlash(t *testing.T) {
	if _, err := NewPath("out/foo/"); err == nil {
		t.Error("expected an error for a path with a trailing slash")
	}
}

func TestChild(t *testing.T) {
	root, err := NewPath(".hex/cache")
	if err != nil {
		t.Fatal(err)
	}
	got := root.Child("inputmaps").Child("ABCD")
	if got.String() != ".hex/cache/inputmaps/ABCD" {
		t.Errorf("got %q", got.String())
	}
}
