package coords

import "testing"

func TestToAndFromScreenTLRoundTrip(t *testing.T) {
	cases := []struct {
		frame         Frame
		width, height int
		p             Point
	}{
		{ScreenTL, 10, 10, Point{3, 4}},
		{CartesianBL, 10, 10, Point{3, 4}},
		{CartesianCenter, 10, 10, Point{3, 4}},
		{CartesianCenter, 11, 11, Point{-2, 2}},
	}
	for _, c := range cases {
		screen := ToScreenTL(c.p, c.frame, c.width, c.height)
		back := FromScreenTL(screen, c.frame, c.width, c.height)
		if back != c.p {
			t.Errorf("frame %v: round trip %v -> %v -> %v, want original", c.frame, c.p, screen, back)
		}
	}
}

func TestCartesianBLFlipsY(t *testing.T) {
	// Bottom-left origin: y=0 in Cartesian space is the last screen row.
	p := ToScreenTL(Point{X: 0, Y: 0}, CartesianBL, 10, 10)
	if p != (Point{X: 0, Y: 9}) {
		t.Fatalf("got %+v, want {0,9}", p)
	}
}

func TestConvertBetweenNonScreenFrames(t *testing.T) {
	p := Point{X: 2, Y: 2}
	converted := Convert(p, CartesianBL, CartesianCenter, 10, 10)
	back := Convert(converted, CartesianCenter, CartesianBL, 10, 10)
	if back != p {
		t.Fatalf("round trip via Convert: got %+v, want %+v", back, p)
	}
}

func TestParseFrame(t *testing.T) {
	for _, name := range []string{"screen_tl", "cartesian_bl", "cartesian_center"} {
		if _, err := ParseFrame(name); err != nil {
			t.Errorf("ParseFrame(%q) unexpected error: %v", name, err)
		}
	}
	if _, err := ParseFrame("nonsense"); err == nil {
		t.Fatal("expected error for unknown frame name")
	}
}

func TestProjectScalesAndClamps(t *testing.T) {
	p := Project(Point{X: 5, Y: 5}, 10, 10, 20, 20)
	if p != (Point{X: 10, Y: 10}) {
		t.Fatalf("got %+v, want {10,10}", p)
	}

	clamped := Project(Point{X: -5, Y: 500}, 10, 10, 20, 20)
	if clamped.X < 0 || clamped.Y >= 20 {
		t.Fatalf("expected clamped point within bounds, got %+v", clamped)
	}
}
