package ocr

import (
	"image"
	"testing"
)

func TestRegionOfInterest(t *testing.T) {
	cases := []struct {
		name   string
		bounds image.Rectangle
		want   image.Rectangle
	}{
		{"portrait", image.Rect(0, 0, 1080, 1920), image.Rect(108, 879, 972, 1041)},
		{"landscape", image.Rect(0, 0, 1920, 1080), image.Rect(384, 459, 1536, 621)},
		{"square", image.Rect(0, 0, 1000, 1000), image.Rect(200, 425, 800, 575)},
		{"offset", image.Rect(100, 100, 1100, 1100), image.Rect(300, 525, 900, 675)},
	}
	for _, c := range cases {
		got := RegionOfInterest(c.bounds)
		if got != c.want {
			t.Fatalf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}

func TestRegionOfInterestEmpty(t *testing.T) {
	if got := RegionOfInterest(image.Rectangle{}); !got.Empty() {
		t.Fatalf("expected empty rect, got %v", got)
	}
}
