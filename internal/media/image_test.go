package media

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, solidFrame(w, h, color.RGBA{G: 200, A: 255})); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()

	t.Run("png", func(t *testing.T) {
		path := filepath.Join(dir, "a.png")
		writePNG(t, path, 12, 7)

		img, err := LoadImage(path)
		if err != nil {
			t.Fatalf("LoadImage() error = %v", err)
		}
		if got := img.Bounds().Size(); got != image.Pt(12, 7) {
			t.Errorf("size = %v, want 12x7", got)
		}
	})

	t.Run("jpeg", func(t *testing.T) {
		path := filepath.Join(dir, "b.jpg")
		f, err := os.Create(path)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := jpeg.Encode(f, solidFrame(9, 9, color.RGBA{R: 90, A: 255}), nil); err != nil {
			t.Fatalf("encode jpeg: %v", err)
		}
		_ = f.Close()

		if _, err := LoadImage(path); err != nil {
			t.Errorf("LoadImage() error = %v", err)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(dir, "c.png")
		if err := os.WriteFile(path, []byte("not an image"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadImage(path); err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadImage(filepath.Join(dir, "missing.png"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})
}

func TestToRGBA(t *testing.T) {
	gray := image.NewGray(image.Rect(2, 3, 6, 8))
	gray.SetGray(2, 3, color.Gray{Y: 255})

	rgba := ToRGBA(gray)
	if rgba.Bounds() != image.Rect(0, 0, 4, 5) {
		t.Errorf("bounds = %v, want origin-based 4x5", rgba.Bounds())
	}
	if r, _, _, _ := rgba.At(0, 0).RGBA(); r != 0xffff {
		t.Errorf("top-left pixel not carried over, r=%d", r)
	}

	already := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if ToRGBA(already) != already {
		t.Error("origin-based RGBA should be returned as is")
	}
}

func TestResize(t *testing.T) {
	src := solidFrame(10, 40, color.RGBA{B: 255, A: 255})

	out, err := Resize(src, 30, 20)
	if err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 30, 20) {
		t.Errorf("bounds = %v, want stretched 30x20", out.Bounds())
	}
	if _, _, b, _ := out.At(15, 10).RGBA(); b == 0 {
		t.Error("expected colour to survive scaling")
	}

	same, err := Resize(src, 10, 40)
	if err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if same != src {
		t.Error("matching size should not rescale")
	}

	if _, err := Resize(src, 0, 5); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}
