package framescan

import (
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// maxArchivedBytes is the size above which archived frames are downscaled.
const maxArchivedBytes = 1_000_000

// moveToProcessed moves dir/name to dir/processed/name. Large frames are
// downscaled on the way; rename falls back to copy+remove across devices.
func moveToProcessed(dir, name string) error {
	processedDir := filepath.Join(dir, ProcessedDir)
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return err
	}
	src := filepath.Join(dir, name)
	dst := filepath.Join(processedDir, name)

	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if fi.Size() <= maxArchivedBytes {
		return renameOrCopy(src, dst)
	}
	img, err := imaging.Open(src)
	if err != nil {
		return renameOrCopy(src, dst)
	}
	// encoded size roughly scales with area
	scale := math.Sqrt(float64(maxArchivedBytes) / float64(fi.Size()))
	scale = math.Max(0.1, math.Min(scale, 0.95))
	w := int(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
	h := int(math.Max(1, math.Round(float64(img.Bounds().Dy())*scale)))
	if err := imaging.Save(imaging.Resize(img, w, h, imaging.Lanczos), dst); err != nil {
		return renameOrCopy(src, dst)
	}
	return os.Remove(src)
}

func renameOrCopy(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
