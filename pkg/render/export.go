package render

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers"
)

// exportDPI is the raster resolution for PNG output.
const exportDPI = 300

// nativeFormats are written directly by the canvas renderers.
var nativeFormats = map[string]bool{
	".svg": true,
	".png": true,
	".pdf": true,
}

// inkscapeFormats need an Inkscape conversion from an intermediate SVG.
var inkscapeFormats = map[string]bool{
	".ai":  true,
	".eps": true,
	".dxf": true,
}

// SupportedFormats returns the accepted output file extensions.
func SupportedFormats() []string {
	return []string{".svg", ".png", ".pdf", ".ai", ".eps", ".dxf"}
}

// Export writes the canvas to path, choosing the format from the extension.
// SVG, PNG and PDF are written natively; AI, EPS and DXF go through
// Inkscape and fail if it is not installed.
func Export(c *canvas.Canvas, path string) error {
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case nativeFormats[ext]:
		// canvas.Resolution is only a valid option for raster writers;
		// the SVG and PDF writers reject it.
		if ext == ".png" {
			return renderers.Write(path, c, canvas.DPI(exportDPI))
		}
		return renderers.Write(path, c)
	case inkscapeFormats[ext]:
		return exportViaInkscape(c, path, ext)
	default:
		return fmt.Errorf("unsupported output format %q (supported: %s)",
			ext, strings.Join(SupportedFormats(), ", "))
	}
}

// exportViaInkscape writes an intermediate SVG and converts it with the
// Inkscape CLI. AI output uses PostScript, which Illustrator opens directly.
func exportViaInkscape(c *canvas.Canvas, path, ext string) error {
	inkscape, err := exec.LookPath("inkscape")
	if err != nil {
		return fmt.Errorf("inkscape not found, cannot export %s: %w", ext, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "render-*.svg")
	if err != nil {
		return fmt.Errorf("failed to create intermediate svg: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := renderers.Write(tmpPath, c); err != nil {
		return fmt.Errorf("failed to write intermediate svg: %w", err)
	}

	exportType := strings.TrimPrefix(ext, ".")
	target := path
	if ext == ".ai" {
		exportType = "ps"
		target = strings.TrimSuffix(path, ext) + ".ps"
	}

	cmd := exec.Command(inkscape, tmpPath,
		"--export-type="+exportType,
		"--export-filename="+target)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("inkscape export failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	if ext == ".ai" {
		if err := os.Rename(target, path); err != nil {
			return fmt.Errorf("failed to finalize ai export: %w", err)
		}
	}

	return nil
}
