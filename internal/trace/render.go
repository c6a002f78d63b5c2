package trace

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ayusman/tripoint/internal/touch"
)

var (
	pointerColor = color.RGBA{R: 0x2e, G: 0x8b, B: 0x57, A: 0xff}
	refColors    = [3]color.RGBA{
		{R: 0xd9, G: 0x53, B: 0x3c, A: 0xff},
		{R: 0x3c, G: 0x6e, B: 0xd9, A: 0xff},
		{R: 0xd9, G: 0xa4, B: 0x3c, A: 0xff},
	}
	refLabels = [3]string{"thumb", "middle", "pinky"}
)

// Renderer turns completed paths into PNG files in a directory.
type Renderer struct {
	dir string
}

// NewRenderer creates a renderer writing into dir, creating it if needed.
func NewRenderer(dir string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	return &Renderer{dir: dir}, nil
}

// Render writes the path as a PNG named after its start time and returns the
// file path. The image is written to a temporary file first and renamed into
// place so readers never observe a partial file.
func (r *Renderer) Render(path Path) (string, error) {
	if path.Empty() {
		return "", fmt.Errorf("render: empty path")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("trace %s, %d points, %s",
		path.StartedAt.Format("15:04:05"),
		len(path.Points),
		path.EndedAt.Sub(path.StartedAt).Round(time.Millisecond))
	p.X.Min, p.X.Max = 0, touch.NormMax
	p.Y.Min, p.Y.Max = 0, touch.NormMax
	p.Add(plotter.NewGrid())

	for i, ref := range path.Refs {
		if len(ref) == 0 {
			continue
		}
		line, err := plotter.NewLine(toXYs(ref))
		if err != nil {
			return "", fmt.Errorf("render ref path: %w", err)
		}
		line.Color = refColors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(refLabels[i], line)
	}

	line, err := plotter.NewLine(toXYs(path.Points))
	if err != nil {
		return "", fmt.Errorf("render pointer path: %w", err)
	}
	line.Color = pointerColor
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("pointer", line)
	p.Legend.Top = true

	name := fmt.Sprintf("trace_%s.png", path.StartedAt.Format("2006-01-02_15-04-05.000"))
	final := filepath.Join(r.dir, name)
	tmp := final + ".tmp"

	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("render: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("render: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("render: %w", err)
	}
	return final, nil
}

// toXYs flips Y so pad-up appears at the top of the image.
func toXYs(pts []touch.Point) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.X, Y: touch.NormMax - pt.Y}
	}
	return xys
}
