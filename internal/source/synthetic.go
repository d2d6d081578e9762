package source

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/bryanchriswhite/stylecam/internal/frame"
	"github.com/bryanchriswhite/stylecam/internal/logger"
)

const noSignalText = "NO SIGNAL"

// Synthetic produces deterministic placeholder frames when no capture
// device is available: a slowly shifting gradient with a "NO SIGNAL"
// marker. Read always succeeds and never blocks, so the pipeline stays
// live without hardware.
type Synthetic struct {
	width  int
	height int
	fps    int

	seq   uint64
	phase int
	desc  *Descriptor
}

// NewSynthetic creates a generator at the given output format.
func NewSynthetic(width, height, fps int) *Synthetic {
	return &Synthetic{width: width, height: height, fps: fps}
}

func (s *Synthetic) Name() string { return "synthetic" }

// Open never fails; the hint is recorded in the descriptor for status
// output only.
func (s *Synthetic) Open(hint string) (*Descriptor, error) {
	s.desc = &Descriptor{
		Device:    hint,
		Backend:   "synthetic",
		Width:     s.width,
		Height:    s.height,
		FPS:       s.fps,
		Synthetic: true,
	}
	logger.WithComponent("synthetic").Info().
		Int("width", s.width).
		Int("height", s.height).
		Int("fps", s.fps).
		Msg("Synthetic frame generator active")
	return s.desc, nil
}

// Read produces the next placeholder frame.
func (s *Synthetic) Read() (*frame.Frame, error) {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))

	// Diagonal gradient whose phase advances each frame so the output
	// is visibly live.
	for y := 0; y < s.height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < s.width; x++ {
			v := uint8((x + y + s.phase) / 4 % 64)
			i := x * 4
			row[i] = 16 + v
			row[i+1] = 16 + v/2
			row[i+2] = 48 + v
			row[i+3] = 255
		}
	}
	s.phase += 4

	s.drawMarker(img)

	f := frame.FromRGBA(img)
	s.seq++
	f.Seq = s.seq
	f.Timestamp = time.Now()
	return f, nil
}

// Close is a no-op; there is no device to release.
func (s *Synthetic) Close() error { return nil }

// Descriptor returns the generator's descriptor, or nil before Open.
func (s *Synthetic) Descriptor() *Descriptor { return s.desc }

// drawMarker renders the "NO SIGNAL" banner and frame counter.
func (s *Synthetic) drawMarker(img *image.RGBA) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, noSignalText).Ceil()

	cx := (s.width - textWidth) / 2
	cy := s.height / 2

	// Dark banner behind the text for contrast.
	banner := image.Rect(cx-12, cy-face.Ascent-8, cx+textWidth+12, cy+face.Descent+8)
	banner = banner.Intersect(img.Bounds())
	draw.Draw(img, banner, &image.Uniform{color.RGBA{0, 0, 0, 255}}, image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{230, 230, 230, 255}),
		Face: face,
		Dot:  fixed.P(cx, cy),
	}
	d.DrawString(noSignalText)

	counter := strconv.FormatUint(s.seq+1, 10)
	d.Src = image.NewUniform(color.RGBA{128, 128, 128, 255})
	d.Dot = fixed.P(8, s.height-8)
	d.DrawString(counter)
}
