package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/banshee-data/airwrite/internal/stroke"
)

// Ink is the colour Rasterize draws with.
var Ink = color.RGBA{R: 20, G: 20, B: 160, A: 255}

// Rasterize paints segments onto a white width x height image. Screen
// coordinates are scaled from screenWidth x screenHeight; thickness is in
// output pixels. Lines follow the same adjacency rule as Lines and
// single-point runs become a square dot.
func Rasterize(segments []stroke.Segment, screenWidth, screenHeight float64, width, height int, thickness float64) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if width <= 0 || height <= 0 || screenWidth <= 0 || screenHeight <= 0 {
		return dst
	}
	if thickness <= 0 {
		thickness = 1
	}

	sx := float64(width) / screenWidth
	sy := float64(height) / screenHeight
	half := thickness / 2

	z := vector.NewRasterizer(width, height)
	drew := false
	for _, l := range Lines(segments) {
		x0, y0 := l.From.X*sx, l.From.Y*sy
		x1, y1 := l.To.X*sx, l.To.Y*sy
		dx, dy := x1-x0, y1-y0
		n := math.Hypot(dx, dy)
		if n == 0 {
			square(z, x0, y0, half)
			drew = true
			continue
		}
		// Unit normal scaled to half the pen width.
		nx, ny := -dy/n*half, dx/n*half
		z.MoveTo(float32(x0+nx), float32(y0+ny))
		z.LineTo(float32(x1+nx), float32(y1+ny))
		z.LineTo(float32(x1-nx), float32(y1-ny))
		z.LineTo(float32(x0-nx), float32(y0-ny))
		z.ClosePath()
		drew = true
	}
	for _, run := range Runs(segments) {
		if len(run) == 1 {
			square(z, run[0].X*sx, run[0].Y*sy, half)
			drew = true
		}
	}
	if drew {
		z.Draw(dst, dst.Bounds(), image.NewUniform(Ink), image.Point{})
	}
	return dst
}

func square(z *vector.Rasterizer, x, y, half float64) {
	z.MoveTo(float32(x-half), float32(y-half))
	z.LineTo(float32(x+half), float32(y-half))
	z.LineTo(float32(x+half), float32(y+half))
	z.LineTo(float32(x-half), float32(y+half))
	z.ClosePath()
}
