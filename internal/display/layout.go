package display

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	white uint8 = 0xFF
	black uint8 = 0x00

	glyphAscent = 11 // basicfont.Face7x13
	glyphHeight = 13
)

// Graph area in landscape coordinates.
const (
	graphLeft   = 26
	graphRight  = 244
	graphTop    = 18
	graphBottom = 104
)

// DashboardFrame composes the current reading, battery gauge and hints.
func DashboardFrame(bpm uint8, volts float64, buildingHistory bool) *image.Gray {
	img := blank()

	text(img, 4, 14, "TrakkWatch", black)
	text(img, 176, 14, fmt.Sprintf("%.2fV", volts), black)
	batteryIcon(img, 222, 4, volts)
	line(img, 0, 19, Width-1, 19, black)

	if bpm > 0 {
		heartIcon(img, 62, 52)
		bigText(img, Width/2, 68, fmt.Sprintf("%d", bpm), 3)
		centered(img, 84, "BPM")
	} else {
		bigText(img, Width/2, 62, "--", 2)
		centered(img, 82, "No reading")
	}

	if buildingHistory {
		centered(img, 100, "Building history...")
	}
	centered(img, 117, "Tap: graph->sleep->dash")
	return img
}

// GraphFrame plots samples oldest-left to newest-right. Empty slots are
// skipped and do not break the line between their neighbours.
func GraphFrame(samples []uint8) *image.Gray {
	img := blank()
	text(img, 4, 12, "4-Hour History", black)

	line(img, graphLeft, graphTop, graphLeft, graphBottom, black)
	line(img, graphLeft, graphBottom, graphRight, graphBottom, black)

	for bpm := gridFirstBPM; bpm <= gridLastBPM; bpm += GridStepBPM {
		y := GraphY(uint8(bpm))
		dotted(img, graphLeft-2, y, graphRight, black)
		text(img, 2, y+4, fmt.Sprintf("%d", bpm), black)
	}

	plotted := 0
	lastX, lastY := -1, -1
	for i, v := range samples {
		if v == 0 {
			continue
		}
		x, y := GraphX(i, len(samples)), GraphY(v)
		circle(img, x, y, 2, black, true)
		if lastX >= 0 {
			line(img, lastX, lastY, x, y, black)
		}
		lastX, lastY = x, y
		plotted++
	}
	if plotted == 0 {
		centered(img, 64, "No data")
	}

	text(img, graphLeft-8, 118, "4h", black)
	text(img, graphRight-21, 118, "Now", black)
	centered(img, 118, "Double-tap: next")
	return img
}

// SleepSummaryFrame draws the sleep metrics. Values are placeholders until
// sleep staging exists.
func SleepSummaryFrame() *image.Gray {
	img := blank()
	centered(img, 14, "Sleep Summary")
	line(img, 5, 19, Width-6, 19, black)

	rows := []struct{ label, value string }{
		{"Total Sleep", "--h --m"},
		{"Deep Sleep", "--h --m"},
		{"Light Sleep", "--h --m"},
		{"Efficiency", "--%"},
	}
	y := 36
	for _, r := range rows {
		text(img, 8, y, r.label, black)
		text(img, 140, y, r.value, black)
		y += 18
	}

	line(img, 5, 102, Width-6, 102, black)
	centered(img, 117, "Double-tap: next")
	return img
}

// BatteryFill returns the gauge fill width in pixels (0..16).
func BatteryFill(volts float64) int {
	p := (volts - BatteryEmpty) / (BatteryFull - BatteryEmpty)
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return int(16 * p)
}

// GraphX maps slot i of n to a column.
func GraphX(i, n int) int {
	if n <= 1 {
		return graphRight
	}
	return graphLeft + i*(graphRight-graphLeft)/(n-1)
}

// GraphY maps bpm, clamped to the graph range, to a row.
func GraphY(bpm uint8) int {
	v := int(bpm)
	if v < GraphMinBPM {
		v = GraphMinBPM
	}
	if v > GraphMaxBPM {
		v = GraphMaxBPM
	}
	return graphBottom - (v-GraphMinBPM)*(graphBottom-graphTop)/(GraphMaxBPM-GraphMinBPM)
}

func blank() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.Gray{Y: white}}, image.Point{}, draw.Src)
	return img
}

func batteryIcon(img *image.Gray, x, y int, volts float64) {
	rectOutline(img, x, y, x+19, y+9, black)
	fillRect(img, x+20, y+3, x+21, y+6, black)
	if w := BatteryFill(volts); w > 0 {
		fillRect(img, x+2, y+2, x+1+w, y+7, black)
	}
}

func heartIcon(img *image.Gray, cx, cy int) {
	circle(img, cx-5, cy, 5, black, true)
	circle(img, cx+5, cy, 5, black, true)
	for dy := 0; dy <= 13; dy++ {
		half := 10 - dy*10/13
		line(img, cx-half, cy+2+dy, cx+half, cy+2+dy, black)
	}
}

func text(img *image.Gray, x, y int, s string, fg uint8) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Gray{Y: fg}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

func centered(img *image.Gray, y int, s string) {
	text(img, (Width-textWidth(s))/2, y, s, black)
}

// bigText draws s scaled up, centred on cx with its baseline at y.
func bigText(img *image.Gray, cx, y int, s string, scale int) {
	w := textWidth(s)
	src := image.NewGray(image.Rect(0, 0, w, glyphHeight))
	draw.Draw(src, src.Bounds(), &image.Uniform{color.Gray{Y: white}}, image.Point{}, draw.Src)
	text(src, 0, glyphAscent, s, black)

	x0 := cx - w*scale/2
	y0 := y - glyphAscent*scale
	dst := image.Rect(x0, y0, x0+w*scale, y0+glyphHeight*scale)
	draw.NearestNeighbor.Scale(img, dst, src, src.Bounds(), draw.Src, nil)
}

func fillRect(img *image.Gray, x0, y0, x1, y1 int, c uint8) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if image.Pt(x, y).In(img.Rect) {
				img.SetGray(x, y, color.Gray{Y: c})
			}
		}
	}
}

func rectOutline(img *image.Gray, x0, y0, x1, y1 int, c uint8) {
	line(img, x0, y0, x1, y0, c)
	line(img, x0, y1, x1, y1, c)
	line(img, x0, y0, x0, y1, c)
	line(img, x1, y0, x1, y1, c)
}

func dotted(img *image.Gray, x0, y, x1 int, c uint8) {
	for x := x0; x <= x1; x += 2 {
		if image.Pt(x, y).In(img.Rect) {
			img.SetGray(x, y, color.Gray{Y: c})
		}
	}
}

func line(img *image.Gray, x0, y0, x1, y1 int, c uint8) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Rect) {
			img.SetGray(x0, y0, color.Gray{Y: c})
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func circle(img *image.Gray, cx, cy, r int, c uint8, fill bool) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			d := x*x + y*y
			if d > r*r || (!fill && d < (r-1)*(r-1)) {
				continue
			}
			px, py := cx+x, cy+y
			if image.Pt(px, py).In(img.Rect) {
				img.SetGray(px, py, color.Gray{Y: c})
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
