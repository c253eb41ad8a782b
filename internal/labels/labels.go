// Package labels renders printable QR labels for inventory items and units.
package labels

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/url"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	qrSize     = 256
	margin     = 12
	lineHeight = 16
	maxLines   = 2
)

var (
	cWhite = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 255}
	cInk   = color.RGBA{R: 0x1A, G: 0x1A, B: 0x2E, A: 255}
)

// ItemURL is the deep link encoded in a label.
func ItemURL(baseURL string, itemID uuid.UUID, unitID *uuid.UUID) string {
	u := strings.TrimRight(baseURL, "/") + "/inventory/" + itemID.String()
	if unitID != nil {
		u += "?unit=" + url.QueryEscape(unitID.String())
	}
	return u
}

// Render draws a QR code for content with the caption lines underneath and returns PNG bytes.
func Render(content string, caption ...string) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	qr.DisableBorder = true
	code := qr.Image(qrSize)

	face := basicfont.Face7x13
	textW := qrSize
	lines := wrapCaption(face, caption, textW)

	w := qrSize + 2*margin
	h := qrSize + 2*margin + len(lines)*lineHeight
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: cWhite}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(margin, margin, margin+qrSize, margin+qrSize), code, image.Point{}, draw.Src)

	y := margin + qrSize + lineHeight - 3
	for _, line := range lines {
		lw := measure(face, line)
		drawText(img, face, margin+(textW-lw)/2, y, line)
		y += lineHeight
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawText(img *image.RGBA, face font.Face, x, y int, text string) {
	(&font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(cInk),
		Face: face,
		Dot:  fixed.P(x, y),
	}).DrawString(text)
}

func measure(face font.Face, text string) int {
	return (&font.Drawer{Face: face}).MeasureString(text).Ceil()
}

// wrapCaption breaks every caption entry to fit maxW and truncates the result to maxLines.
func wrapCaption(face font.Face, caption []string, maxW int) []string {
	var out []string
	for _, c := range caption {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		var line string
		for _, word := range strings.Fields(c) {
			next := word
			if line != "" {
				next = line + " " + word
			}
			if measure(face, next) <= maxW || line == "" {
				line = next
				continue
			}
			out = append(out, line)
			line = word
		}
		out = append(out, line)
	}
	if len(out) > maxLines {
		out = out[:maxLines]
		last := []rune(out[maxLines-1])
		if len(last) > 3 {
			out[maxLines-1] = string(last[:len(last)-3]) + "..."
		}
	}
	for i, l := range out {
		for measure(face, l) > maxW && len(l) > 1 {
			l = l[:len(l)-1]
		}
		out[i] = l
	}
	return out
}
