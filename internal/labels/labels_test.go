package labels

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

func TestItemURL(t *testing.T) {
	item := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	unit := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t, "https://portal.example.com/inventory/"+item.String(), ItemURL("https://portal.example.com/", item, nil))
	assert.Equal(t, "https://portal.example.com/inventory/"+item.String()+"?unit="+unit.String(), ItemURL("https://portal.example.com", item, &unit))
}

func TestRender(t *testing.T) {
	data, err := Render("https://portal.example.com/inventory/abc", "Cable Reel", "SKU CR-100")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	assert.Equal(t, qrSize+2*margin, b.Dx())
	assert.Equal(t, qrSize+2*margin+2*lineHeight, b.Dy())
}

func TestRenderWithoutCaption(t *testing.T) {
	data, err := Render("x")
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, qrSize+2*margin, img.Bounds().Dy())
}

func TestWrapCaptionTruncates(t *testing.T) {
	long := "a very long inventory item name that will certainly need more than two lines on a small label"
	lines := wrapCaption(basicfont.Face7x13, []string{long, "SKU-1"}, 120)
	require.Len(t, lines, maxLines)
	assert.Equal(t, "...", lines[1][len(lines[1])-3:])
	for _, l := range lines {
		assert.LessOrEqual(t, measure(basicfont.Face7x13, l), 120)
	}
}
