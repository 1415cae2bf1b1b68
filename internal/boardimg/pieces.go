package boardimg

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
)

// Piece glyphs are inline vector outlines on a 45x45 viewbox, filled and
// stroked per side. Rasterized pieces are cached per (glyph, size).

const pieceViewBox = 45

var piecePaths = map[byte]string{
	'p': `<path d="M22.5 10c-3 0-5.4 2.4-5.4 5.4 0 1.7.8 3.2 2 4.2-3.3 1.9-5.6 5.4-5.6 9.4h18c0-4-2.3-7.5-5.6-9.4 1.2-1 2-2.5 2-4.2 0-3-2.4-5.4-5.4-5.4z"/><path d="M11 31h23v5H11z"/>`,
	'r': `<path d="M12 11h4v4h4v-4h5v4h4v-4h4v8l-3 3v10h-15V22l-3-3z"/><path d="M11 32h23v4H11z"/>`,
	'n': `<path d="M15 32c0-9 3-13 7-16l-1-5 5 3c6 1 9 6 9 12v6z"/><path d="M11 32h23v4H11z"/>`,
	'b': `<path d="M22.5 8l5 8c1.5 2.5 2.5 5 2.5 8 0 3.5-3 6-7.5 6S15 27.5 15 24c0-3 1-5.5 2.5-8z"/><path d="M12 32h21v4H12z"/>`,
	'q': `<path d="M10 18l5 4 3-8 4.5 7 4.5-7 3 8 5-4-3 14H13z"/><path d="M11 32h23v4H11z"/>`,
	'k': `<path d="M21 7h3v4h4v3h-4v4h-3v-4h-4v-3h4z"/><path d="M14 20c2-2 5-3 8.5-3s6.5 1 8.5 3l-2 12h-13z"/><path d="M12 32h21v4H12z"/>`,
}

type sideColors struct {
	fill   string
	stroke string
}

var (
	whitePiece = sideColors{fill: "#f6f3e8", stroke: "#2a2a2a"}
	blackPiece = sideColors{fill: "#2f2c2a", stroke: "#0d0d0d"}
)

// pieceSVG assembles the document for one placement-field letter. Uppercase
// letters are White's pieces.
func pieceSVG(letter byte) ([]byte, error) {
	glyph, ok := piecePaths[lower(letter)]
	if !ok {
		return nil, fmt.Errorf("unknown piece letter %q", letter)
	}
	colors := blackPiece
	if letter >= 'A' && letter <= 'Z' {
		colors = whitePiece
	}
	doc := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d"><g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">%s</g></svg>`,
		pieceViewBox, pieceViewBox, colors.fill, colors.stroke, glyph,
	)
	return []byte(doc), nil
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

type pieceCacheKey struct {
	letter byte
	size   int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// supersample factor for piece rasterization; the oversized render is
// downsampled for smoother edges.
const pieceSupersample = 2

func renderPieceImage(letter byte, size int) (image.Image, error) {
	key := pieceCacheKey{letter: letter, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, err := pieceSVG(letter)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}

	big := size * pieceSupersample
	icon.SetTarget(0, 0, float64(big), float64(big))

	raw := image.NewRGBA(image.Rect(0, 0, big, big))
	draw.Draw(raw, raw.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(big, big, raw, raw.Bounds())
	raster := rasterx.NewDasher(big, big, scanner)
	icon.Draw(raster, 1.0)

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.ApproxBiLinear.Scale(img, img.Bounds(), raw, raw.Bounds(), xdraw.Over, nil)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
