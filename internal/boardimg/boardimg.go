// Package boardimg rasterizes board positions into PNG snapshots for the
// room page and for sharing finished games.
package boardimg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"github.com/kapu/chess-arena/internal/oracle"
)

const (
	defaultSquareSize = 72
	boardFiles        = 8
	boardRanks        = 8
)

var (
	lightSquare  = color.RGBA{233, 207, 163, 255}
	darkSquare   = color.RGBA{187, 136, 96, 255}
	lastMoveFill = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
)

// Options tunes a single render. A nil LastMove draws no overlay.
type Options struct {
	LastMove *oracle.Move
}

// Renderer draws positions from serialized FEN. It is stateless beyond the
// shared piece cache and safe for concurrent use.
type Renderer struct {
	squareSize int
}

func New() *Renderer {
	return &Renderer{squareSize: defaultSquareSize}
}

// RenderPNG rasterizes the position in fen, White at the bottom.
func (r *Renderer) RenderPNG(ctx context.Context, fen string, opts Options) ([]byte, error) {
	placement, err := parsePlacement(fen)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	size := r.squareSize
	img := image.NewRGBA(image.Rect(0, 0, size*boardFiles, size*boardRanks))

	for row := 0; row < boardRanks; row++ {
		for col := 0; col < boardFiles; col++ {
			rect := image.Rect(col*size, row*size, (col+1)*size, (row+1)*size)
			imagedraw.Draw(img, rect, image.NewUniform(squareColor(col, row)), image.Point{}, imagedraw.Src)
		}
	}

	if opts.LastMove != nil {
		drawMoveOverlay(img, *opts.LastMove, size)
	}

	for row := 0; row < boardRanks; row++ {
		for col := 0; col < boardFiles; col++ {
			letter := placement[row][col]
			if letter == 0 {
				continue
			}
			piece, err := renderPieceImage(letter, size)
			if err != nil {
				return nil, err
			}
			rect := image.Rect(col*size, row*size, (col+1)*size, (row+1)*size)
			imagedraw.Draw(img, rect, piece, image.Point{}, imagedraw.Over)
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// parsePlacement expands the placement field of a FEN record into an 8x8
// grid, row 0 holding rank 8. Cells hold the placement letter, zero when
// empty.
func parsePlacement(fen string) ([boardRanks][boardFiles]byte, error) {
	var grid [boardRanks][boardFiles]byte

	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return grid, fmt.Errorf("empty fen")
	}
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != boardRanks {
		return grid, fmt.Errorf("fen has %d ranks, want %d", len(ranks), boardRanks)
	}

	for row, rank := range ranks {
		col := 0
		for i := 0; i < len(rank); i++ {
			c := rank[i]
			if c >= '1' && c <= '8' {
				col += int(c - '0')
				continue
			}
			if _, ok := piecePaths[lower(c)]; !ok {
				return grid, fmt.Errorf("bad placement letter %q in rank %d", c, boardRanks-row)
			}
			if col >= boardFiles {
				return grid, fmt.Errorf("rank %d overflows", boardRanks-row)
			}
			grid[row][col] = c
			col++
		}
		if col != boardFiles {
			return grid, fmt.Errorf("rank %d covers %d files, want %d", boardRanks-row, col, boardFiles)
		}
	}
	return grid, nil
}

func squareColor(col, row int) color.Color {
	if (col+row)%2 == 0 {
		return lightSquare
	}
	return darkSquare
}

func drawMoveOverlay(img *image.RGBA, mv oracle.Move, size int) {
	for _, sq := range []string{mv.From, mv.To} {
		col, row, ok := squareCoords(sq)
		if !ok {
			continue
		}
		rect := image.Rect(col*size, row*size, (col+1)*size, (row+1)*size)
		imagedraw.Draw(img, rect, image.NewUniform(lastMoveFill), image.Point{}, imagedraw.Over)
	}
}

// squareCoords maps coordinate notation to grid position, row 0 = rank 8.
func squareCoords(sq string) (col, row int, ok bool) {
	if len(sq) != 2 {
		return 0, 0, false
	}
	file, rank := sq[0], sq[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return 0, 0, false
	}
	return int(file - 'a'), int('8' - rank), true
}
