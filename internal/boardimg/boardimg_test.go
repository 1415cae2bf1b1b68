package boardimg

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/kapu/chess-arena/internal/oracle"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestRenderStartPosition(t *testing.T) {
	r := New()
	data, err := r.RenderPNG(context.Background(), startFEN, Options{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatalf("output is not a png")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := defaultSquareSize * boardFiles
	if b := img.Bounds(); b.Dx() != want || b.Dy() != want {
		t.Fatalf("bounds = %v, want %dx%d", b, want, want)
	}
}

func TestRenderWithLastMoveOverlay(t *testing.T) {
	r := New()
	mv := &oracle.Move{From: "e2", To: "e4"}
	data, err := r.RenderPNG(context.Background(), startFEN, Options{LastMove: mv})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("empty output")
	}
}

func TestRenderRejectsMalformedFEN(t *testing.T) {
	r := New()
	cases := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1", // 7 ranks
		"rnbqkbnr/ppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w",    // short rank
		"rnbqkbnr/ppppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w",  // long rank
		"rnbqkbnx/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w",   // bad letter
	}
	for _, fen := range cases {
		if _, err := r.RenderPNG(context.Background(), fen, Options{}); err == nil {
			t.Fatalf("no error for fen %q", fen)
		}
	}
}

func TestRenderHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().RenderPNG(ctx, startFEN, Options{}); err == nil {
		t.Fatalf("cancelled context not observed")
	}
}

func TestParsePlacementGrid(t *testing.T) {
	grid, err := parsePlacement(startFEN)
	if err != nil {
		t.Fatalf("parsePlacement: %v", err)
	}
	if grid[0][0] != 'r' || grid[7][4] != 'K' || grid[4][4] != 0 {
		t.Fatalf("grid misplaced: a8=%q e1=%q e4=%q", grid[0][0], grid[7][4], grid[4][4])
	}
}

func TestPieceCacheReuse(t *testing.T) {
	a, err := renderPieceImage('Q', 64)
	if err != nil {
		t.Fatalf("renderPieceImage: %v", err)
	}
	b, err := renderPieceImage('Q', 64)
	if err != nil {
		t.Fatalf("renderPieceImage: %v", err)
	}
	if a != b {
		t.Fatalf("cache miss on identical key")
	}
}
