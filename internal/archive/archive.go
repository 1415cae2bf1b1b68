// Package archive records terminal game results. Sinks are optional and
// nil-safe; without any configured sink archiving is a no-op.
package archive

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/chess-arena/internal/arena"
	"github.com/kapu/chess-arena/internal/obslog"
)

// Archiver fans a finished game out to the configured sinks.
type Archiver struct {
	store *Store
	repo  *Repository
}

func NewArchiver(store *Store, repo *Repository) *Archiver {
	return &Archiver{store: store, repo: repo}
}

// Archive saves the result to every configured sink. Failures are logged
// and never propagate into the session flow.
func (a *Archiver) Archive(res *arena.Result) {
	if a == nil || res == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.store != nil {
		if err := a.store.Save(ctx, res); err != nil {
			obslog.L().Error("archive_store_error", zap.String("room_id", res.RoomID), zap.Error(err))
		}
	}
	if a.repo != nil {
		if err := a.repo.SaveResult(ctx, res); err != nil {
			obslog.L().Error("archive_repo_error", zap.String("room_id", res.RoomID), zap.Error(err))
		}
	}
	obslog.L().Info("result_archived",
		zap.String("room_id", res.RoomID),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("moves", len(res.History)),
	)
}
