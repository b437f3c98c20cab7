package snapshot

import (
	"errors"
	"sync/atomic"

	"github.com/hitoshi/socialpulse/internal/model"
)

// ErrNotReady は初回スナップショットの公開前に参照された場合のエラー。
var ErrNotReady = errors.New("snapshot not ready")

// Store は公開中のSnapshotを保持する。
// 読み取りはロックなしで行い、公開はポインタの差し替え1回で完了する。
// 読み取り側は常に完全なSnapshotのいずれか一方を観測する。
type Store struct {
	current atomic.Pointer[model.Snapshot]
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{}
}

// Current は公開中のSnapshotを返す。未公開の場合はErrNotReadyを返す。
// 返されたSnapshotは変更してはならない。
func (s *Store) Current() (*model.Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap, nil
}

// Ready は公開済みのSnapshotがあるかを返す。
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}

// Publish はSnapshotを公開する。nilは無視する。
func (s *Store) Publish(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	s.current.Store(snap)
}
