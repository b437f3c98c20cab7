package analytics

import (
	"github.com/hitoshi/socialpulse/internal/model"
	"github.com/hitoshi/socialpulse/internal/snapshot"
)

// SnapshotReader は公開中Snapshotの読み取りインターフェース。
type SnapshotReader interface {
	Current() (*model.Snapshot, error)
}

// Service は公開中のSnapshotに対して集計クエリを実行する。
// 初回Snapshotの公開前はsnapshot.ErrNotReadyを返す。
type Service struct {
	reader SnapshotReader
	topN   int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(reader SnapshotReader) *Service {
	return &Service{reader: reader, topN: DefaultTopN}
}

// GetTopUsers は投稿数上位のユーザーを返す。
func (s *Service) GetTopUsers() ([]model.TopUser, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return TopUsers(snap, s.topN), nil
}

// GetLatestPosts は最新の投稿を返す。
func (s *Service) GetLatestPosts() ([]model.Post, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return LatestPosts(snap, s.topN), nil
}

// GetTrendingPosts はコメント数最大の投稿を返す。
func (s *Service) GetTrendingPosts() ([]model.TrendingPost, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return TrendingPosts(snap), nil
}

func (s *Service) current() (*model.Snapshot, error) {
	snap, err := s.reader.Current()
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, snapshot.ErrNotReady
	}
	return snap, nil
}
