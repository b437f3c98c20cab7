package model

import "time"

// Snapshot はキャッシュ状態の不変な単位。
//
// CommentsByPostにキーが存在する投稿IDは、このスナップショットを生成した
// フェッチパスで取得を試行済みであることを示す。取得失敗時も空スライスでキーを持つ。
// Postsはフェッチ順（ユーザーID昇順、同一ユーザー内は上流の返却順）で並ぶ。
// 公開後は変更してはならない。
type Snapshot struct {
	ID             string
	FetchedAt      time.Time
	Users          map[int]User
	Posts          []Post
	CommentsByPost map[int][]Comment
}

// CommentCount は投稿のコメント数を返す。キーが存在しない場合は0。
func (s *Snapshot) CommentCount(postID int) int {
	if s == nil {
		return 0
	}
	return len(s.CommentsByPost[postID])
}

// IsEmpty はユーザーまたは投稿が存在しない場合にtrueを返す。
func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Users) == 0 || len(s.Posts) == 0
}
