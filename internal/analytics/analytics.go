// Package analytics は公開済みSnapshotに対する集計クエリを提供する。
// 全ての関数はSnapshotを読み取るのみで、I/Oや変更を行わない。
package analytics

import (
	"fmt"
	"sort"

	"github.com/hitoshi/socialpulse/internal/model"
)

// DefaultTopN は上位ユーザー・最新投稿の既定件数。
const DefaultTopN = 5

// placeholderName はUsersに存在しないユーザーIDの表示名を生成する。
func placeholderName(userID int) string {
	return fmt.Sprintf("User ID %d", userID)
}

// TopUsers は投稿数の多い順に最大n件のユーザーを返す。
// 投稿数が同じ場合はユーザーIDの昇順。
// UsersまたはPostsが空の場合は空スライスを返す。
func TopUsers(s *model.Snapshot, n int) []model.TopUser {
	if s.IsEmpty() || n <= 0 {
		return []model.TopUser{}
	}

	counts := make(map[int]int)
	for _, p := range s.Posts {
		counts[p.UserID]++
	}

	userIDs := make([]int, 0, len(counts))
	for id := range counts {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool {
		ci, cj := counts[userIDs[i]], counts[userIDs[j]]
		if ci != cj {
			return ci > cj
		}
		return userIDs[i] < userIDs[j]
	})

	if len(userIDs) > n {
		userIDs = userIDs[:n]
	}

	result := make([]model.TopUser, 0, len(userIDs))
	for _, id := range userIDs {
		name := placeholderName(id)
		if u, ok := s.Users[id]; ok && u.Name != "" {
			name = u.Name
		}
		result = append(result, model.TopUser{
			UserID:    id,
			Name:      name,
			PostCount: counts[id],
		})
	}
	return result
}

// LatestPosts は投稿IDの降順に最大n件の投稿を返す。
// タイムスタンプが存在しないため、IDが大きいほど新しいとみなす。
// UsersまたはPostsが空の場合は空スライスを返す。
func LatestPosts(s *model.Snapshot, n int) []model.Post {
	if s.IsEmpty() || n <= 0 {
		return []model.Post{}
	}

	posts := make([]model.Post, len(s.Posts))
	copy(posts, s.Posts)
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].ID > posts[j].ID
	})

	if len(posts) > n {
		posts = posts[:n]
	}
	return posts
}

// TrendingPosts はコメント数が最大の投稿を全て返す。
// UsersまたはPostsが空の場合、最大コメント数が0の場合は空スライスを返す。
// 同数の投稿は投稿IDの昇順に並べる。
func TrendingPosts(s *model.Snapshot) []model.TrendingPost {
	if s.IsEmpty() {
		return []model.TrendingPost{}
	}

	maxCount := 0
	for _, p := range s.Posts {
		if c := s.CommentCount(p.ID); c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		return []model.TrendingPost{}
	}

	result := make([]model.TrendingPost, 0)
	seen := make(map[int]struct{})
	for _, p := range s.Posts {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		if s.CommentCount(p.ID) == maxCount {
			seen[p.ID] = struct{}{}
			result = append(result, model.TrendingPost{Post: p, CommentCount: maxCount})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}
