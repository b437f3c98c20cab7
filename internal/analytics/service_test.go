package analytics

import (
	"errors"
	"testing"

	"github.com/hitoshi/socialpulse/internal/model"
	"github.com/hitoshi/socialpulse/internal/snapshot"
)

func TestService_BeforeFirstPublish_ReturnsNotReady(t *testing.T) {
	svc := NewService(snapshot.NewStore())

	if _, err := svc.GetTopUsers(); !errors.Is(err, snapshot.ErrNotReady) {
		t.Errorf("GetTopUsers() err = %v, want ErrNotReady", err)
	}
	if _, err := svc.GetLatestPosts(); !errors.Is(err, snapshot.ErrNotReady) {
		t.Errorf("GetLatestPosts() err = %v, want ErrNotReady", err)
	}
	if _, err := svc.GetTrendingPosts(); !errors.Is(err, snapshot.ErrNotReady) {
		t.Errorf("GetTrendingPosts() err = %v, want ErrNotReady", err)
	}
}

func TestService_AfterPublish_AnswersQueries(t *testing.T) {
	store := snapshot.NewStore()
	store.Publish(&model.Snapshot{
		Users: map[int]model.User{1: {ID: 1, Name: "A"}, 2: {ID: 2, Name: "B"}},
		Posts: []model.Post{{ID: 10, UserID: 1}, {ID: 11, UserID: 1}, {ID: 12, UserID: 2}},
		CommentsByPost: map[int][]model.Comment{
			10: {},
			11: {{ID: 1}},
			12: {},
		},
	})
	svc := NewService(store)

	top, err := svc.GetTopUsers()
	if err != nil {
		t.Fatalf("GetTopUsers() がエラーを返した: %v", err)
	}
	if len(top) != 2 || top[0].UserID != 1 {
		t.Errorf("GetTopUsers() = %+v", top)
	}

	latest, err := svc.GetLatestPosts()
	if err != nil {
		t.Fatalf("GetLatestPosts() がエラーを返した: %v", err)
	}
	if len(latest) != 3 || latest[0].ID != 12 {
		t.Errorf("GetLatestPosts() = %+v", latest)
	}

	trending, err := svc.GetTrendingPosts()
	if err != nil {
		t.Fatalf("GetTrendingPosts() がエラーを返した: %v", err)
	}
	if len(trending) != 1 || trending[0].ID != 11 || trending[0].CommentCount != 1 {
		t.Errorf("GetTrendingPosts() = %+v", trending)
	}
}

// TestService_EmptySnapshot_ReturnsEmptyResults は空のSnapshotでもエラーにならないことをテストする。
func TestService_EmptySnapshot_ReturnsEmptyResults(t *testing.T) {
	store := snapshot.NewStore()
	store.Publish(&model.Snapshot{})
	svc := NewService(store)

	top, err := svc.GetTopUsers()
	if err != nil || len(top) != 0 {
		t.Errorf("GetTopUsers() = %v, %v; want empty, nil", top, err)
	}
	latest, err := svc.GetLatestPosts()
	if err != nil || len(latest) != 0 {
		t.Errorf("GetLatestPosts() = %v, %v; want empty, nil", latest, err)
	}
	trending, err := svc.GetTrendingPosts()
	if err != nil || len(trending) != 0 {
		t.Errorf("GetTrendingPosts() = %v, %v; want empty, nil", trending, err)
	}
}
