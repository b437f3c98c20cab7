package snapshot

import (
	"errors"
	"sync"
	"testing"

	"github.com/hitoshi/socialpulse/internal/model"
)

func TestStore_Current_NotReadyBeforePublish(t *testing.T) {
	s := NewStore()

	snap, err := s.Current()
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("err = %v, want ErrNotReady", err)
	}
	if snap != nil {
		t.Error("公開前はnilを返すべき")
	}
	if s.Ready() {
		t.Error("公開前はReady() = false であるべき")
	}
}

func TestStore_Publish_ReplacesCurrent(t *testing.T) {
	s := NewStore()
	first := &model.Snapshot{ID: "first"}
	second := &model.Snapshot{ID: "second"}

	s.Publish(first)
	got, err := s.Current()
	if err != nil {
		t.Fatalf("Current() がエラーを返した: %v", err)
	}
	if got != first {
		t.Errorf("Current() = %v, want first", got.ID)
	}

	s.Publish(second)
	got, _ = s.Current()
	if got != second {
		t.Errorf("Current() = %v, want second", got.ID)
	}
	if !s.Ready() {
		t.Error("公開後はReady() = true であるべき")
	}
}

func TestStore_Publish_IgnoresNil(t *testing.T) {
	s := NewStore()
	snap := &model.Snapshot{ID: "kept"}
	s.Publish(snap)

	s.Publish(nil)

	got, err := s.Current()
	if err != nil {
		t.Fatalf("Current() がエラーを返した: %v", err)
	}
	if got != snap {
		t.Error("nilの公開で既存のSnapshotが失われてはならない")
	}
}

func TestStore_ConcurrentReadersSeeCompleteSnapshots(t *testing.T) {
	s := NewStore()
	s.Publish(&model.Snapshot{ID: "0", Posts: []model.Post{{ID: 0}}})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			posts := make([]model.Post, i)
			for j := range posts {
				posts[j] = model.Post{ID: i}
			}
			s.Publish(&model.Snapshot{Posts: posts})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap, err := s.Current()
				if err != nil {
					t.Errorf("Current() がエラーを返した: %v", err)
					return
				}
				// 同一Snapshot内の投稿は全て同じ世代のIDを持つ
				first := snap.Posts[0].ID
				for _, p := range snap.Posts {
					if p.ID != first {
						t.Errorf("異なる世代の投稿が混在している: %d != %d", p.ID, first)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
}
