package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/socialpulse/internal/model"
)

// SnapshotReader は公開済みスナップショットを参照するためのインターフェース。
type SnapshotReader interface {
	Current() (*model.Snapshot, error)
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
// スナップショット未公開でも200を返し、状態はボディで示す。
type HealthHandler struct {
	snapshots SnapshotReader
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(snapshots SnapshotReader) *HealthHandler {
	return &HealthHandler{snapshots: snapshots}
}

type healthResponse struct {
	Status        string     `json:"status"`
	SnapshotReady bool       `json:"snapshot_ready"`
	SnapshotID    string     `json:"snapshot_id,omitempty"`
	FetchedAt     *time.Time `json:"fetched_at,omitempty"`
}

// Health はGET /health を処理する。
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}

	if snap, err := h.snapshots.Current(); err == nil {
		resp.SnapshotReady = true
		resp.SnapshotID = snap.ID
		if !snap.FetchedAt.IsZero() {
			fetchedAt := snap.FetchedAt.UTC()
			resp.FetchedAt = &fetchedAt
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
