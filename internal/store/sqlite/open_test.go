package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tract-dev/tract/internal/lockfile"
	"github.com/tract-dev/tract/internal/types"
)

func TestOpenCreatesAndCommitRoundTrips(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tract.db")

	st, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	payload, err := types.EncodeContent(types.Content{Type: types.ContentDialogue, Role: "user", Text: "hello"})
	if err != nil {
		t.Fatalf("EncodeContent: %v", err)
	}
	blob := types.NewBlob(payload, time.Now().UTC())
	blob.TokenCount = 1
	if err := st.Blobs().SaveIfAbsent(ctx, blob); err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}

	commit := &types.Commit{
		TractID:     "t1",
		ContentHash: blob.ContentHash,
		ContentType: types.ContentDialogue,
		Operation:   types.OpAppend,
		TokenCount:  blob.TokenCount,
		CreatedAt:   time.Now().UTC(),
		Sequence:    1,
	}
	hash, err := commit.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	commit.CommitHash = hash
	if err := st.Commits().Save(ctx, commit); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Refs().UpdateHead(ctx, "t1", hash); err != nil {
		t.Fatalf("UpdateHead: %v", err)
	}

	got, err := st.Commits().Get(ctx, hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ContentHash != blob.ContentHash {
		t.Errorf("ContentHash = %q, want %q", got.ContentHash, blob.ContentHash)
	}

	gotBlob, err := st.Blobs().Get(ctx, blob.ContentHash)
	if err != nil {
		t.Fatalf("Blobs().Get: %v", err)
	}
	if string(gotBlob.PayloadJSON) != string(payload) {
		t.Errorf("PayloadJSON mismatch")
	}
}

func TestOpenEnforcesSingleWriter(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tract.db")

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open (first): %v", err)
	}
	defer first.Close()

	_, err = Open(ctx, path)
	if !errors.Is(err, lockfile.ErrLocked) {
		t.Errorf("second Open error = %v, want lockfile.ErrLocked", err)
	}
}

func TestCloseReleasesLockForNextOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tract.db")

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open (first): %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open (second, after Close): %v", err)
	}
	defer second.Close()
}
