package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasksDBPath(t *testing.T) {
	assert.Equal(t, "/data/shelfmark-tasks.db", tasksDBPath("/data/shelfmark.db"))
	assert.Equal(t, "shelfmark-tasks.db", tasksDBPath("shelfmark.db"))
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "shelfmark.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	// queue database lives alongside the main one
	_, err = os.Stat(filepath.Join(tmpDir, "shelfmark-tasks.db"))
	assert.NoError(t, err)

	assert.NoError(t, client.Close())
}

func TestClientStartStop(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "shelfmark.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx))
}

func TestEnqueue(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "shelfmark.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	client.Register(NewBackfillCoversQueue(nil, nil))

	ids, err := client.Add(BackfillCoversTask{Limit: 10}).Save()
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}
