package backup

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/pointjar/internal/database"
	"github.com/dukerupert/pointjar/internal/model"
	"github.com/dukerupert/pointjar/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	m.deleted = append(m.deleted, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

var testS3 = S3Config{Bucket: "jar", AccessKey: "key", SecretKey: "secret", Region: "us-east-1"}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupManager(t *testing.T) (*Manager, *mockS3Client, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := store.NewUserStore(db).Create(context.Background(), "joep", "hash", model.RoleMember, 0); err != nil {
		t.Fatalf("create user: %v", err)
	}

	m := NewManager(Config{S3: testS3, Passphrase: "jar-secret", RetentionDays: 7}, db, store.NewBackupStore(db), discard())
	mock := newMockS3()
	m.client = mock
	return m, mock, db
}

func TestManagerDisabledWithoutConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty", Config{}},
		{"no passphrase", Config{S3: testS3}},
		{"no bucket", Config{Passphrase: "p"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.cfg, nil, nil, discard())
			if m.Enabled() {
				t.Error("expected disabled manager")
			}
			if m.Status().State != StateDisabled {
				t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
			}
			if _, err := m.RunNow(context.Background()); !errors.Is(err, ErrDisabled) {
				t.Errorf("err = %v, want ErrDisabled", err)
			}
			m.Start(context.Background())
			m.Stop()
		})
	}
}

func TestRunNowUploadsEncryptedSnapshot(t *testing.T) {
	m, mock, db := setupManager(t)
	ctx := context.Background()

	record, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	if record.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want completed", record.Status)
	}
	if m.Status().State != StateIdle || m.Status().LastBackup == nil {
		t.Errorf("manager status = %+v", m.Status())
	}

	sealed, ok := mock.objects[record.S3Key]
	if !ok {
		t.Fatalf("object %q not uploaded", record.S3Key)
	}
	if record.SizeBytes != int64(len(sealed)) {
		t.Errorf("size = %d, want %d", record.SizeBytes, len(sealed))
	}

	// The uploaded object decrypts to a SQLite database with our data.
	plain, err := Open(sealed, "jar-secret")
	if err != nil {
		t.Fatalf("open sealed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "restored.db")
	if err := os.WriteFile(path, plain, 0o600); err != nil {
		t.Fatalf("write restored: %v", err)
	}
	restored, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open restored: %v", err)
	}
	defer restored.Close()
	var username string
	if err := restored.QueryRow(`SELECT username FROM users`).Scan(&username); err != nil {
		t.Fatalf("query restored: %v", err)
	}
	if username != "joep" {
		t.Errorf("username = %q, want joep", username)
	}

	list, err := store.NewBackupStore(db).List(ctx, 0)
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("backups = %d, want 1", len(list))
	}
}

func TestRunNowUploadFailure(t *testing.T) {
	m, mock, db := setupManager(t)
	mock.putErr = errors.New("bucket unreachable")

	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if m.Status().State != StateError {
		t.Errorf("state = %q, want %q", m.Status().State, StateError)
	}

	list, err := store.NewBackupStore(db).List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(list) != 1 || list[0].Status != model.BackupStatusFailed {
		t.Errorf("backups = %+v, want one failed record", list)
	}
	if list[0].ErrorMessage == "" {
		t.Error("expected error message on failed record")
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	m, mock, db := setupManager(t)
	ctx := context.Background()

	old, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	if _, err := db.Exec(`UPDATE backups SET created_at = '2000-01-01 00:00:00' WHERE id = ?`, old.ID); err != nil {
		t.Fatalf("age backup: %v", err)
	}
	m.now = func() time.Time { return time.Now().Add(time.Second) }
	fresh, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run now: %v", err)
	}

	if err := m.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(mock.deleted) != 1 || mock.deleted[0] != old.S3Key {
		t.Errorf("deleted = %v, want [%s]", mock.deleted, old.S3Key)
	}
	if _, ok := mock.objects[fresh.S3Key]; !ok {
		t.Error("fresh backup was removed")
	}
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		now  time.Time
		hour int
		want time.Time
	}{
		{time.Date(2026, 3, 1, 1, 30, 0, 0, time.UTC), 3, time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC), 3, time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC), 0, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := nextRun(tt.now, tt.hour); !got.Equal(tt.want) {
			t.Errorf("nextRun(%v, %d) = %v, want %v", tt.now, tt.hour, got, tt.want)
		}
	}
}

func TestStartStop(t *testing.T) {
	m, _, _ := setupManager(t)

	m.Start(context.Background())
	m.Stop()
	// A second Stop must not block or panic.
	m.Stop()
}
