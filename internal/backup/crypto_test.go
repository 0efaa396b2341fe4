package backup

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	salt := []byte("0123456789abcdef")
	k1 := DeriveKey("passphrase", salt)
	k2 := DeriveKey("passphrase", salt)
	if len(k1) != keySize {
		t.Fatalf("key length = %d, want %d", len(k1), keySize)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("same passphrase and salt should give the same key")
	}
	if bytes.Equal(k1, DeriveKey("other", salt)) {
		t.Error("different passphrases should give different keys")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	plaintext := []byte("SQLite format 3\x00 pretend database")

	sealed, err := Seal(plaintext, "jar-secret")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("pretend database")) {
		t.Error("sealed output contains plaintext")
	}
	if !bytes.HasPrefix(sealed, magic) {
		t.Error("sealed output missing header")
	}

	got, err := Open(sealed, "jar-secret")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("got %q, want %q", got, plaintext)
	}
}

func TestSealFreshSalt(t *testing.T) {
	a, err := Seal([]byte("same"), "p")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := Seal([]byte("same"), "p")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	saltA := a[len(magic) : len(magic)+saltSize]
	saltB := b[len(magic) : len(magic)+saltSize]
	if bytes.Equal(saltA, saltB) {
		t.Error("two seals reused the same salt")
	}
}

func TestSealEmptyPassphrase(t *testing.T) {
	if _, err := Seal([]byte("x"), ""); err == nil {
		t.Error("expected error for empty passphrase")
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, err := Seal([]byte("secret data"), "correct")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(sealed, "wrong"); err == nil {
		t.Error("expected error with wrong passphrase")
	}
}

func TestOpenTampered(t *testing.T) {
	sealed, err := Seal([]byte("balances"), "p")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF
	if _, err := Open(sealed, "p"); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}

func TestOpenNotBackup(t *testing.T) {
	for _, in := range [][]byte{nil, []byte("short"), bytes.Repeat([]byte("x"), 64)} {
		if _, err := Open(in, "p"); !errors.Is(err, ErrNotBackup) {
			t.Errorf("Open(%q) err = %v, want ErrNotBackup", in, err)
		}
	}
}

func TestDecryptFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "backup.db.enc")
	dst := filepath.Join(dir, "restored.db")

	sealed, err := Seal([]byte("restored content"), "p")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if err := os.WriteFile(src, sealed, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := DecryptFile(src, dst, "p"); err != nil {
		t.Fatalf("decrypt file: %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "restored content" {
		t.Errorf("got %q", got)
	}
}
