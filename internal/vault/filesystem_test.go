package vault

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		tmpDir := t.TempDir()
		root := filepath.Join(tmpDir, "vault")

		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, "snapshots")); err != nil {
			t.Errorf("snapshots directory not created: %v", err)
		}

		if v.name != "test" {
			t.Errorf("name = %q, want %q", v.name, "test")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		tmpDir := t.TempDir()

		_, err := NewFileSystemVault("test", tmpDir)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})
}

func TestFileSystemVault_PutSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		hostID  string
		data    string
		size    int64
		wantErr bool
	}{
		{
			name:    "store snapshot successfully",
			hostID:  "host-1",
			data:    "database bytes",
			size:    14,
			wantErr: false,
		},
		{
			name:    "size mismatch",
			hostID:  "host-2",
			data:    "hello",
			size:    100,
			wantErr: true,
		},
		{
			name:    "empty snapshot",
			hostID:  "host-empty",
			data:    "",
			size:    0,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewFileSystemVault("test", t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemVault() error = %v", err)
			}

			err = v.PutSnapshot(tt.hostID, strings.NewReader(tt.data), tt.size, 7)
			if (err != nil) != tt.wantErr {
				t.Errorf("PutSnapshot() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !tt.wantErr {
				snapshotPath := filepath.Join(v.snapshotsDir, tt.hostID+".db")
				data, err := os.ReadFile(snapshotPath)
				if err != nil {
					t.Fatalf("failed to read snapshot file: %v", err)
				}
				if string(data) != tt.data {
					t.Errorf("snapshot = %q, want %q", string(data), tt.data)
				}

				version, err := v.SnapshotVersion(tt.hostID)
				if err != nil {
					t.Fatalf("SnapshotVersion() error = %v", err)
				}
				if version != 7 {
					t.Errorf("SnapshotVersion() = %d, want 7", version)
				}
			}
		})
	}
}

func TestFileSystemVault_PutSnapshot_Overwrites(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	hostID := "host-123"

	data1 := "version 1"
	if err := v.PutSnapshot(hostID, strings.NewReader(data1), int64(len(data1)), 1); err != nil {
		t.Fatalf("first PutSnapshot() error = %v", err)
	}

	data2 := "version 2"
	if err := v.PutSnapshot(hostID, strings.NewReader(data2), int64(len(data2)), 2); err != nil {
		t.Fatalf("second PutSnapshot() error = %v", err)
	}

	var buf bytes.Buffer
	if err := v.GetSnapshot(hostID, &buf); err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if buf.String() != data2 {
		t.Errorf("snapshot = %q, want %q", buf.String(), data2)
	}

	version, err := v.SnapshotVersion(hostID)
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if version != 2 {
		t.Errorf("SnapshotVersion() = %d, want 2", version)
	}
}

func TestFileSystemVault_GetSnapshot(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	t.Run("retrieve existing snapshot", func(t *testing.T) {
		hostID := "host-1"
		data := "database bytes"

		if err := v.PutSnapshot(hostID, strings.NewReader(data), int64(len(data)), 1); err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}

		var buf bytes.Buffer
		if err := v.GetSnapshot(hostID, &buf); err != nil {
			t.Fatalf("GetSnapshot() error = %v", err)
		}

		if buf.String() != data {
			t.Errorf("snapshot = %q, want %q", buf.String(), data)
		}
	})

	t.Run("snapshot not found", func(t *testing.T) {
		var buf bytes.Buffer
		err := v.GetSnapshot("nonexistent", &buf)
		if err == nil {
			t.Error("GetSnapshot() expected error for nonexistent snapshot")
		}
		if !strings.Contains(err.Error(), "snapshot not found") {
			t.Errorf("error = %v, want error containing 'snapshot not found'", err)
		}
	})
}

func TestFileSystemVault_SnapshotVersion_Missing(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	version, err := v.SnapshotVersion("nonexistent")
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("SnapshotVersion() = %d, want 0 for missing version file", version)
	}
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	t.Run("valid setup", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if err := v.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("missing root directory", func(t *testing.T) {
		v := &FileSystemVault{
			name:         "test",
			root:         "/nonexistent/path",
			snapshotsDir: "/nonexistent/path/snapshots",
		}

		if err := v.ValidateSetup(); err == nil {
			t.Error("ValidateSetup() expected error for missing root")
		}
	})
}

func TestFileSystemVault_AtomicWrite(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	// Verify no temp files are left after successful write
	data := "database bytes"
	if err := v.PutSnapshot("host-1", strings.NewReader(data), int64(len(data)), 1); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}

	entries, err := os.ReadDir(v.snapshotsDir)
	if err != nil {
		t.Fatalf("failed to read snapshots dir: %v", err)
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}
