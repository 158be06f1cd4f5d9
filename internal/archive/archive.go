// Package archive snapshots the cache database into a vault and restores
// it back, giving the single-file store an off-host durability story.
package archive

import (
	"fmt"
	"io"
	"os"

	"wallsync/internal/encryption"
	"wallsync/internal/feed"
	"wallsync/internal/vault"
)

// Snapshotter is the subset of the store the archive service needs.
type Snapshotter interface {
	// LatestTransactionID returns the highest txn id, used as the
	// monotonic snapshot version.
	LatestTransactionID() (int64, error)

	// BackupTo writes a complete, consistent copy of the database to destPath.
	BackupTo(destPath string) error
}

// Service archives and restores cache snapshots. Snapshots are keyed by
// host id; the version stored alongside is the latest txn id, so a stale
// upload can never silently shadow a newer one.
type Service struct {
	store     Snapshotter
	vault     vault.Vault
	encryptor encryption.Encryptor
	logger    feed.Logger
	hostID    string
}

// NewService creates an archive Service with the provided dependencies.
// encryptor may be nil when encryption is not configured.
func NewService(store Snapshotter, v vault.Vault, enc encryption.Encryptor, logger feed.Logger, hostID string) *Service {
	return &Service{
		store:     store,
		vault:     v,
		encryptor: enc,
		logger:    logger,
		hostID:    hostID,
	}
}

// Archive snapshots the cache database, encrypts the snapshot when an
// encryptor is configured, and uploads it to the vault. Returns the version
// that was stored.
func (s *Service) Archive() (int64, error) {
	version, err := s.store.LatestTransactionID()
	if err != nil {
		return 0, fmt.Errorf("determining snapshot version: %w", err)
	}

	remote, err := s.vault.SnapshotVersion(s.hostID)
	if err != nil {
		return 0, fmt.Errorf("checking vault snapshot version: %w", err)
	}
	if remote > version {
		return 0, fmt.Errorf("vault snapshot is newer than local cache (local=%d, remote=%d): restore first", version, remote)
	}

	tmpPath, err := s.snapshotToTemp()
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmpPath)

	uploadPath := tmpPath
	if s.encrypted() {
		encPath, err := s.encryptSnapshot(tmpPath)
		if err != nil {
			return 0, err
		}
		defer os.Remove(encPath)
		uploadPath = encPath
	}

	f, err := os.Open(uploadPath)
	if err != nil {
		return 0, fmt.Errorf("opening snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat snapshot: %w", err)
	}

	if err := s.vault.PutSnapshot(s.hostID, f, info.Size(), version); err != nil {
		return 0, fmt.Errorf("uploading snapshot: %w", err)
	}

	s.logger.Info("snapshot archived",
		"host", s.hostID, "version", version, "bytes", info.Size(), "encrypted", s.encrypted())
	return version, nil
}

// Restore downloads the stored snapshot and writes it to destPath. When the
// encryptor is configured the stored snapshot is assumed encrypted and dec
// must be an unlocked decryption context; otherwise dec is ignored.
func (s *Service) Restore(destPath string, dec encryption.DecryptionContext) error {
	tmpFile, err := os.CreateTemp("", "wallsync-restore-*.db")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if err := s.vault.GetSnapshot(s.hostID, tmpFile); err != nil {
		tmpFile.Close()
		return fmt.Errorf("downloading snapshot: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if !s.encrypted() {
		return copyFile(tmpPath, destPath)
	}

	if dec == nil {
		return fmt.Errorf("snapshot is encrypted; decryption context required")
	}

	in, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("opening downloaded snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating restore target: %w", err)
	}
	defer out.Close()

	if err := dec.Decrypt(in, out); err != nil {
		return fmt.Errorf("decrypting snapshot: %w", err)
	}

	s.logger.Info("snapshot restored", "host", s.hostID, "path", destPath)
	return nil
}

// encrypted reports whether snapshots are encrypted before upload.
func (s *Service) encrypted() bool {
	return s.encryptor != nil && s.encryptor.IsConfigured()
}

// snapshotToTemp writes a consistent copy of the database to a temp file
// and returns its path. The caller removes the file.
func (s *Service) snapshotToTemp() (string, error) {
	tmpFile, err := os.CreateTemp("", "wallsync-snapshot-*.db")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	// VACUUM INTO refuses to overwrite an existing file.
	os.Remove(tmpPath)

	if err := s.store.BackupTo(tmpPath); err != nil {
		return "", fmt.Errorf("snapshotting database: %w", err)
	}
	return tmpPath, nil
}

// encryptSnapshot encrypts the snapshot at srcPath into a second temp file
// and returns its path. The caller removes the file.
func (s *Service) encryptSnapshot(srcPath string) (string, error) {
	in, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.CreateTemp("", "wallsync-snapshot-*.db.age")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	outPath := out.Name()

	if err := s.encryptor.Encrypt(in, out); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("encrypting snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("closing encrypted snapshot: %w", err)
	}
	return outPath, nil
}

// copyFile copies src to dst, truncating dst if it exists.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating target: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying snapshot: %w", err)
	}
	return nil
}
