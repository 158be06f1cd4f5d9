// Package vault provides off-host storage backends for archived cache
// snapshots.
package vault

import "io"

// Vault stores one cache snapshot per host, plus a version marker so a
// stale upload can be detected before it shadows a newer one.
// All operations stream through io.Reader/io.Writer so snapshots never have
// to fit in memory.
type Vault interface {
	// PutSnapshot stores the snapshot for a host along with its version.
	// size is the number of bytes that will be read from r.
	PutSnapshot(hostID string, r io.Reader, size int64, version int64) error

	// GetSnapshot retrieves the stored snapshot for a host and writes it to w.
	GetSnapshot(hostID string, w io.Writer) error

	// SnapshotVersion returns the stored snapshot version for a host.
	// Returns 0 if no snapshot has been stored.
	SnapshotVersion(hostID string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
