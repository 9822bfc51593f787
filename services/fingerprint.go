package services

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// fingerprintBlockSize is the read block used when hashing source files.
const fingerprintBlockSize = 8192

// FileHash returns the hex MD5 digest of the file's raw bytes, read in
// fixed-size blocks. Identical content yields an identical digest
// regardless of path; used only for dedup, not for security.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, fingerprintBlockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
