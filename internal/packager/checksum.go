package packager

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteChecksum hashes the archive's bytes and writes the companion
// <archive>.sha256 file in sha256sum format. Returns the checksum file path.
func WriteChecksum(archivePath string) (string, error) {
	sum, err := fileSHA256(archivePath)
	if err != nil {
		return "", fmt.Errorf("hashing archive: %w", err)
	}

	path := archivePath + ".sha256"
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(archivePath))
	if err := os.WriteFile(path, []byte(line), 0644); err != nil {
		return "", fmt.Errorf("writing checksum file: %w", err)
	}
	return path, nil
}

// ValidateChecksum re-hashes the archive and compares against its companion
// checksum file.
func ValidateChecksum(archivePath string) error {
	f, err := os.Open(archivePath + ".sha256")
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return fmt.Errorf("empty checksum file")
	}
	recorded, _, _ := strings.Cut(scanner.Text(), " ")

	actual, err := fileSHA256(archivePath)
	if err != nil {
		return err
	}
	if actual != recorded {
		return fmt.Errorf("checksum mismatch: recorded %s, actual %s", recorded, actual)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
