// Package blocklist persists the resolved host list handed to the blocking
// engine. The engine reads it as an XML property list.
package blocklist

import (
	"fmt"
	"os"
	"path/filepath"

	"howett.net/plist"

	"github.com/julianstephens/autoblock/internal/models"
)

// Write serialises bl to path, replacing any previous file atomically.
func Write(path string, bl models.Blocklist) error {
	if bl.HostBlacklist == nil {
		bl.HostBlacklist = []string{}
	}

	data, err := plist.MarshalIndent(bl, plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("failed to encode blocklist: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create blocklist directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write blocklist: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace blocklist: %w", err)
	}
	return nil
}

// Read loads a blocklist written by Write.
func Read(path string) (models.Blocklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Blocklist{}, fmt.Errorf("failed to read blocklist: %w", err)
	}

	var bl models.Blocklist
	if _, err := plist.Unmarshal(data, &bl); err != nil {
		return models.Blocklist{}, fmt.Errorf("failed to decode blocklist: %w", err)
	}
	return bl, nil
}
