package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/autoblock/internal/constants"
)

const sampleConfig = `{"username": "alice", "selfcontrol-path": "/Applications/SelfControl.app", "block-schedules": [{"start-hour": 9, "start-minute": 0, "end-hour": 17, "end-minute": 0}]}`

func setupTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), constants.RunConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write run config: %v", err)
	}
	return path
}

// fixedClock returns a clock that advances one second per call
func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		t := current
		current = current.Add(time.Second)
		return t
	}
}

func TestCreateBackup(t *testing.T) {
	configPath := setupTestConfig(t, sampleConfig)

	mgr := NewManager(configPath, nil)
	mgr.now = fixedClock(time.Date(2026, 10, 12, 9, 30, 0, 0, time.Local))

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if want := filepath.Join(mgr.GetBackupDir(), "run-config-20261012-093000.json"); backupPath != want {
		t.Errorf("backup path = %s, want %s", backupPath, want)
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		t.Fatalf("failed to read backup: %v", err)
	}
	if string(data) != sampleConfig {
		t.Errorf("backup content mismatch: %s", data)
	}
}

func TestCreateBackupWithoutConfig(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), constants.RunConfigFileName), nil)
	if _, err := mgr.CreateBackup(); err == nil {
		t.Error("CreateBackup should fail when the run config does not exist")
	}
}

func TestUniqueBackupFilenames(t *testing.T) {
	configPath := setupTestConfig(t, sampleConfig)

	mgr := NewManager(configPath, nil)
	stuck := time.Date(2026, 10, 12, 9, 30, 0, 0, time.Local)
	mgr.now = func() time.Time { return stuck }

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		path, err := mgr.CreateBackup()
		if err != nil {
			t.Fatalf("CreateBackup %d failed: %v", i, err)
		}
		if seen[path] {
			t.Fatalf("duplicate backup path %s", path)
		}
		seen[path] = true
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 3 {
		t.Errorf("expected 3 backups, got %d", len(backups))
	}
}

func TestBackupRotation(t *testing.T) {
	configPath := setupTestConfig(t, sampleConfig)

	mgr := NewManager(configPath, nil)
	mgr.now = fixedClock(time.Date(2026, 10, 1, 8, 0, 0, 0, time.Local))

	for i := 0; i < constants.MaxBackups+3; i++ {
		if _, err := mgr.CreateBackup(); err != nil {
			t.Fatalf("CreateBackup %d failed: %v", i, err)
		}
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != constants.MaxBackups {
		t.Errorf("expected %d backups after rotation, got %d", constants.MaxBackups, len(backups))
	}

	// the three oldest are gone
	for _, b := range backups {
		if strings.HasSuffix(b.Path, "run-config-20261001-080000.json") {
			t.Errorf("oldest backup should have been rotated out: %s", b.Path)
		}
	}
}

func TestListBackups(t *testing.T) {
	configPath := setupTestConfig(t, sampleConfig)
	mgr := NewManager(configPath, nil)

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups on missing directory failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %d", len(backups))
	}

	mgr.now = fixedClock(time.Date(2026, 10, 12, 9, 0, 0, 0, time.Local))
	for i := 0; i < 3; i++ {
		if _, err := mgr.CreateBackup(); err != nil {
			t.Fatalf("CreateBackup failed: %v", err)
		}
	}

	// files that do not look like backups are ignored
	if err := os.WriteFile(filepath.Join(mgr.GetBackupDir(), "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mgr.GetBackupDir(), "run-config-garbage.json"), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	backups, err = mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(backups))
	}
	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backups not sorted newest first: %v after %v", backups[i].Timestamp, backups[i-1].Timestamp)
		}
	}
	if backups[0].Size != int64(len(sampleConfig)) {
		t.Errorf("backup size = %d, want %d", backups[0].Size, len(sampleConfig))
	}
}

func TestRestoreBackup(t *testing.T) {
	configPath := setupTestConfig(t, sampleConfig)

	mgr := NewManager(configPath, nil)
	mgr.now = fixedClock(time.Date(2026, 10, 12, 9, 0, 0, 0, time.Local))

	original, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	changed := `{"username": "bob"}`
	if err := os.WriteFile(configPath, []byte(changed), 0600); err != nil {
		t.Fatal(err)
	}

	if err := mgr.RestoreBackup(original); err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sampleConfig {
		t.Errorf("run config not restored, got %s", data)
	}

	// the replaced config was snapshotted before the restore
	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Fatalf("expected original and pre-restore backups, got %d", len(backups))
	}
	pre, err := os.ReadFile(backups[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(pre) != changed {
		t.Errorf("pre-restore backup content = %s, want %s", pre, changed)
	}

	if _, err := os.Stat(configPath + ".restore.tmp"); !os.IsNotExist(err) {
		t.Error("temporary restore file should be removed")
	}
}

func TestRestoreInvalidBackup(t *testing.T) {
	configPath := setupTestConfig(t, sampleConfig)
	mgr := NewManager(configPath, nil)

	if err := mgr.RestoreBackup(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("RestoreBackup should fail for a missing file")
	}

	corrupted := filepath.Join(t.TempDir(), "run-config-20261012-090000.json")
	if err := os.WriteFile(corrupted, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := mgr.RestoreBackup(corrupted); err == nil {
		t.Error("RestoreBackup should fail for a corrupted backup")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sampleConfig {
		t.Error("run config must be untouched after a failed restore")
	}
}
