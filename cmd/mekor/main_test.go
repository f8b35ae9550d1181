package main

import (
	"os"
	"path/filepath"
	"testing"
)

const testCatalogXML = `<?xml version="1.0" encoding="UTF-8"?>
<catalog>
  <source id="ls" title="Likkutei Sichos">
    <volume id="ls-28" title="לקוטי שיחות חלק כח" number="28">
      <item id="ls-28-nasso-1" title="נשא א" page="33" pages="7" parsha="נשא"/>
    </volume>
  </source>
</catalog>`

func createTestCatalog(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.xml")
	if err := os.WriteFile(path, []byte(testCatalogXML), 0644); err != nil {
		t.Fatalf("failed to create catalog file: %v", err)
	}
	return path
}

func useTempStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := CLI.Store
	CLI.Store = filepath.Join(dir, "mekor.db")
	t.Cleanup(func() { CLI.Store = prev })
	return dir
}

func TestParseCmd(t *testing.T) {
	cmd := ParseCmd{Text: "Likkutei Sichos, vol. 28, p. 33"}
	if err := cmd.Run(); err != nil {
		t.Fatalf("ParseCmd: %v", err)
	}
}

func TestImportThenFormat(t *testing.T) {
	dir := useTempStore(t)
	catalogPath := createTestCatalog(t, dir)

	importCmd := ImportCmd{Path: catalogPath}
	if err := importCmd.Run(); err != nil {
		t.Fatalf("ImportCmd: %v", err)
	}

	formatCmd := FormatCmd{RootID: "ls", Reference: "vol. 28, p. 33"}
	if err := formatCmd.Run(); err != nil {
		t.Fatalf("FormatCmd: %v", err)
	}
}

func TestFormatCmdUnresolved(t *testing.T) {
	dir := useTempStore(t)
	catalogPath := createTestCatalog(t, dir)

	importCmd := ImportCmd{Path: catalogPath}
	if err := importCmd.Run(); err != nil {
		t.Fatalf("ImportCmd: %v", err)
	}

	formatCmd := FormatCmd{RootID: "ls", Reference: "vol. 99, p. 33"}
	if err := formatCmd.Run(); err == nil {
		t.Fatal("expected error for unknown volume")
	}
}

func TestMatchCmd(t *testing.T) {
	dir := useTempStore(t)
	catalogPath := createTestCatalog(t, dir)

	importCmd := ImportCmd{Path: catalogPath}
	if err := importCmd.Run(); err != nil {
		t.Fatalf("ImportCmd: %v", err)
	}

	matchCmd := MatchCmd{Text: "Likutei Sichos vol. 28"}
	if err := matchCmd.Run(); err != nil {
		t.Fatalf("MatchCmd: %v", err)
	}

	noMatch := MatchCmd{Text: "entirely unrelated text"}
	if err := noMatch.Run(); err == nil {
		t.Fatal("expected error when nothing matches")
	}
}

func TestSnapshotRoundTripCmds(t *testing.T) {
	dir := useTempStore(t)
	catalogPath := createTestCatalog(t, dir)

	importCmd := ImportCmd{Path: catalogPath}
	if err := importCmd.Run(); err != nil {
		t.Fatalf("ImportCmd: %v", err)
	}

	snapshotPath := filepath.Join(dir, "snapshot.tar.xz")
	exportCmd := SnapshotExportCmd{Output: snapshotPath}
	if err := exportCmd.Run(); err != nil {
		t.Fatalf("SnapshotExportCmd: %v", err)
	}

	infoCmd := SnapshotInfoCmd{Path: snapshotPath}
	if err := infoCmd.Run(); err != nil {
		t.Fatalf("SnapshotInfoCmd: %v", err)
	}

	// Restore into a fresh store.
	CLI.Store = filepath.Join(dir, "restored.db")
	restoreCmd := SnapshotRestoreCmd{Path: snapshotPath}
	if err := restoreCmd.Run(); err != nil {
		t.Fatalf("SnapshotRestoreCmd: %v", err)
	}

	formatCmd := FormatCmd{RootID: "ls", Reference: "vol. 28, p. 33"}
	if err := formatCmd.Run(); err != nil {
		t.Fatalf("FormatCmd after restore: %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := VersionCmd{}
	if err := cmd.Run(); err != nil {
		t.Fatalf("VersionCmd: %v", err)
	}
}
