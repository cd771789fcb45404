package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	if err := Render(t.TempDir(), "mmWave", "mmwave_metrics"); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")

	dir := t.TempDir()
	if err := Render(dir, "mmWave IRS", "mmwave_metrics"); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	var doc struct {
		Title  string `json:"title"`
		Panels []struct {
			ID      int `json:"id"`
			Targets []struct {
				RawSQL string `json:"rawSql"`
			} `json:"targets"`
		} `json:"panels"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("rendered dashboard is not valid JSON: %v\n%s", err, b)
	}
	if doc.Title != "mmWave IRS" || len(doc.Panels) != 2 {
		t.Fatalf("unexpected dashboard: %+v", doc)
	}
	if !strings.Contains(string(b), "uid1") {
		t.Fatalf("greptime uid not rendered")
	}
	sql := doc.Panels[1].Targets[0].RawSQL
	if !strings.Contains(sql, "FROM mmwave_metrics") || !strings.Contains(sql, "channel = 'throughput'") {
		t.Fatalf("unexpected query: %s", sql)
	}
	if doc.Panels[0].ID != 1 || doc.Panels[1].ID != 2 {
		t.Fatalf("panel ids = %d, %d", doc.Panels[0].ID, doc.Panels[1].ID)
	}
}
