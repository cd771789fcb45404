// Package dashboard renders a Grafana dashboard over the GreptimeDB sample
// table.
package dashboard

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"mmwave-irs-sim/internal/measure"
)

//go:embed grafana-dashboard.json.tmpl
var dashboardTemplate string

// FileName is the name of the rendered dashboard.
const FileName = "grafana-dashboard.json"

type panel struct {
	Title   string
	Channel string
	Unit    string
}

type dashboardData struct {
	Title  string
	Table  string
	Panels []panel
}

var panels = []panel{
	{Title: "Path loss per user", Channel: measure.PathLoss.String(), Unit: "dB"},
	{Title: "Average throughput per user", Channel: measure.Throughput.String(), Unit: "Mbits"},
}

// Render writes the dashboard for table to outDir. The datasource UID is read
// from GREPTIMEDB_DATASOURCE_UID.
func Render(outDir, title, table string) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		"add": func(a, b int) int { return a + b },
		"mul": func(a, b int) int { return a * b },
	}
	t, err := template.New(FileName).Funcs(funcMap).Parse(dashboardTemplate)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(outDir, FileName))
	if err != nil {
		return err
	}
	if err := t.Execute(f, dashboardData{Title: title, Table: table, Panels: panels}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
