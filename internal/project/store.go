package project

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Store manages the on-disk project layout:
//
//	<root>/<name>/input.xlsx
//	<root>/<name>/config.json
//	<root>/<name>/log.csv
//	<root>/<name>/calculations/
//	<root>/<name>/reports/
//	<root>/<name>/normativas/
type Store struct {
	Root string
}

var nameRe = regexp.MustCompile(`^[\p{L}\d][\p{L}\d _-]{0,99}$`)

// ValidName rejects names that would escape the projects directory or break
// the filesystem layout.
func ValidName(name string) bool {
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return false
	}
	return nameRe.MatchString(name)
}

// Config is the per-project configuration stored in config.json.
type Config struct {
	Normative   string `json:"normative"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// Summary is one row of the project listing.
type Summary struct {
	Name         string `json:"name"`
	Normative    string `json:"normative"`
	HasWorkbook  bool   `json:"has_workbook"`
	HasOverrides bool   `json:"has_overrides"`
	CreatedAt    string `json:"created_at,omitempty"`
}

func (s *Store) dir(name string) string       { return filepath.Join(s.Root, name) }
func (s *Store) WorkbookPath(n string) string { return filepath.Join(s.Root, n, "input.xlsx") }
func (s *Store) ReportsDir(n string) string   { return filepath.Join(s.Root, n, "reports") }
func (s *Store) CalcsDir(n string) string     { return filepath.Join(s.Root, n, "calculations") }

// Exists reports whether the project directory is present.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.dir(name))
	return err == nil && info.IsDir()
}

// Create lays out a new project directory with a default config.
func (s *Store) Create(name, normative, description string) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid project name %q", name)
	}
	if s.Exists(name) {
		return fmt.Errorf("project %q already exists", name)
	}
	for _, sub := range []string{"calculations", "reports", "normativas"} {
		if err := os.MkdirAll(filepath.Join(s.dir(name), sub), 0o755); err != nil {
			return err
		}
	}
	cfg := Config{
		Normative:   normative,
		Description: description,
		CreatedAt:   time.Now().Format(time.RFC3339),
	}
	if err := s.SaveConfig(name, cfg); err != nil {
		return err
	}
	return s.AppendLog(name, "created", "project created with normative "+normative)
}

// List returns all projects sorted by name.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Summary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		cfg, _ := s.LoadConfig(name)
		_, wbErr := os.Stat(s.WorkbookPath(name))
		_, ovErr := os.Stat(filepath.Join(s.dir(name), "norm_overrides.json"))
		out = append(out, Summary{
			Name:         name,
			Normative:    cfg.Normative,
			HasWorkbook:  wbErr == nil,
			HasOverrides: ovErr == nil,
			CreatedAt:    cfg.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a project and everything under it. The confirm flag is a
// deliberate speed bump: callers must pass confirm=true.
func (s *Store) Delete(name string, confirm bool) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid project name %q", name)
	}
	if !confirm {
		return fmt.Errorf("deletion of %q requires confirmation", name)
	}
	if !s.Exists(name) {
		return fmt.Errorf("project %q not found", name)
	}
	return os.RemoveAll(s.dir(name))
}

// SaveWorkbook stores the uploaded spreadsheet as input.xlsx.
func (s *Store) SaveWorkbook(name string, r io.Reader) error {
	if !s.Exists(name) {
		return fmt.Errorf("project %q not found", name)
	}
	f, err := os.OpenFile(s.WorkbookPath(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return err
	}
	return s.AppendLog(name, "upload", "workbook replaced")
}

// OpenWorkbook opens the project's input.xlsx for parsing.
func (s *Store) OpenWorkbook(name string) (*Workbook, error) {
	return OpenWorkbook(s.WorkbookPath(name))
}

// SaveConfig writes config.json, stamping the update time on rewrites.
func (s *Store) SaveConfig(name string, cfg Config) error {
	if cfg.CreatedAt == "" {
		cfg.CreatedAt = time.Now().Format(time.RFC3339)
	} else {
		cfg.UpdatedAt = time.Now().Format(time.RFC3339)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir(name), "config.json"), data, 0o644)
}

// LoadConfig reads config.json; a missing file yields the zero config.
func (s *Store) LoadConfig(name string) (Config, error) {
	data, err := os.ReadFile(filepath.Join(s.dir(name), "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, err
	}
	var cfg Config
	err = json.Unmarshal(data, &cfg)
	return cfg, err
}

// AppendLog adds one event row to the project's log.csv.
func (s *Store) AppendLog(name, event, detail string) error {
	f, err := os.OpenFile(filepath.Join(s.dir(name), "log.csv"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{time.Now().Format(time.RFC3339), event, detail}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// SaveCalculation persists a calculation payload under calculations/ with a
// timestamped filename and returns the path written.
func (s *Store) SaveCalculation(name, kind string, payload any) (string, error) {
	if err := os.MkdirAll(s.CalcsDir(name), 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.CalcsDir(name), fmt.Sprintf("%s_%s.json", kind, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
