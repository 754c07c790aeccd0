// Package reports persists diagnostics snapshots as timestamped files.
package reports

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/preston-56/lms-backend/internal/domain"
)

const (
	filePrefix = "activity_report_"
	timeLayout = "20060102_150405"

	maxSameSecond = 1000
)

var (
	ErrReportNotFound    = errors.New("report not found")
	ErrInvalidReportName = errors.New("invalid report name")

	namePattern = regexp.MustCompile(`^activity_report_\d{8}_\d{6}(?:_(\d+))?\.(json|txt)$`)
)

// Store writes and reads diagnostics report pairs.
type Store interface {
	Write(at time.Time, jsonBody, textBody []byte) (domain.ReportLocation, error)
	List() ([]Info, error)
	Latest(ext string) (Info, error)
	Read(name string) ([]byte, error)
}

// Info describes one stored report file.
type Info struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// FileStore keeps reports in a single directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a store rooted at dir. The directory is created on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the report directory.
func (s *FileStore) Dir() string { return s.dir }

// BaseName returns the report name for a timestamp, without extension.
func BaseName(at time.Time) string {
	return filePrefix + at.Format(timeLayout)
}

// Write stores a report pair. Reports are write-once: a second report in the
// same second gets a _2, _3, ... suffix instead of replacing the first.
func (s *FileStore) Write(at time.Time, jsonBody, textBody []byte) (domain.ReportLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return domain.ReportLocation{}, fmt.Errorf("create report dir: %w", err)
	}

	loc, err := s.reserve(at)
	if err != nil {
		return domain.ReportLocation{}, err
	}
	if err := writeFile(loc.JSON, jsonBody); err != nil {
		_ = os.Remove(loc.JSON)
		return domain.ReportLocation{}, err
	}
	if err := writeFile(loc.Text, textBody); err != nil {
		_ = os.Remove(loc.JSON)
		return domain.ReportLocation{}, err
	}
	return loc, nil
}

// reserve claims an unused name by creating the JSON file exclusively.
func (s *FileStore) reserve(at time.Time) (domain.ReportLocation, error) {
	name := BaseName(at)
	for seq := 1; seq <= maxSameSecond; seq++ {
		base := name
		if seq > 1 {
			base = fmt.Sprintf("%s_%d", name, seq)
		}
		base = filepath.Join(s.dir, base)
		loc := domain.ReportLocation{JSON: base + ".json", Text: base + ".txt"}

		if _, err := os.Stat(loc.Text); err == nil {
			continue
		}
		f, err := os.OpenFile(loc.JSON, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return domain.ReportLocation{}, fmt.Errorf("reserve report %s: %w", filepath.Base(base), err)
		}
		_ = f.Close()
		return loc, nil
	}
	return domain.ReportLocation{}, fmt.Errorf("reserve report %s: too many reports in one second", name)
}

// List returns every report file, newest first.
func (s *FileStore) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read report dir: %w", err)
	}

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !namePattern.MatchString(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Name:      e.Name(),
			Path:      filepath.Join(s.dir, e.Name()),
			Size:      fi.Size(),
			CreatedAt: parseTimestamp(e.Name(), fi.ModTime()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].Name, out[j].Name) })
	return out, nil
}

// Latest returns the newest report with the given extension ("json" or "txt").
func (s *FileStore) Latest(ext string) (Info, error) {
	items, err := s.List()
	if err != nil {
		return Info{}, err
	}
	suffix := "." + strings.TrimPrefix(ext, ".")
	for _, it := range items {
		if strings.HasSuffix(it.Name, suffix) {
			return it, nil
		}
	}
	return Info{}, ErrReportNotFound
}

// Read returns the content of a report by file name.
func (s *FileStore) Read(name string) ([]byte, error) {
	if !namePattern.MatchString(name) {
		return nil, ErrInvalidReportName
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("read report: %w", err)
	}
	return data, nil
}

func writeFile(path string, body []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write report %s: %w", filepath.Base(path), err)
	}
	return nil
}

// newer orders report names by timestamp, then sequence, then extension.
func newer(a, b string) bool {
	ta, tb := stamp(a), stamp(b)
	if ta != tb {
		return ta > tb
	}
	sa, sb := sequence(a), sequence(b)
	if sa != sb {
		return sa > sb
	}
	return a > b
}

// stamp returns the timestamp part of a valid report name.
func stamp(name string) string {
	stem := strings.TrimPrefix(name, filePrefix)
	if len(stem) < len(timeLayout) {
		return stem
	}
	return stem[:len(timeLayout)]
}

func sequence(name string) int {
	m := namePattern.FindStringSubmatch(name)
	if m == nil || m[1] == "" {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 1
	}
	return n
}

func parseTimestamp(name string, fallback time.Time) time.Time {
	t, err := time.ParseInLocation(timeLayout, stamp(name), time.Local)
	if err != nil {
		return fallback
	}
	return t
}
