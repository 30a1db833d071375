// =============================================================================
// output.go - Run outputs
// =============================================================================
//
// Layout under the data directory (stamp = YYYYMMDD_HHMMSS):
//
//	raw_articles_<stamp>.json    deduplicated articles
//	status_report_<stamp>.json   StatusReport of the run
//
// Every file is written atomically.
//
// =============================================================================
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout formats the stamp embedded in output file names.
const TimestampLayout = "20060102_150405"

// ErrNoData is returned when no raw_articles file exists.
var ErrNoData = errors.New("no article data found")

const (
	articlesPrefix = "raw_articles_"
	statusPrefix   = "status_report_"
)

// Stamp formats t for output file names.
func Stamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// RunFiles lists the files written for one run.
type RunFiles struct {
	Articles string `json:"articles"`
	Status   string `json:"status"`
}

// WriteRunFiles writes the article list and the status report.
func WriteRunFiles(dataDir, stamp string, articles []Article, report StatusReport) (RunFiles, error) {
	files := RunFiles{
		Articles: filepath.Join(dataDir, articlesPrefix+stamp+".json"),
		Status:   filepath.Join(dataDir, statusPrefix+stamp+".json"),
	}
	if articles == nil {
		articles = []Article{}
	}
	if err := writeJSONFile(files.Articles, articles); err != nil {
		return RunFiles{}, fmt.Errorf("write articles: %w", err)
	}
	if err := writeJSONFile(files.Status, report); err != nil {
		return RunFiles{}, fmt.Errorf("write status report: %w", err)
	}
	return files, nil
}

// LoadArticles reads a raw_articles file.
func LoadArticles(path string) ([]Article, error) {
	var articles []Article
	if err := readJSONFile(path, &articles); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return articles, nil
}

// LatestArticlesFile returns the most recently modified raw_articles file in
// dataDir.
func LatestArticlesFile(dataDir string) (string, error) {
	entries, err := os.ReadDir(dataDir)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoData
	}
	if err != nil {
		return "", err
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, articlesPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		// Same mtime: the later stamp wins.
		if best == "" || info.ModTime().After(bestTime) || (info.ModTime().Equal(bestTime) && name > filepath.Base(best)) {
			best = filepath.Join(dataDir, name)
			bestTime = info.ModTime()
		}
	}
	if best == "" {
		return "", ErrNoData
	}
	return best, nil
}
