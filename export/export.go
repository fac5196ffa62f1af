// Package export turns the annotation datastore into a shareable
// dataset: the rated rows as CSV and/or JSON, a metadata manifest and
// optionally the image files themselves.
package export

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/picrate/picrate/apperr"
	"github.com/picrate/picrate/catalog"
	"github.com/picrate/picrate/config"
	"github.com/picrate/picrate/database"
	"github.com/picrate/picrate/models"
	"github.com/picrate/picrate/repository"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatBoth = "both"
)

// Options control a single export run.
type Options struct {
	OutputDir  string
	Format     string
	CopyImages bool
	Verify     bool
	NumWorkers int
}

// Metadata is written to metadata.json next to the exported rows.
type Metadata struct {
	ExportID     string      `json:"export_id"`
	GeneratedAt  string      `json:"generated_at"`
	Title        string      `json:"title"`
	NumClasses   int         `json:"num_classes"`
	TotalImages  int         `json:"total_images"`
	RecordCount  int         `json:"record_count"`
	MarkedCount  int         `json:"marked_count"`
	Distribution map[int]int `json:"rating_distribution"`
	Annotators   []string    `json:"annotators"`
}

// Result reports what a run produced.
type Result struct {
	Metadata     Metadata
	CopiedImages int
	VerifyErrors []string
}

// Exporter reads the live catalog and datastore of one annotation
// project.
type Exporter struct {
	Repo  repository.AnnotationRepositoryInterface
	SQLDB *sql.DB
	Cat   *catalog.Catalog
	Cfg   config.Config
}

// Run writes the dataset described by opts. Only rows with an actual
// rating are exported; marked-only rows stay behind.
func (e *Exporter) Run(opts Options) (*Result, error) {
	switch opts.Format {
	case FormatCSV, FormatJSON, FormatBoth:
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", apperr.ErrInvalidConfig, opts.Format)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", opts.OutputDir, err)
	}

	rows, err := e.Repo.ListAll()
	if err != nil {
		return nil, err
	}
	rated := make([]models.Annotation, 0, len(rows))
	for i := range rows {
		if rows[i].IsRated() {
			rated = append(rated, rows[i])
		}
	}

	if opts.Format == FormatCSV || opts.Format == FormatBoth {
		if err := writeCSV(filepath.Join(opts.OutputDir, "annotations.csv"), rated); err != nil {
			return nil, err
		}
	}
	if opts.Format == FormatJSON || opts.Format == FormatBoth {
		if err := writeJSONFile(filepath.Join(opts.OutputDir, "annotations.json"), rated); err != nil {
			return nil, err
		}
	}

	meta, err := e.buildMetadata(len(rated))
	if err != nil {
		return nil, err
	}
	if err := writeJSONFile(filepath.Join(opts.OutputDir, "metadata.json"), meta); err != nil {
		return nil, err
	}

	result := &Result{Metadata: meta}

	if opts.CopyImages {
		copied, err := e.copyImages(opts.OutputDir, rated)
		if err != nil {
			return nil, err
		}
		result.CopiedImages = copied
	}

	if opts.Verify {
		result.VerifyErrors = e.verify(opts, rated)
	}

	log.Printf("export: wrote %d record(s) to %s", len(rated), opts.OutputDir)
	return result, nil
}

func (e *Exporter) buildMetadata(recordCount int) (Metadata, error) {
	summary, err := database.GetAnnotationSummary(e.SQLDB)
	if err != nil {
		return Metadata{}, err
	}
	dist, err := database.GetRatingDistribution(e.SQLDB)
	if err != nil {
		return Metadata{}, err
	}
	annotators, err := database.ListAnnotators(e.SQLDB)
	if err != nil {
		return Metadata{}, err
	}

	return Metadata{
		ExportID:     uuid.NewString(),
		GeneratedAt:  models.NowTimestamp(),
		Title:        e.Cfg.Title,
		NumClasses:   e.Cfg.NumClasses,
		TotalImages:  e.Cat.Len(),
		RecordCount:  recordCount,
		MarkedCount:  summary.Marked,
		Distribution: dist,
		Annotators:   annotators,
	}, nil
}

func writeCSV(path string, rows []models.Annotation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"image_path", "rating", "marked", "username", "timestamp"}); err != nil {
		return err
	}
	for i := range rows {
		record := []string{
			rows[i].ImagePath,
			strconv.Itoa(rows[i].Rating),
			strconv.FormatBool(rows[i].Marked),
			rows[i].Username,
			rows[i].Timestamp,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSONFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// copyImages mirrors the rated files into <out>/images, preserving
// their catalog-relative layout. Rows whose file disappeared since
// annotation are skipped with a log line.
func (e *Exporter) copyImages(outDir string, rows []models.Annotation) (int, error) {
	imagesDir := filepath.Join(outDir, "images")
	copied := 0
	for i := range rows {
		src := e.Cat.AbsPath(rows[i].ImagePath)
		dst := filepath.Join(imagesDir, filepath.FromSlash(rows[i].ImagePath))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return copied, fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
		}
		if err := copyFile(src, dst); err != nil {
			log.Printf("export: failed to copy %s: %v. Skipping.", rows[i].ImagePath, err)
			continue
		}
		copied++
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
