package export

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/picrate/picrate/models"
)

// verify decodes every exported image on a bounded worker pool and
// collects the per-file failures. When the images were copied, the
// copies are checked rather than the originals.
func (e *Exporter) verify(opts Options, rows []models.Annotation) []string {
	numWorkers := opts.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 4
	}
	log.Printf("export: verifying %d image(s) with %d worker(s)", len(rows), numWorkers)

	jobs := make(chan models.Annotation, len(rows))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []string
	)

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for row := range jobs {
				path := e.Cat.AbsPath(row.ImagePath)
				if opts.CopyImages {
					path = filepath.Join(opts.OutputDir, "images", filepath.FromSlash(row.ImagePath))
				}
				if _, err := imaging.Open(path); err != nil {
					mu.Lock()
					failures = append(failures, fmt.Sprintf("%s: %v", row.ImagePath, err))
					mu.Unlock()
				}
			}
		}()
	}

	for i := range rows {
		jobs <- rows[i]
	}
	close(jobs)
	wg.Wait()

	sort.Strings(failures)
	if len(failures) > 0 {
		log.Printf("export: %d of %d image(s) failed verification", len(failures), len(rows))
	}
	return failures
}
