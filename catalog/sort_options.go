package catalog

import (
	"path/filepath"
	"sort"

	"github.com/facette/natsort"

	"github.com/picrate/picrate/utils"
)

const (
	SortFilenameAsc = "filename_asc"
	SortFilenameNat = "filename_nat"
	SortDateDesc    = "date_desc"
	SortDateAsc     = "date_asc"
)

const DefaultSortOrder = SortFilenameAsc

// IsValidSortOrder checks if a string is a valid sort order constant
func IsValidSortOrder(order string) bool {
	switch order {
	case SortFilenameAsc, SortDateDesc, SortDateAsc, SortFilenameNat:
		return true
	default:
		return false
	}
}

// sortPaths orders scanned identifiers in place. The date orders read
// every file once for its capture time, so they cost an extra pass over
// the folder; ties fall back to the filename for a stable result.
func sortPaths(root string, paths []string, order string) {
	switch order {
	case SortFilenameNat:
		natsort.Sort(paths)
	case SortDateAsc, SortDateDesc:
		takenAt := make(map[string]int64, len(paths))
		for _, p := range paths {
			takenAt[p] = utils.TakenAt(filepath.Join(root, filepath.FromSlash(p)))
		}
		sort.SliceStable(paths, func(i, j int) bool {
			ti, tj := takenAt[paths[i]], takenAt[paths[j]]
			if ti == tj {
				return paths[i] < paths[j]
			}
			if order == SortDateDesc {
				return ti > tj
			}
			return ti < tj
		})
	default:
		sort.Strings(paths)
	}
}
