package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/picrate/picrate/database"
	"github.com/picrate/picrate/repository"
)

var statsRecords bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print annotation statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsRecords, "records", false, "also dump every annotation record")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.DatabasePath); os.IsNotExist(err) {
		return fmt.Errorf("no annotation database at %s", cfg.DatabasePath)
	}

	db, sqlDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	summary, err := database.GetAnnotationSummary(sqlDB)
	if err != nil {
		return err
	}
	dist, err := database.GetRatingDistribution(sqlDB)
	if err != nil {
		return err
	}
	annotators, err := database.ListAnnotators(sqlDB)
	if err != nil {
		return err
	}

	fmt.Printf("Database: %s\n", cfg.DatabasePath)
	fmt.Printf("Records: %d (rated %d, marked %d)\n", summary.TotalRecords, summary.Rated, summary.Marked)
	if len(annotators) > 0 {
		fmt.Printf("Annotators: %s\n", strings.Join(annotators, ", "))
	}

	fmt.Println("\nRating distribution:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "rating\tcount")
	for rating := 1; rating <= cfg.NumClasses; rating++ {
		fmt.Fprintf(w, "%d\t%d\n", rating, dist[rating])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if statsRecords {
		rows, err := repository.NewAnnotationRepository(db).ListAll()
		if err != nil {
			return err
		}
		fmt.Println("\nRecords:")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "image\trating\tmarked\tusername\ttimestamp")
		for i := range rows {
			fmt.Fprintf(w, "%s\t%d\t%t\t%s\t%s\n",
				rows[i].ImagePath, rows[i].Rating, rows[i].Marked, rows[i].Username, rows[i].Timestamp)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
