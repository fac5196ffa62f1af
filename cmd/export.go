package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/picrate/picrate/catalog"
	"github.com/picrate/picrate/export"
	"github.com/picrate/picrate/repository"
)

var (
	exportOut        string
	exportFormat     string
	exportCopyImages bool
	exportVerify     bool
	exportWorkers    int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the annotations as a dataset",
	Long: `Export writes the rated annotations as CSV and/or JSON together with
a metadata manifest, and can copy and verify the image files.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output directory")
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatCSV, "annotation format: csv, json or both")
	exportCmd.Flags().BoolVar(&exportCopyImages, "copy-images", false, "copy the rated images into the output directory")
	exportCmd.Flags().BoolVar(&exportVerify, "verify", false, "decode every exported image and report failures")
	exportCmd.Flags().IntVar(&exportWorkers, "workers", 4, "verification workers")
	exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, args []string) error {
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

	cat, err := catalog.Scan(cfg.ImagesFolder, cfg.SortOrder)
	if err != nil {
		return err
	}

	exporter := &export.Exporter{
		Repo:  repository.NewAnnotationRepository(db),
		SQLDB: sqlDB,
		Cat:   cat,
		Cfg:   cfg,
	}
	res, err := exporter.Run(export.Options{
		OutputDir:  exportOut,
		Format:     exportFormat,
		CopyImages: exportCopyImages,
		Verify:     exportVerify,
		NumWorkers: exportWorkers,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d record(s) to %s (export id %s)\n", res.Metadata.RecordCount, exportOut, res.Metadata.ExportID)
	if exportCopyImages {
		fmt.Printf("Copied %d image(s)\n", res.CopiedImages)
	}
	for _, failure := range res.VerifyErrors {
		fmt.Printf("verify failed: %s\n", failure)
	}
	if len(res.VerifyErrors) > 0 {
		return fmt.Errorf("%d image(s) failed verification", len(res.VerifyErrors))
	}
	return nil
}
