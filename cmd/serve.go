package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/picrate/picrate/catalog"
	"github.com/picrate/picrate/config"
	"github.com/picrate/picrate/handlers"
	"github.com/picrate/picrate/repository"
	"github.com/picrate/picrate/session"
)

var (
	serveImagesFolder string
	servePort         int
	serveDatabasePath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the annotation web server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveImagesFolder, "images", "", "images folder to annotate (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveDatabasePath, "db", "", "annotation database path (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("images") {
		cfg.ImagesFolder = serveImagesFolder
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("db") {
		cfg.DatabasePath = serveDatabasePath
	}
	if err := cfg.Finalize(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Scan before opening the database: the default database path lives
	// inside the images folder, and a bad folder must abort as a
	// configuration error without leaving a database file behind.
	cat, err := catalog.Scan(cfg.ImagesFolder, cfg.SortOrder)
	if err != nil {
		return err
	}

	db, sqlDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	repo := repository.NewAnnotationRepository(db)
	sess, err := session.New(cat, repo, cfg.Username, cfg.NumClasses, cfg.MaxHistory)
	if err != nil {
		return err
	}

	router, err := handlers.NewRouter(&cfg, sess, sqlDB)
	if err != nil {
		return err
	}

	log.Printf("Starting %s", cfg.Title)
	log.Printf("Annotating %d image(s) from %s as %s", cat.Len(), cfg.ImagesFolder, cfg.Username)
	log.Printf("Rating scale 1..%d, undo depth %d, sort order %s", cfg.NumClasses, cfg.MaxHistory, cfg.SortOrder)
	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Resuming at image %d of %d (%s)", sess.Index()+1, cat.Len(), sess.Current())
	log.Printf("Open http://%s in your browser", cfg.Addr())

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
