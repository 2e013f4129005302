package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ngmaloney/croak-counter/internal/config"
	"github.com/ngmaloney/croak-counter/internal/export"
	"github.com/ngmaloney/croak-counter/internal/geocoding"
	"github.com/ngmaloney/croak-counter/internal/ledger"
	"github.com/ngmaloney/croak-counter/internal/models"
	"github.com/ngmaloney/croak-counter/internal/noaa"
	"github.com/ngmaloney/croak-counter/internal/storage"
	"github.com/ngmaloney/croak-counter/internal/survey"
	"github.com/ngmaloney/croak-counter/internal/ui"
	"github.com/ngmaloney/croak-counter/internal/upload"
)

func main() {
	cfg := config.Load()

	surveyType := flag.String("survey", "beginner", "Survey form to open (beginner or advanced)")
	dbPath := flag.String("db", cfg.DBPath, "Path to the local survey database")
	uploadURL := flag.String("upload-url", cfg.UploadURL, "Endpoint that collects uploaded observations")
	list := flag.Bool("list", false, "Print saved observations and exit")
	exportFormat := flag.String("export", "", "Export observations (geojson or shapefile) and exit")
	out := flag.String("out", "", "Output path for --export (geojson defaults to stdout)")
	uploadPending := flag.Bool("upload", false, "Upload every observation not yet uploaded and exit")
	flag.Parse()

	form, ok := survey.ByType(models.SurveyType(*surveyType))
	if !ok {
		fmt.Printf("Error: unknown survey %q (want beginner or advanced)\n", *surveyType)
		os.Exit(1)
	}
	if *exportFormat == "shapefile" && *out == "" {
		fmt.Println("Error: --export shapefile requires --out")
		os.Exit(1)
	}

	logFile, err := openLog(cfg.LogFile)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := config.NewLogger(cfg.LogLevel, logFile)
	slog.SetDefault(logger)

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Printf("Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	var uploader upload.Client
	if *uploadURL != "" {
		uploader = upload.NewHTTPClient(*uploadURL)
	}
	weather := noaa.NewWeatherClientWithBaseURL(cfg.WeatherURL)
	svc := survey.NewService(ledger.New(store, ledger.WithLogger(logger)), uploader, weather, logger)
	svc.SetGeocoder(geocoding.NewGeocoder())

	switch {
	case *list:
		printObservations(os.Stdout, svc.Ledger().LoadAll())
		return
	case *exportFormat != "":
		if err := runExport(*exportFormat, *out, svc.Ledger().LoadAll()); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	case *uploadPending:
		n, result := svc.UploadPending(context.Background())
		if !result.Success {
			fmt.Printf("Upload failed: %s\n", result.Error)
			os.Exit(1)
		}
		fmt.Printf("Uploaded %d observations\n", n)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var connectivity <-chan bool
	if uploader != nil {
		connectivity = upload.NewMonitor(uploader).Run(ctx)
	}

	model := ui.NewModel(ui.Options{
		Store:        store,
		Service:      svc,
		Form:         form,
		Connectivity: connectivity,
		Logger:       logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(ui.Model); ok {
		m.Close()
	} else {
		model.Close()
	}
	if err != nil {
		fmt.Printf("Error running application: %v\n", err)
		os.Exit(1)
	}
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func printObservations(w io.Writer, obs []models.Observation) {
	if len(obs) == 0 {
		fmt.Fprintln(w, "No observations saved")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSITE\tTYPE\tSTATUS\tID")
	for _, o := range obs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			o.Date.Local().Format("2006-01-02 15:04"), o.Site, o.SurveyType, o.Status, o.ID)
	}
	tw.Flush()
}

func runExport(format, out string, obs []models.Observation) error {
	switch format {
	case "geojson":
		w := io.Writer(os.Stdout)
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}
		n, err := export.GeoJSON(w, obs)
		if err != nil {
			return err
		}
		if out != "" {
			fmt.Printf("Exported %d observations to %s\n", n, out)
		}
		return nil

	case "shapefile":
		n, err := export.Shapefile(out, obs)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d observations to %s\n", n, out)
		return nil
	}
	return fmt.Errorf("unknown export format %q (want geojson or shapefile)", format)
}
