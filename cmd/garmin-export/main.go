package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexanderakbik/GarminExport/internal/config"
	"github.com/alexanderakbik/GarminExport/internal/export"
	"github.com/alexanderakbik/GarminExport/internal/garmin"
)

func main() {
	// Credentials and overrides may live in a local .env file.
	_ = godotenv.Load()
	cfg := config.Load()

	mode := flag.String("mode", "both", "what to export: activities, daily, or both")
	out := flag.String("out", cfg.ActivitiesFile, "activities table path")
	dailyOut := flag.String("daily-out", cfg.DailyHealthFile, "daily health table path")
	gpsDir := flag.String("gps-dir", cfg.GPSTracksDir, "directory for downloaded GPS tracks")
	start := flag.String("start", cfg.StartDate, "inclusive start date (YYYY-MM-DD)")
	end := flag.String("end", "", "inclusive end date for daily health (YYYY-MM-DD, default today)")
	flag.Parse()

	if *mode != "activities" && *mode != "daily" && *mode != "both" {
		log.Fatalf("unknown mode %q (want activities, daily, or both)", *mode)
	}
	if cfg.Username == "" || cfg.Password == "" {
		log.Fatal("missing credentials: set GARMIN_USER and GARMIN_PASSWORD")
	}

	ctx := context.Background()

	client := garmin.New(cfg.APIBaseURL, cfg.Username, cfg.Password, garmin.WithTimeout(cfg.HTTPTimeout))
	log.Println("authenticating with Garmin Connect...")
	if err := client.Login(ctx); err != nil {
		log.Fatalf("authentication failed: %v", err)
	}
	log.Println("authentication successful")

	if cfg.MetricsAddress != "" {
		go func() {
			log.Printf("metrics listening on %s", cfg.MetricsAddress)
			if err := http.ListenAndServe(cfg.MetricsAddress, promhttp.Handler()); err != nil {
				log.Printf("metrics server error: %v", err)
			}
		}()
	}

	var opts []export.Option
	if cfg.ProgressEvery > 0 {
		opts = append(opts, export.WithProgressEvery(cfg.ProgressEvery))
	}
	engine := export.New(client, opts...)

	if *mode == "activities" || *mode == "both" {
		counts, err := engine.SyncActivities(ctx, *out, *gpsDir, *start)
		if err != nil {
			log.Fatalf("activity export failed: %v", err)
		}
		log.Printf("activities saved to %s (new=%d updated=%d unchanged=%d)",
			*out, counts.New, counts.Updated, counts.Unchanged)
	}

	if *mode == "daily" || *mode == "both" {
		counts, err := engine.SyncDailyHealth(ctx, *dailyOut, *start, *end)
		if err != nil {
			log.Fatalf("daily health export failed: %v", err)
		}
		log.Printf("daily health saved to %s (new=%d updated=%d unchanged=%d)",
			*dailyOut, counts.New, counts.Updated, counts.Unchanged)
	}
}
