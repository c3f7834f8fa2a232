package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jaredthomas68/HOPP/pkg/data"
)

const psm3URL = "https://developer.nrel.gov/api/nsrdb/v2/solar/psm3-download.csv"

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	log := logger.Sugar()

	lat := flag.Float64("lat", 35.2018863, "Site latitude")
	lon := flag.Float64("lon", -101.945027, "Site longitude")
	year := flag.Int("year", 2012, "Resource year")
	apiKey := flag.String("api-key", os.Getenv("NREL_API_KEY"), "NREL developer API key")
	email := flag.String("email", os.Getenv("NREL_API_EMAIL"), "Email registered with the API key")
	output := flag.String("output", "", "Output CSV file path")
	flag.Parse()

	if *apiKey == "" || *email == "" {
		log.Fatal("An NREL API key and email are required (--api-key, --email)")
	}
	if *output == "" {
		*output = fmt.Sprintf("data/%.4f_%.4f_psmv3_60_%d.csv", *lat, *lon, *year)
	}

	q := url.Values{}
	q.Set("api_key", *apiKey)
	q.Set("email", *email)
	q.Set("wkt", fmt.Sprintf("POINT(%f %f)", *lon, *lat))
	q.Set("names", fmt.Sprintf("%d", *year))
	q.Set("attributes", "dni,ghi,dhi,air_temperature,wind_speed")
	q.Set("interval", "60")
	q.Set("leap_day", "false")
	q.Set("utc", "false")

	log.Infof("Fetching PSM3 %d for (%.4f, %.4f)...", *year, *lat, *lon)

	resp, err := http.Get(psm3URL + "?" + q.Encode())
	if err != nil {
		log.Fatalf("Failed to fetch data: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("NSRDB returned %s: %s", resp.Status, body)
	}

	// Parse before writing so a bad download never lands in the data dir
	series, err := data.ParsePSM3(bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Downloaded file is not a usable PSM3 year: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if err := os.WriteFile(*output, body, 0644); err != nil {
		log.Fatalf("Failed to write output file: %v", err)
	}

	log.Infof("Saved %d hourly steps per stream to %s", series.Steps(), *output)
}
