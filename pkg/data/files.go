package data

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/jaredthomas68/HOPP/pkg/model"
)

// psm3Row is one data row of an NSRDB PSM v3 file
type psm3Row struct {
	Month       int     `csv:"Month"`
	Day         int     `csv:"Day"`
	DNI         float64 `csv:"DNI"`
	GHI         float64 `csv:"GHI"`
	Temperature float64 `csv:"Temperature"`
	WindSpeed   float64 `csv:"Wind Speed"`
}

// srwRow is one data row of a SAM wind resource file
type srwRow struct {
	Speed float64 `csv:"Speed"`
}

// headerReader skips lines before and after the header line of a CSV file
// with metadata and returns a reader that starts at the header
func headerReader(r io.Reader, skipBefore, skipAfter int, required []string) (io.Reader, error) {
	br := bufio.NewReader(r)
	for i := 0; i < skipBefore; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("%w: missing metadata line %d: %v", ErrMalformedResource, i+1, err)
		}
	}
	header, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrMalformedResource, err)
	}

	columns := make(map[string]bool)
	for _, col := range strings.Split(strings.TrimSpace(header), ",") {
		columns[strings.TrimSpace(col)] = true
	}
	for _, name := range required {
		if !columns[name] {
			return nil, fmt.Errorf("%w: column %q not found", ErrMalformedResource, name)
		}
	}

	for i := 0; i < skipAfter; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("%w: missing header line: %v", ErrMalformedResource, err)
		}
	}
	return io.MultiReader(strings.NewReader(header), br), nil
}

// PSM3Provider implements ResourceProvider for NSRDB PSM v3 CSV files.
// The file has two metadata lines followed by a header row.
type PSM3Provider struct {
	filePath string
}

// NewPSM3Provider creates a new PSM3 file provider
func NewPSM3Provider(filePath string) *PSM3Provider {
	return &PSM3Provider{filePath: filePath}
}

// Streams lists the streams read from the file
func (p *PSM3Provider) Streams() []model.Stream {
	return []model.Stream{model.StreamDNI, model.StreamGHI, model.StreamTemperature, model.StreamWindSpeed}
}

// Fetch reads the file
func (p *PSM3Provider) Fetch(ctx context.Context) (*model.ResourceSeries, error) {
	file, err := os.Open(p.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open solar resource file: %w", err)
	}
	defer file.Close()

	return ParsePSM3(file)
}

// ParsePSM3 parses PSM v3 data. Leap-day rows are dropped so the result
// always has 365 days.
func ParsePSM3(r io.Reader) (*model.ResourceSeries, error) {
	body, err := headerReader(r, 2, 0, []string{"Month", "Day", "DNI", "GHI", "Temperature", "Wind Speed"})
	if err != nil {
		return nil, err
	}

	var rows []psm3Row
	if err := gocsv.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResource, err)
	}

	kept := rows[:0]
	for _, row := range rows {
		if row.Month == 2 && row.Day == 29 {
			continue
		}
		kept = append(kept, row)
	}

	sph, err := stepsPerHour(len(kept))
	if err != nil {
		return nil, err
	}

	series := model.NewResourceSeries(sph)
	dni := make([]float64, len(kept))
	ghi := make([]float64, len(kept))
	temp := make([]float64, len(kept))
	wind := make([]float64, len(kept))
	for i, row := range kept {
		dni[i] = row.DNI
		ghi[i] = row.GHI
		temp[i] = row.Temperature
		wind[i] = row.WindSpeed
	}
	series.Set(model.StreamDNI, dni)
	series.Set(model.StreamGHI, ghi)
	series.Set(model.StreamTemperature, temp)
	series.Set(model.StreamWindSpeed, wind)
	return series, nil
}

// SRWWindProvider implements ResourceProvider for SAM .srw wind files.
// Column names are on the third of five header lines.
type SRWWindProvider struct {
	filePath string
}

// NewSRWWindProvider creates a new wind file provider
func NewSRWWindProvider(filePath string) *SRWWindProvider {
	return &SRWWindProvider{filePath: filePath}
}

// Streams lists the streams read from the file
func (p *SRWWindProvider) Streams() []model.Stream {
	return []model.Stream{model.StreamWindSpeed}
}

// Fetch reads the file
func (p *SRWWindProvider) Fetch(ctx context.Context) (*model.ResourceSeries, error) {
	file, err := os.Open(p.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open wind resource file: %w", err)
	}
	defer file.Close()

	return ParseSRW(file)
}

// ParseSRW parses SAM wind resource data
func ParseSRW(r io.Reader) (*model.ResourceSeries, error) {
	body, err := headerReader(r, 2, 2, []string{"Speed"})
	if err != nil {
		return nil, err
	}

	var rows []srwRow
	if err := gocsv.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResource, err)
	}
	sph, err := stepsPerHour(len(rows))
	if err != nil {
		return nil, err
	}

	speed := make([]float64, len(rows))
	for i, row := range rows {
		speed[i] = row.Speed
	}
	series := model.NewResourceSeries(sph)
	series.Set(model.StreamWindSpeed, speed)
	return series, nil
}

// PriceProvider implements ResourceProvider for price multiplier files with
// one value in the first column of every row and no header
type PriceProvider struct {
	filePath string
}

// NewPriceProvider creates a new price file provider
func NewPriceProvider(filePath string) *PriceProvider {
	return &PriceProvider{filePath: filePath}
}

// Streams lists the streams read from the file
func (p *PriceProvider) Streams() []model.Stream {
	return []model.Stream{model.StreamPrice}
}

// Fetch reads the file
func (p *PriceProvider) Fetch(ctx context.Context) (*model.ResourceSeries, error) {
	file, err := os.Open(p.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file: %w", err)
	}
	defer file.Close()

	return ParsePrices(file)
}

// ParsePrices parses a price multiplier column
func ParsePrices(r io.Reader) (*model.ResourceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var prices []float64
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedResource, line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid price %q", ErrMalformedResource, line, record[0])
		}
		prices = append(prices, v)
	}

	sph, err := stepsPerHour(len(prices))
	if err != nil {
		return nil, err
	}
	series := model.NewResourceSeries(sph)
	series.Set(model.StreamPrice, prices)
	return series, nil
}
