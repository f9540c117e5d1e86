// Package importer loads catalog data from CSV files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/Domenick1991/railbooking/internal/service/catalog"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

type StationRecord struct {
	Name      string  `csv:"name"`
	Latitude  float64 `csv:"latitude"`
	Longitude float64 `csv:"longitude"`
}

type Result struct {
	Created int
	Skipped int
}

// ImportStations creates a station per CSV row. Rows whose name already
// exists are skipped, so re-running an import is harmless.
func ImportStations(ctx context.Context, stations catalog.StationUseCase, r io.Reader) (*Result, error) {
	var records []StationRecord
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	if err := gocsv.UnmarshalCSV(reader, &records); err != nil {
		return nil, fmt.Errorf("parse stations csv: %w", err)
	}

	result := &Result{}
	for i, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return result, fmt.Errorf("row %d: %w", i+2, domain.NewValidationError("name", "this field may not be blank"))
		}

		_, err := stations.CreateStation(ctx, catalog.CreateStationInput{
			Name:      name,
			Latitude:  rec.Latitude,
			Longitude: rec.Longitude,
		})
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, domain.ErrConflict):
			log.Debug().Str("station", name).Msg("station exists, skipping")
			result.Skipped++
		default:
			return result, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	log.Info().Int("created", result.Created).Int("skipped", result.Skipped).Msg("stations imported")
	return result, nil
}
