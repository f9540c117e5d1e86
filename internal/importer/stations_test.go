package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/Domenick1991/railbooking/internal/repository/memory"
	"github.com/Domenick1991/railbooking/internal/service/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog() *catalog.CatalogService {
	store := memory.NewStore()
	return catalog.NewCatalogService(catalog.Repositories{
		Stations:   store.Stations(),
		TrainTypes: store.TrainTypes(),
		Trains:     store.Trains(),
		Routes:     store.Routes(),
		Crew:       store.Crew(),
	}, nil)
}

func TestImportStations(t *testing.T) {
	ctx := context.Background()
	svc := newCatalog()

	input := "name,latitude,longitude\nMinsk, 53.9, 27.56\nBrest,52.09,23.68\n"
	result, err := ImportStations(ctx, svc, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, &Result{Created: 2}, result)

	stations, err := svc.ListStations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, 53.9, stations[0].Latitude)

	result, err = ImportStations(ctx, svc, strings.NewReader(input+"Grodno,53.67,23.83\n"))
	require.NoError(t, err)
	assert.Equal(t, &Result{Created: 1, Skipped: 2}, result)
}

func TestImportStations_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "blank name", input: "name,latitude,longitude\n ,1,2\n"},
		{name: "bad number", input: "name,latitude,longitude\nMinsk,north,2\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ImportStations(context.Background(), newCatalog(), strings.NewReader(tc.input))
			assert.Error(t, err)
		})
	}

	_, err := ImportStations(context.Background(), newCatalog(), strings.NewReader("name,latitude,longitude\n,1,2\n"))
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
}
