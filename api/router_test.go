package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/railbooking/config"
	"github.com/Domenick1991/railbooking/internal/auth"
	"github.com/Domenick1991/railbooking/internal/authz"
	"github.com/Domenick1991/railbooking/internal/media"
	"github.com/Domenick1991/railbooking/internal/repository/memory"
	"github.com/Domenick1991/railbooking/internal/service/catalog"
	"github.com/Domenick1991/railbooking/internal/service/orders"
	"github.com/Domenick1991/railbooking/internal/service/trips"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type testServer struct {
	router   *gin.Engine
	staff    string
	customer string
	other    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	authCfg := config.AuthConfig{Secret: "0123456789abcdef0123456789abcdef", Issuer: "railbooking", Audience: []string{"railbooking-api"}}
	authenticator, err := auth.NewAuthenticator(authCfg)
	require.NoError(t, err)
	authorizer, err := authz.NewAuthorizer(ctx)
	require.NoError(t, err)

	store := memory.NewStore()
	images := media.NewLocalStore(config.MediaConfig{Dir: t.TempDir(), BaseURL: "/media"})
	catalogService := catalog.NewCatalogService(catalog.Repositories{
		Stations:   store.Stations(),
		TrainTypes: store.TrainTypes(),
		Trains:     store.Trains(),
		Routes:     store.Routes(),
		Crew:       store.Crew(),
	}, images)

	router := NewRouter(Deps{
		Stations:      catalogService,
		Trains:        catalogService,
		Routes:        catalogService,
		Crew:          catalogService,
		Trips:         trips.NewTripService(store.Trips(), store.Routes(), store.Trains(), store.TrainTypes(), store.Crew()),
		Orders:        orders.NewOrderService(store.Orders(), store.Trips()),
		Images:        images,
		Authenticator: authenticator,
		Authorizer:    authorizer,
		AllowOrigins:  []string{"http://localhost:3000"},
		MediaDir:      images.Dir(),
		MediaURL:      "/media",
	})

	issuer := auth.NewIssuer(authCfg)
	token := func(id auth.Identity) string {
		tok, err := issuer.Issue(id, time.Hour)
		require.NoError(t, err)
		return tok
	}
	return &testServer{
		router:   router,
		staff:    token(auth.Identity{UserID: 1, IsStaff: true}),
		customer: token(auth.Identity{UserID: 2}),
		other:    token(auth.Identity{UserID: 3}),
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_AccessControl(t *testing.T) {
	s := newTestServer(t)

	testCases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{name: "no token", method: http.MethodGet, path: "/api/v1/stations", status: http.StatusUnauthorized},
		{name: "garbage token", method: http.MethodGet, path: "/api/v1/trips", token: "garbage", status: http.StatusUnauthorized},
		{name: "customer reads", method: http.MethodGet, path: "/api/v1/trains", token: s.customer, status: http.StatusOK},
		{name: "customer writes catalog", method: http.MethodPost, path: "/api/v1/train_types", token: s.customer, body: gin.H{"name": "Express"}, status: http.StatusForbidden},
		{name: "staff writes catalog", method: http.MethodPost, path: "/api/v1/train_types", token: s.staff, body: gin.H{"name": "Express"}, status: http.StatusCreated},
		{name: "anonymous delete", method: http.MethodDelete, path: "/api/v1/trips/1", status: http.StatusUnauthorized},
		{name: "garbage token on disallowed verb", method: http.MethodPut, path: "/api/v1/stations/1", token: "garbage", status: http.StatusUnauthorized},
		{name: "anonymous unknown verb on collection", method: http.MethodPatch, path: "/api/v1/orders", status: http.StatusUnauthorized},
		{name: "trips cannot be deleted", method: http.MethodDelete, path: "/api/v1/trips/1", token: s.staff, status: http.StatusMethodNotAllowed},
		{name: "stations cannot be updated", method: http.MethodPut, path: "/api/v1/stations/1", token: s.staff, status: http.StatusMethodNotAllowed},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/tickets", token: s.staff, status: http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestRouter_BookingFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/stations", s.staff, gin.H{"name": "Minsk", "latitude": 53.9, "longitude": 27.56})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	minsk := decode[StationView](t, w)
	w = s.do(t, http.MethodPost, "/api/v1/stations", s.staff, gin.H{"name": "Brest", "latitude": 52.09, "longitude": 23.68})
	require.Equal(t, http.StatusCreated, w.Code)
	brest := decode[StationView](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/stations", s.staff, gin.H{"name": "Minsk", "latitude": 1, "longitude": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/train_types", s.staff, gin.H{"name": "Intercity"})
	require.Equal(t, http.StatusCreated, w.Code)
	tt := decode[TrainTypeView](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/trains", s.staff, gin.H{"name": "IC-701", "cargo_num": 9, "places_in_cargo": 50, "train_type": tt.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	train := decode[TrainView](t, w)
	assert.Equal(t, 450, train.Capacity)

	w = s.do(t, http.MethodGet, "/api/v1/trains", s.customer, nil)
	trainList := decode[[]TrainListView](t, w)
	require.Len(t, trainList, 1)
	require.NotNil(t, trainList[0].TrainType)
	assert.Equal(t, "Intercity", *trainList[0].TrainType)

	w = s.do(t, http.MethodPost, "/api/v1/routes", s.staff, gin.H{"source": minsk.ID, "destination": brest.ID, "distance": 350})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	route := decode[RouteView](t, w)
	assert.Equal(t, "Minsk", route.Source)

	w = s.do(t, http.MethodPost, "/api/v1/crew", s.staff, gin.H{"first_name": "Anna", "last_name": "Kovaleva"})
	require.Equal(t, http.StatusCreated, w.Code)
	member := decode[CrewView](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/trips", s.staff, gin.H{
		"route": route.ID, "train": train.ID, "crew": []int64{member.ID},
		"departure_time": "2025-06-02T07:30:00Z", "arrival_time": "2025-06-02T11:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	trip := decode[TripView](t, w)

	order := gin.H{"tickets": []gin.H{{"trip": trip.ID, "cargo": 9, "seat": 50}}}
	w = s.do(t, http.MethodPost, "/api/v1/orders", s.customer, order)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/orders", s.other, order)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/orders", s.other, gin.H{"tickets": []gin.H{{"trip": trip.ID, "cargo": 10, "seat": 1}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Fields, "tickets[0].cargo")

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/trips?source=%d&departure_time=2025-06-02", minsk.ID), s.other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tripList := decode[[]TripListView](t, w)
	require.Len(t, tripList, 1)
	assert.Equal(t, 449, tripList[0].TicketsAvailable)
	assert.Equal(t, "Minsk -> Brest", tripList[0].RouteName)

	w = s.do(t, http.MethodGet, "/api/v1/trips?departure_time=2025-06-03", s.other, nil)
	assert.Empty(t, decode[[]TripListView](t, w))

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/trips/%d", trip.ID), s.other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[TripDetailView](t, w)
	assert.Equal(t, "Intercity", detail.Train.TrainType.Name)
	assert.Len(t, detail.Crew, 1)

	w = s.do(t, http.MethodGet, "/api/v1/orders", s.customer, nil)
	mine := decode[[]OrderListView](t, w)
	require.Len(t, mine, 1)
	assert.Equal(t, trip.ID, mine[0].Tickets[0].Trip.ID)

	w = s.do(t, http.MethodGet, "/api/v1/orders", s.other, nil)
	assert.Empty(t, decode[[]OrderListView](t, w))
}

func TestRouter_StationImage(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/stations", s.staff, gin.H{"name": "Grodno Central", "latitude": 53.67, "longitude": 23.83})
	require.Equal(t, http.StatusCreated, w.Code)
	station := decode[StationView](t, w)

	upload := func(token string, content []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/stations/%d/upload-image", station.ID), &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, upload(s.customer, pngPixel).Code)

	w = upload(s.staff, []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Fields, "image")

	w = upload(s.staff, pngPixel)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	uploaded := decode[StationDetailView](t, w)
	require.NotNil(t, uploaded.Image)
	assert.True(t, strings.HasPrefix(*uploaded.Image, "/media/uploads/stations/grodno-central-"), *uploaded.Image)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/stations/%d", station.ID), s.customer, nil)
	assert.Equal(t, *uploaded.Image, *decode[StationDetailView](t, w).Image)

	w = s.do(t, http.MethodGet, "/api/v1/stations", s.customer, nil)
	assert.NotContains(t, w.Body.String(), "image")

	w = s.do(t, http.MethodGet, *uploaded.Image, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
