package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/geodict/pkg/catalog"
	"github.com/samcharles93/geodict/pkg/convert"
	"github.com/samcharles93/geodict/pkg/defs"
	"github.com/samcharles93/geodict/pkg/geodict"
)

func newTestLibrary(t *testing.T) *geodict.Library {
	t.Helper()
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	lib := geodict.Open(t.TempDir(), geodict.WithCatalogOptions(catalog.WithClock(func() time.Time { return now })))
	t.Cleanup(func() { _ = lib.Close() })

	recs := []defs.Record{
		&defs.ElDef{KeyName: "GRS1980", ERad: 6378137.0, PRad: 6356752.31414036},
		&defs.ElDef{KeyName: "WGS84", ERad: 6378137.0, PRad: 6356752.31424518},
		&defs.ElDef{KeyName: "CLRK66", ERad: 6378206.4, PRad: 6356583.8},
		&defs.DtDef{KeyName: "NAD83", EllipsoidName: "GRS1980"},
		&defs.DtDef{KeyName: "WGS84", EllipsoidName: "WGS84"},
		&defs.DtDef{KeyName: "NAD27", EllipsoidName: "CLRK66"},
		&defs.GxDef{KeyName: "NAD27_to_NAD83", SourceDatum: "NAD27", TargetDatum: "NAD83",
			Method: defs.MethodGeocentric, Geocentric: defs.GeocentricParams{DeltaX: -8, DeltaY: 160, DeltaZ: 176},
			RangeMinLng: -170, RangeMinLat: 10, RangeMaxLng: -50, RangeMaxLat: 75},
		&defs.GxDef{KeyName: "WGS84_to_NAD83", SourceDatum: "WGS84", TargetDatum: "NAD83",
			Method: defs.MethodNull, Inverse: true},
	}
	for _, r := range recs {
		if _, err := lib.Install(r); err != nil {
			t.Fatalf("install %s: %v", r.Key(), err)
		}
	}
	return lib
}

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	server := NewServer(newTestLibrary(t), nil, nil)
	t.Cleanup(func() { _ = server.Close() })
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got %d want %d body=%s", rec.Code, want, rec.Body.String())
	}
}

func TestDictionaryEndpoints(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodGet, "/v1/dictionaries/datum", "")
	expectStatus(t, rec, http.StatusOK)
	list := decode[NameList](t, rec)
	if strings.Join(list.Names, ",") != "NAD27,NAD83,WGS84" || list.Kind != "dt" {
		t.Fatalf("unexpected list %+v", list)
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/dictionaries/gp", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[NameList](t, rec); len(got.Names) != 0 {
		t.Fatalf("expected empty path dictionary, got %v", got.Names)
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/dictionaries/el/clrk66", "")
	expectStatus(t, rec, http.StatusOK)
	el := decode[defs.ElDef](t, rec)
	if el.KeyName != "CLRK66" || el.Protect != defs.Distribution {
		t.Fatalf("unexpected ellipsoid %+v", el)
	}

	expectStatus(t, doJSON(t, e, http.MethodGet, "/v1/dictionaries/el/BESSEL", ""), http.StatusNotFound)
	expectStatus(t, doJSON(t, e, http.MethodGet, "/v1/dictionaries/planets", ""), http.StatusBadRequest)
}

func TestWriteEndpoints(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	body := `{"key_name":"ETRS89","ellipsoid":"GRS1980"}`
	rec := doJSON(t, e, http.MethodPut, "/v1/dictionaries/dt", body)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[UpdateResp](t, rec); got.Result != "added" || got.Name != "ETRS89" {
		t.Fatalf("unexpected update response %+v", got)
	}
	rec = doJSON(t, e, http.MethodPut, "/v1/dictionaries/dt", `{"key_name":"etrs89","ellipsoid":"GRS1980","description":"Europe"}`)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[UpdateResp](t, rec); got.Result != "updated" {
		t.Fatalf("unexpected update response %+v", got)
	}

	// Distribution records are refused.
	rec = doJSON(t, e, http.MethodPut, "/v1/dictionaries/dt", `{"key_name":"NAD27","ellipsoid":"GRS1980"}`)
	expectStatus(t, rec, http.StatusConflict)
	expectStatus(t, doJSON(t, e, http.MethodDelete, "/v1/dictionaries/dt/NAD27", ""), http.StatusConflict)

	// Dangling references are refused.
	rec = doJSON(t, e, http.MethodPut, "/v1/dictionaries/dt", `{"key_name":"TOKYO","ellipsoid":"BESSEL"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	rec = doJSON(t, e, http.MethodPut, "/v1/dictionaries/dt", `{"key_name":"TOKYO","colour":"red"}`)
	expectStatus(t, rec, http.StatusBadRequest)

	expectStatus(t, doJSON(t, e, http.MethodDelete, "/v1/dictionaries/dt/ETRS89", ""), http.StatusOK)
	expectStatus(t, doJSON(t, e, http.MethodGet, "/v1/dictionaries/dt/ETRS89", ""), http.StatusNotFound)
}

func TestBridgeEndpoint(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodGet, "/v1/bridge?source=NAD27&target=WGS84", "")
	expectStatus(t, rec, http.StatusOK)
	br := decode[BridgeResp](t, rec)
	want := "NAD27 -[NAD27_to_NAD83]-> NAD83 -[WGS84_to_NAD83 inv]-> WGS84"
	if br.Description != want || len(br.Steps) != 2 {
		t.Fatalf("unexpected bridge %+v", br)
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/bridge?source=NAD27&target=TOKYO", "")
	expectStatus(t, rec, http.StatusNotFound)
	if !strings.Contains(rec.Body.String(), "no_path_error") {
		t.Fatalf("unexpected error body %s", rec.Body.String())
	}
}

func TestCoveringEndpoint(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodGet, "/v1/transformations/covering?lng=-100&lat=40", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[CoveringResp](t, rec); len(got.Transformations) != 2 {
		t.Fatalf("expected both transformations, got %v", got.Transformations)
	}
	rec = doJSON(t, e, http.MethodGet, "/v1/transformations/covering?lng=2.35&lat=48.85", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[CoveringResp](t, rec); len(got.Transformations) != 1 || got.Transformations[0] != "WGS84_to_NAD83" {
		t.Fatalf("expected only the unranged transformation, got %v", got.Transformations)
	}
	expectStatus(t, doJSON(t, e, http.MethodGet, "/v1/transformations/covering?lng=x&lat=1", ""), http.StatusBadRequest)
}

func TestConversionLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/conversions", `{"source":"NAD27","target":"WGS84"}`)
	expectStatus(t, rec, http.StatusCreated)
	created := decode[Conversion](t, rec)
	if !strings.HasPrefix(created.ID, "conv_") || len(created.Stages) != 2 {
		t.Fatalf("unexpected conversion %+v", created)
	}
	if created.Policy.Block != convert.BlockWarnOnce {
		t.Fatalf("expected default policy, got %+v", created.Policy)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/conversions/"+created.ID+"/convert",
		`{"three_d":true,"points":[{"lng":-100,"lat":40,"hgt":1000}]}`)
	expectStatus(t, rec, http.StatusOK)
	res := decode[ConvertResp](t, rec)
	if len(res.Points) != 1 || res.Worst != convert.StatusOK {
		t.Fatalf("unexpected result %+v", res)
	}
	if p := res.Points[0]; p.Lng == -100 || p.Hgt == 0 {
		t.Fatalf("expected a shifted 3D point, got %+v", p)
	}

	expectStatus(t, doJSON(t, e, http.MethodGet, "/v1/conversions/"+created.ID, ""), http.StatusOK)
	rec = doJSON(t, e, http.MethodDelete, "/v1/conversions/"+created.ID, "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete response missing deleted=true: %s", rec.Body.String())
	}
	expectStatus(t, doJSON(t, e, http.MethodGet, "/v1/conversions/"+created.ID, ""), http.StatusNotFound)
	expectStatus(t, doJSON(t, e, http.MethodPost, "/v1/conversions/"+created.ID+"/convert", `{"points":[{"lng":0,"lat":0}]}`),
		http.StatusNotFound)
}

func TestConversionEscalatesSoftFailures(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/conversions",
		`{"source":"NAD27","target":"WGS84","policy":{"block":"fatal","max_errors":1,"resolution":1}}`)
	expectStatus(t, rec, http.StatusCreated)
	created := decode[Conversion](t, rec)

	rec = doJSON(t, e, http.MethodPost, "/v1/conversions/"+created.ID+"/convert",
		`{"points":[{"lng":2.35,"lat":48.85},{"lng":13.4,"lat":52.5}]}`)
	expectStatus(t, rec, http.StatusOK)
	res := decode[ConvertResp](t, rec)
	if res.Points[0].Status != convert.StatusOutside {
		t.Fatalf("first point: expected soft failure, got %v", res.Points[0].Status)
	}
	second := res.Points[1]
	if second.Status != convert.StatusTooMany || second.Lng != 13.4 || second.Lat != 52.5 {
		t.Fatalf("second point: expected escalation with input returned, got %+v", second)
	}
	if !res.Worst.Hard() {
		t.Fatalf("expected hard worst status, got %v", res.Worst)
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/conversions/"+created.ID, "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[Conversion](t, rec); len(got.Locations) != 2 {
		t.Fatalf("expected 2 recorded locations, got %v", got.Locations)
	}
}

func TestCreateConversionErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	expectStatus(t, doJSON(t, e, http.MethodPost, "/v1/conversions", `{"source":"NAD27","target":"MARS"}`), http.StatusNotFound)
	expectStatus(t, doJSON(t, e, http.MethodPost, "/v1/conversions", `{"source":`), http.StatusBadRequest)
	expectStatus(t, doJSON(t, e, http.MethodPost, "/v1/conversions",
		`{"source":"NAD27","target":"WGS84","policy":{"block":"sometimes"}}`), http.StatusBadRequest)
}
