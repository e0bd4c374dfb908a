package journey

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backend-journeylog/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

type memoryUploads struct {
	saved map[string]string
}

func (m *memoryUploads) Save(_ context.Context, userID string, kind storage.Kind, filename string, r io.Reader) (storage.Object, error) {
	if got, ok := storage.KindOf(filename); !ok || got != kind {
		return storage.Object{}, storage.ErrUnsupportedKind
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.Object{}, err
	}
	if m.saved == nil {
		m.saved = map[string]string{}
	}
	url := "https://files.example/uploads/" + filename
	m.saved[url] = string(data)
	return storage.Object{UserID: userID, Kind: kind, Name: filename, URL: url}, nil
}

const testTrack = `<gpx><trk><trkseg>
	<trkpt lat="45.1" lon="6.1"><ele>1200</ele></trkpt>
	<trkpt lat="45.3" lon="6.3"><ele>1900</ele></trkpt>
</trkseg></trk></gpx>`

func asUser(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func newTestApp(t *testing.T) (pgxmock.PgxPoolIface, *fiber.App, *memoryUploads) {
	t.Helper()
	mock, svc, _, _ := newTestService(t)
	uploads := &memoryUploads{}
	app := fiber.New()
	RegisterRoutes(app.Group("/api/journey"), svc, uploads, asUser("user-1"))
	return mock, app, uploads
}

func formBody(t *testing.T, fields map[string]string, files map[string]string, fileField string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	for name, content := range files {
		part, err := w.CreateFormFile(fileField, name)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = part.Write([]byte(content))
	}
	_ = w.Close()
	return body, w.FormDataContentType()
}

func TestJourneyHandlersCreateAndGet(t *testing.T) {
	mock, app, _ := newTestApp(t)

	mock.ExpectExec(`INSERT INTO journeys`).
		WithArgs(pgxmock.AnyArg(), "user-1", "Mont Blanc", pgxmock.AnyArg(), "WINTER", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	req := httptest.NewRequest(http.MethodPost, "/api/journey/", strings.NewReader(`{"title":"Mont Blanc","season":"winter","date":"2024-02-10"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %v", err)
	}

	var wire Wire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wire.ID == "" || wire.Date != "2024-02-10T00:00:00.000Z" || wire.Season != SeasonWinter {
		t.Fatalf("unexpected created journey %+v", wire)
	}

	mock.ExpectQuery(`SELECT data FROM journeys`).
		WithArgs("j-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(journeyData(t, sampleJourney())))
	req = httptest.NewRequest(http.MethodGet, "/api/journey/j-1", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get status: %v", err)
	}
}

func TestJourneyHandlersCreateWithIDUpdates(t *testing.T) {
	mock, app, _ := newTestApp(t)

	mock.ExpectQuery(`SELECT data FROM journeys`).
		WithArgs("j-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(journeyData(t, sampleJourney())))
	mock.ExpectExec(`UPDATE journeys`).
		WithArgs("j-1", "user-1", "Cosmiques", pgxmock.AnyArg(), "SUMMER", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	req := httptest.NewRequest(http.MethodPost, "/api/journey/", strings.NewReader(`{"id":"j-1","title":"Cosmiques","date":"2024-06-04"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("save status: %v", err)
	}
	var wire Wire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wire.Date != "2024-06-04T00:00:00.000Z" || len(wire.Members) != 2 {
		t.Fatalf("expected new date over stored members, got %+v", wire)
	}

	mock.ExpectQuery(`SELECT data FROM journeys`).
		WithArgs("j-9", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}))
	req = httptest.NewRequest(http.MethodPost, "/api/journey/", strings.NewReader(`{"id":"j-9","title":"Ghost"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found for unknown id, got %d", resp.StatusCode)
	}
}

func TestJourneyHandlersUpdateKeepsOmittedFields(t *testing.T) {
	mock, app, _ := newTestApp(t)

	mock.ExpectQuery(`SELECT data FROM journeys`).
		WithArgs("j-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(journeyData(t, sampleJourney())))
	mock.ExpectExec(`UPDATE journeys`).
		WithArgs("j-1", "user-1", "Arête des Cosmiques", pgxmock.AnyArg(), "SUMMER", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	req := httptest.NewRequest(http.MethodPut, "/api/journey/j-1", strings.NewReader(`{"meteo":{"wind":{"speed":40}},"members":["Ana"]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("update status: %v", err)
	}
	var wire Wire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wire.ID != "j-1" || wire.Date != "2024-06-04T05:00:00.000Z" {
		t.Fatalf("stored id and date should survive, got %+v", wire)
	}
	if wire.Meteo.Wind.Speed != 40 || wire.Meteo.Wind.Direction != WindNW || wire.Meteo.Bera != 2 {
		t.Fatalf("expected nested merge of meteo, got %+v", wire.Meteo)
	}
	if len(wire.Members) != 1 || len(wire.Pictures) != 1 {
		t.Fatalf("members replaced, pictures kept: %+v %+v", wire.Members, wire.Pictures)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJourneyHandlersMultipartCreate(t *testing.T) {
	mock, app, uploads := newTestApp(t)

	mock.ExpectExec(`INSERT INTO journeys`).
		WithArgs(pgxmock.AnyArg(), "user-1", "Traversée", pgxmock.AnyArg(), "SUMMER", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	body, contentType := formBody(t,
		map[string]string{"journey": `{"title":"Traversée","date":"2024-06-04"}`},
		map[string]string{"track.gpx": testTrack, "summit.jpg": "jpeg"},
		"files")
	req := httptest.NewRequest(http.MethodPost, "/api/journey/", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("multipart create status: %v", err)
	}

	var wire Wire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(wire.Pictures) != 1 || wire.Itinerary.Gpx == "" || wire.Altitudes.Max != 1900 {
		t.Fatalf("attachments not applied: %+v", wire)
	}
	if len(uploads.saved) != 2 {
		t.Fatalf("expected two stored files")
	}
}

func TestJourneyHandlersBadRequests(t *testing.T) {
	_, app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/journey/", strings.NewReader(`[1,2]`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", resp.StatusCode)
	}

	body, contentType := formBody(t, nil, map[string]string{"notes.txt": "x"}, "files")
	req = httptest.NewRequest(http.MethodPost, "/api/journey/", body)
	req.Header.Set("Content-Type", contentType)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request without journey field, got %d", resp.StatusCode)
	}

	body, contentType = formBody(t, map[string]string{"journey": `{"title":"x"}`}, map[string]string{"notes.txt": "x"}, "files")
	req = httptest.NewRequest(http.MethodPost, "/api/journey/", body)
	req.Header.Set("Content-Type", contentType)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected unsupported media type, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/journey/user/user-2", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %d", resp.StatusCode)
	}
}

func TestJourneyHandlersListUpdateDelete(t *testing.T) {
	mock, app, _ := newTestApp(t)

	mock.ExpectQuery(`SELECT id, data`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "data"}).AddRow("j-1", journeyData(t, sampleJourney())))
	req := httptest.NewRequest(http.MethodGet, "/api/journey/user/user-1", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %v", err)
	}
	var list []Wire
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil || len(list) != 1 {
		t.Fatalf("unexpected list: %v", err)
	}

	mock.ExpectQuery(`SELECT data FROM journeys`).
		WithArgs("j-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(journeyData(t, sampleJourney())))
	mock.ExpectExec(`UPDATE journeys`).
		WithArgs("j-1", "user-1", "Updated", pgxmock.AnyArg(), "SUMMER", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	req = httptest.NewRequest(http.MethodPut, "/api/journey/j-1", strings.NewReader(`{"title":"Updated","date":"2024-06-04"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("update status: %v", err)
	}

	mock.ExpectExec(`DELETE FROM journeys`).WithArgs("j-1", "user-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	req = httptest.NewRequest(http.MethodDelete, "/api/journey/j-1", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status: %v", err)
	}

	mock.ExpectExec(`DELETE FROM journeys`).WithArgs("j-2", "user-1").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	req = httptest.NewRequest(http.MethodDelete, "/api/journey/j-2", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", resp.StatusCode)
	}
}

func TestJourneyHandlersUploads(t *testing.T) {
	mock, app, _ := newTestApp(t)

	mock.ExpectQuery(`SELECT data FROM journeys`).
		WithArgs("j-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(journeyData(t, sampleJourney())))
	mock.ExpectExec(`UPDATE journeys`).
		WithArgs("j-1", "user-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	body, contentType := formBody(t, nil, map[string]string{"summit.webp": "webp"}, "file")
	req := httptest.NewRequest(http.MethodPost, "/api/journey/j-1/upload/image", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("image upload status: %v", err)
	}
	var url string
	if err := json.NewDecoder(resp.Body).Decode(&url); err != nil || url != "https://files.example/uploads/summit.webp" {
		t.Fatalf("unexpected url %q: %v", url, err)
	}

	mock.ExpectQuery(`SELECT data FROM journeys`).
		WithArgs("j-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(journeyData(t, sampleJourney())))
	mock.ExpectExec(`UPDATE journeys`).
		WithArgs("j-1", "user-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	body, contentType = formBody(t, nil, map[string]string{"route.gpx": testTrack}, "file")
	req = httptest.NewRequest(http.MethodPost, "/api/journey/j-1/upload/gpx", body)
	req.Header.Set("Content-Type", contentType)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("gpx upload status: %v", err)
	}

	body, contentType = formBody(t, nil, map[string]string{"route.gpx": "not a track"}, "file")
	req = httptest.NewRequest(http.MethodPost, "/api/journey/j-1/upload/gpx", body)
	req.Header.Set("Content-Type", contentType)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected unprocessable track, got %d", resp.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJourneyHandlersMeteoRefresh(t *testing.T) {
	mock, app, _ := newTestApp(t)

	far := sampleJourney().WithDate(fixedNow.AddDate(0, 1, 0))
	mock.ExpectQuery(`SELECT data FROM journeys`).
		WithArgs("j-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(journeyData(t, far)))
	req := httptest.NewRequest(http.MethodPost, "/api/journey/j-1/meteo/refresh", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict, got %d", resp.StatusCode)
	}

	noEnd := sampleJourney().WithItinerary(Itinerary{})
	mock.ExpectQuery(`SELECT data FROM journeys`).
		WithArgs("j-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(journeyData(t, noEnd)))
	req = httptest.NewRequest(http.MethodPost, "/api/journey/j-1/meteo/refresh", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected unprocessable, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`SELECT id, data`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "data"}))
	req = httptest.NewRequest(http.MethodPost, "/api/journey/user/user-1/meteo/refresh", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("bulk refresh status: %v", err)
	}
	var out map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out["refreshed"] != 0 {
		t.Fatalf("unexpected bulk refresh response %v: %v", out, err)
	}
}

func TestJourneyHandlersGpxWithNonFiniteValues(t *testing.T) {
	mock, app, uploads := newTestApp(t)

	var stored []byte
	mock.ExpectQuery(`SELECT data FROM journeys`).
		WithArgs("j-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(journeyData(t, Empty(fixedNow).WithID("j-1"))))
	mock.ExpectExec(`UPDATE journeys`).
		WithArgs("j-1", "user-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), captureArg(&stored)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	track := `<gpx><trk><trkseg>
	<trkpt lat="NaN" lon="6.8"><ele>1000</ele></trkpt>
	<trkpt lat="45.1" lon="6.1"><ele>NaN</ele></trkpt>
	<trkpt lat="45.3" lon="6.3"><ele>Inf</ele></trkpt>
</trkseg></trk></gpx>`
	body, contentType := formBody(t, nil, map[string]string{"odd.gpx": track}, "file")
	req := httptest.NewRequest(http.MethodPost, "/api/journey/j-1/upload/gpx", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("gpx upload status: %v %v", resp, err)
	}

	j, ok, err := Decode(stored)
	if err != nil || !ok {
		t.Fatalf("stored journey should decode: %v", err)
	}
	if j.Itinerary.Start.Latitude != 45.1 || j.Itinerary.End.Latitude != 45.3 {
		t.Fatalf("unexpected itinerary %+v", j.Itinerary)
	}
	if j.Altitudes != (Altitudes{}) {
		t.Fatalf("non-finite elevations must not reach altitudes, got %+v", j.Altitudes)
	}

	body, contentType = formBody(t, nil, map[string]string{"nan.gpx": `<gpx><trk><trkseg><trkpt lat="NaN" lon="NaN"/></trkseg></trk></gpx>`}, "file")
	req = httptest.NewRequest(http.MethodPost, "/api/journey/j-1/upload/gpx", body)
	req.Header.Set("Content-Type", contentType)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected unprocessable track, got %d", resp.StatusCode)
	}
	if _, saved := uploads.saved["https://files.example/uploads/nan.gpx"]; saved {
		t.Fatalf("rejected track must not be stored")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// capturedBytes matches any []byte argument and keeps it.
type capturedBytes struct{ dst *[]byte }

func captureArg(dst *[]byte) capturedBytes { return capturedBytes{dst: dst} }

func (c capturedBytes) Match(v any) bool {
	if b, ok := v.([]byte); ok {
		*c.dst = b
		return true
	}
	return false
}
