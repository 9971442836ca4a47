package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/geostamp"
	"github.com/menta2k/geostamp/pkg/overlay"
	"github.com/menta2k/geostamp/pkg/types"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Process(ctx context.Context, r io.Reader, loc types.Location) (*types.Result, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(string(data), loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Result), args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	args := m.Called(name, data, contentType)
	return args.String(0), args.Error(1)
}

var location = types.Location{Address: "12 Main St", City: "Pune", State: "MH", Country: "India"}

func uploadRequest(t *testing.T, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile(FieldImage, "photo.jpg")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func allFields() map[string]string {
	return map[string]string{
		FieldAddress: location.Address,
		FieldCity:    location.City,
		FieldState:   location.State,
		FieldCountry: location.Country,
	}
}

func TestHealthCheck(t *testing.T) {
	s := New(new(MockProcessor), nil, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health_check", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "UP"}`, rec.Body.String())
}

func TestForm(t *testing.T) {
	s := New(new(MockProcessor), nil, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	for _, field := range []string{FieldAddress, FieldCity, FieldState, FieldCountry, FieldImage} {
		assert.Contains(t, rec.Body.String(), fmt.Sprintf("name=%q", field))
	}
	assert.Contains(t, rec.Body.String(), `enctype="multipart/form-data"`)
}

func TestStamp(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Process", "jpeg-bytes", location).Return(&types.Result{
		Data:        []byte("stamped"),
		Format:      "jpeg",
		ContentType: "image/jpeg",
	}, nil)

	sink := new(MockSink)
	sink.On("Store", mock.MatchedBy(func(name string) bool {
		return strings.HasSuffix(name, "_stamped.jpg")
	}), []byte("stamped"), "image/jpeg").Return("/archive/x.jpg", nil)

	s := New(proc, sink, Config{ArchiveSuffix: "_stamped"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, allFields(), []byte("jpeg-bytes")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="output_image.jpg"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "stamped", rec.Body.String())
	proc.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestStampKeepsFormat(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Process", "png-bytes", location).Return(&types.Result{
		Data:        []byte("png"),
		Format:      "png",
		ContentType: "image/png",
	}, nil)

	s := New(proc, nil, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, allFields(), []byte("png-bytes")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="output_image.png"`, rec.Header().Get("Content-Disposition"))
}

func TestStampProcessingFailure(t *testing.T) {
	cause := &geostamp.ProcessingError{Stage: geostamp.StageCompose, Err: overlay.ErrThumbnailUnavailable}
	proc := new(MockProcessor)
	proc.On("Process", "jpeg-bytes", location).Return(nil, cause)

	sink := new(MockSink)
	s := New(proc, sink, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, allFields(), []byte("jpeg-bytes")))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "processing failed", strings.TrimSpace(rec.Body.String()))
	assert.NotContains(t, rec.Body.String(), "thumbnail", "causes are not exposed to clients")
	sink.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
}

func TestStampArchiveFailureStillResponds(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Process", "jpeg-bytes", location).Return(&types.Result{
		Data: []byte("stamped"), Format: "jpeg", ContentType: "image/jpeg",
	}, nil)
	sink := new(MockSink)
	sink.On("Store", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket gone"))

	s := New(proc, sink, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, allFields(), []byte("jpeg-bytes")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stamped", rec.Body.String())
}

func TestStampBadRequests(t *testing.T) {
	missingCity := allFields()
	delete(missingCity, FieldCity)

	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{"missing field", func() *http.Request { return uploadRequest(t, missingCity, []byte("x")) }},
		{"missing image", func() *http.Request { return uploadRequest(t, allFields(), nil) }},
		{"not multipart", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("city=Pune"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := new(MockProcessor)
			s := New(proc, nil, Config{})
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, tt.req())

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			proc.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
		})
	}
}

func TestStampEmptyFieldsAccepted(t *testing.T) {
	empty := map[string]string{FieldAddress: "", FieldCity: "", FieldState: "", FieldCountry: ""}
	proc := new(MockProcessor)
	proc.On("Process", "x", types.Location{}).Return(&types.Result{Data: []byte("ok"), Format: "jpeg"}, nil)

	s := New(proc, nil, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, empty, []byte("x")))

	assert.Equal(t, http.StatusOK, rec.Code)
	proc.AssertExpectations(t)
}

func TestStampUploadTooLarge(t *testing.T) {
	proc := new(MockProcessor)
	s := New(proc, nil, Config{MaxUploadBytes: 64})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, allFields(), bytes.Repeat([]byte("x"), 4096)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	proc.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestMethodNotAllowed(t *testing.T) {
	s := New(new(MockProcessor), nil, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListenAndServeShutdown(t *testing.T) {
	s := New(new(MockProcessor), nil, Config{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.ListenAndServe(ctx))
}
