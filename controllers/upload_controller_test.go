package controllers

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kendall-kelly/nafs-essence-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uploadRequest builds a multipart request with one file in field
func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func useMockStorage(t *testing.T) *services.MockS3Service {
	t.Helper()
	mockS3 := services.NewMockS3Service()
	services.InitImageService(mockS3)
	t.Cleanup(func() { services.SetImageService(nil) })
	return mockS3
}

func TestUploadProductImage(t *testing.T) {
	env := newTestEnv(t, nil)
	mockS3 := useMockStorage(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, uploadRequest(t, "image", "midnight-oud.png", []byte("png bytes")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var image services.UploadedImage
	resp := decodeEnvelope(t, w, &image)
	assert.True(t, resp.Success)
	assert.Equal(t, "products/mock_midnight-oud.png", image.Key)
	assert.Equal(t, "https://test-bucket.s3.us-east-1.amazonaws.com/products/mock_midnight-oud.png", image.URL)
	assert.True(t, mockS3.FileExists(image.Key))
}

func TestUploadProductImageErrors(t *testing.T) {
	tests := []struct {
		name           string
		field          string
		filename       string
		content        []byte
		uploadErr      error
		expectedStatus int
		expectedCode   string
	}{
		{"wrong format", "image", "notes.pdf", []byte("pdf"), nil, http.StatusBadRequest, "INVALID_FILE_FORMAT"},
		{"empty file", "image", "empty.png", []byte{}, nil, http.StatusBadRequest, "EMPTY_FILE"},
		{"wrong field", "photo", "oud.png", []byte("png"), nil, http.StatusBadRequest, "MISSING_FILE"},
		{"storage failure", "image", "oud.png", []byte("png"), errors.New("bucket unreachable"), http.StatusInternalServerError, "UPLOAD_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			mockS3 := useMockStorage(t)
			mockS3.UploadErr = tt.uploadErr

			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, uploadRequest(t, tt.field, tt.filename, tt.content))
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCode, decodeEnvelope(t, w, nil).Error.Code)
			assert.Empty(t, mockS3.GetUploadedFiles())
		})
	}
}

func TestUploadWithoutStorage(t *testing.T) {
	env := newTestEnv(t, nil)
	services.SetImageService(nil)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, uploadRequest(t, "image", "oud.png", []byte("png")))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORAGE_UNAVAILABLE", decodeEnvelope(t, w, nil).Error.Code)
}
