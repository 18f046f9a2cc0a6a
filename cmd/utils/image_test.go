package utils

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memeland/memeland-server/cmd/apperrors"
)

func uploadedFile(t *testing.T, filename, content string) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("failed to build form: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("failed to close form: %v", err)
	}

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	file, header, err := req.FormFile("image")
	if err != nil {
		t.Fatalf("failed to read form file: %v", err)
	}
	return file, header
}

func TestSaveImageStoresFile(t *testing.T) {
	t.Cleanup(func() { os.RemoveAll("uploads") })

	file, header := uploadedFile(t, "cat.PNG", "fake image bytes")
	defer file.Close()

	fileName, filePath, err := SaveImage(file, header)
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(fileName, ".png"))

	data, err := os.ReadFile(filePath)
	assert.NoError(t, err)
	assert.Equal(t, "fake image bytes", string(data))

	assert.NoError(t, DeleteImage(fileName))
	_, err = os.Stat(filePath)
	assert.True(t, os.IsNotExist(err))

	// deleting an already-missing file is not an error
	assert.NoError(t, DeleteImage(fileName))
}

func TestSaveImageRejectsOversizedFile(t *testing.T) {
	header := &multipart.FileHeader{Filename: "big.png", Size: MaxImageSize + 1}

	_, _, err := SaveImage(nil, header)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestSaveImageRejectsUnknownExtension(t *testing.T) {
	header := &multipart.FileHeader{Filename: "payload.exe", Size: 128}

	_, _, err := SaveImage(nil, header)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}
