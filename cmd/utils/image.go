package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memeland/memeland-server/cmd/apperrors"
)

const (
	MaxImageSize = 10 << 20 // 10 MB
	ImagePath    = "uploads/memes"
)

// SaveImage stores an uploaded meme file and returns its generated file name
// and path under the uploads directory. Size and type violations are
// validation errors; storage failures are returned as-is.
func SaveImage(file multipart.File, header *multipart.FileHeader) (fileName, filePath string, err error) {
	if header.Size > MaxImageSize {
		return "", "", apperrors.Validation("file size exceeds maximum limit of %d MB", MaxImageSize/(1<<20))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !isValidImageType(ext) {
		return "", "", apperrors.Validation("invalid file type: %s", ext)
	}

	if err := os.MkdirAll(ImagePath, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create upload directory: %v", err)
	}

	fileName = fmt.Sprintf("%s-%s%s",
		time.Now().Format("20060102"),
		uuid.New().String(),
		ext,
	)
	filePath = filepath.Join(ImagePath, fileName)

	dst, err := os.Create(filePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create file: %v", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", "", fmt.Errorf("failed to save file: %v", err)
	}

	return fileName, filePath, nil
}

func isValidImageType(ext string) bool {
	validTypes := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
	}
	return validTypes[ext]
}

// DeleteImage removes a stored meme file. Missing files are not an error.
func DeleteImage(fileName string) error {
	filePath := filepath.Join(ImagePath, filepath.Base(fileName))

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(filePath)
}
