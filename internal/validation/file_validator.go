package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedExtension is returned for files that are neither CSV nor Excel
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	// ErrTemporaryFile is returned for Excel lock files such as ~$prices.xlsx
	ErrTemporaryFile = errors.New("temporary Excel file")
	// ErrFileTooLarge is returned when an input exceeds the configured size limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrTooManyFiles is returned when more inputs are given than can be merged
	ErrTooManyFiles = errors.New("too many files")
	// ErrNoFiles is returned when no input is given
	ErrNoFiles = errors.New("no files")
)

// SupportedExtensions lists the accepted price file extensions
var SupportedExtensions = []string{".csv", ".txt", ".tsv", ".xlsx", ".xlsm"}

// FileValidator checks price files before they are decoded
type FileValidator struct {
	logger   *slog.Logger
	maxBytes int64
	maxFiles int
}

// NewFileValidator creates a new file validator. Zero limits disable the check.
func NewFileValidator(logger *slog.Logger, maxBytes int64, maxFiles int) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger:   logger.With(slog.String("component", "file_validator")),
		maxBytes: maxBytes,
		maxFiles: maxFiles,
	}
}

// ValidateCount checks the number of inputs of one dashboard pass
func (v *FileValidator) ValidateCount(n int) error {
	if n == 0 {
		return ErrNoFiles
	}
	if v.maxFiles > 0 && n > v.maxFiles {
		v.logger.Warn("Too many input files",
			slog.Int("count", n),
			slog.Int("max_files", v.maxFiles))
		return fmt.Errorf("%w: got %d, at most %d allowed", ErrTooManyFiles, n, v.maxFiles)
	}
	return nil
}

// ValidateName checks a file name's extension
func (v *FileValidator) ValidateName(name string) error {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Skipping temporary Excel file", slog.String("file", name))
		return fmt.Errorf("%w: %s", ErrTemporaryFile, name)
	}

	ext := strings.ToLower(filepath.Ext(base))
	for _, allowed := range SupportedExtensions {
		if ext == allowed {
			return nil
		}
	}

	v.logger.Warn("File has unsupported extension",
		slog.String("file", name),
		slog.String("extension", ext))
	return fmt.Errorf("%w: %s (extension %q)", ErrUnsupportedExtension, name, ext)
}

// ValidateSize checks a file's size against the limit
func (v *FileValidator) ValidateSize(name string, size int64) error {
	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("File exceeds size limit",
			slog.String("file", name),
			slog.Int64("size", size),
			slog.Int64("max_bytes", v.maxBytes))
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, name, size, v.maxBytes)
	}
	return nil
}

// ValidateUpload checks the name and size of an uploaded file
func (v *FileValidator) ValidateUpload(name string, size int64) error {
	if err := v.ValidateName(name); err != nil {
		return err
	}
	return v.ValidateSize(name, size)
}

// ValidateFile checks that a local path is a readable, supported price file
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	if err := v.ValidateUpload(path, info.Size()); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures an output directory exists and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)
	return nil
}
