package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

// ArtifactStore is durable blob storage for rendered reports
type ArtifactStore interface {
	// Put stores data under name and returns a public URL for it
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Get retrieves data by name or by a URL previously returned by Put
	Get(ctx context.Context, nameOrURL string) ([]byte, error)
}

// FileArtifactStore stores artifacts on the local filesystem. The
// directory is served by the HTTP server so returned URLs resolve.
type FileArtifactStore struct {
	dir     string
	baseURL string
}

// NewFileArtifactStore creates a filesystem artifact store rooted at dir
func NewFileArtifactStore(dir, baseURL string) (*FileArtifactStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Failed to create artifact directory", err.Error())
	}

	return &FileArtifactStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put writes the artifact and returns its public URL
func (s *FileArtifactStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if filepath.Base(name) != name {
		return "", utils.NewAppError(utils.ErrCodeValidation, "Invalid artifact name", name)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", utils.NewAppError(utils.ErrCodeExternal, "Failed to write artifact", err.Error())
	}

	return s.baseURL + "/" + name, nil
}

// Get reads an artifact back by name or URL
func (s *FileArtifactStore) Get(ctx context.Context, nameOrURL string) ([]byte, error) {
	name := nameOrURL
	if idx := strings.LastIndex(nameOrURL, "/"); idx >= 0 {
		name = nameOrURL[idx+1:]
	}
	if name == "" || filepath.Base(name) != name {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Invalid artifact name", nameOrURL)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Artifact not found", name)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeExternal, "Failed to read artifact", err.Error())
	}

	return data, nil
}

// Dir returns the artifact directory, for static file serving
func (s *FileArtifactStore) Dir() string {
	return s.dir
}

// ArtifactName derives the stored file name for a report dispatched at t
func ArtifactName(reportID string, t time.Time) string {
	return fmt.Sprintf("report-%s-%d.pdf", reportID, t.UnixMilli())
}
