// Package artifact stores the binary assets of a saved design (diagram
// images, pitch audio) keyed by record id and relative path.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store defines operations for persisting design assets.
type Store interface {
	Put(ctx context.Context, recordID, path string, content []byte) error
	Get(ctx context.Context, recordID, path string) ([]byte, error)
	// GetURL returns a direct download URL, or "" when the backend has none.
	GetURL(ctx context.Context, recordID, path string) (string, error)
	List(ctx context.Context, recordID string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")

// objectKey validates the pair and joins it into "<recordID>/<path>".
func objectKey(recordID, path string) (string, error) {
	recordID = strings.TrimSpace(recordID)
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if recordID == "" {
		return "", fmt.Errorf("record_id is required")
	}
	if strings.Contains(recordID, "/") {
		return "", fmt.Errorf("record_id %q must not contain '/'", recordID)
	}
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." || seg == "." {
			return "", fmt.Errorf("path %q must not contain relative segments", path)
		}
	}
	return recordID + "/" + path, nil
}

func recordPrefix(recordID string) (string, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return "", fmt.Errorf("record_id is required")
	}
	return recordID + "/", nil
}
