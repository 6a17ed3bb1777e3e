// Package blob provides binary file storage backed by NATS JetStream
// ObjectStore, addressed by container-prefixed references of the form
// "<container>/<path>".
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/agromitra/agromitra/apperr"
)

// Containers group files by origin and retention policy.
const (
	ContainerUserContent = "user-content"
	ContainerAIChat      = "ai-chat"
	ContainerSystemData  = "system-data"
)

var containers = map[string]bool{
	ContainerUserContent: true,
	ContainerAIChat:      true,
	ContainerSystemData:  true,
}

// userScopedContainers require paths of the form "<user_id>/<data_id>...".
var userScopedContainers = map[string]bool{
	ContainerUserContent: true,
	ContainerAIChat:      true,
}

// Object is one stored file's metadata.
type Object struct {
	Reference string `json:"reference"`
	MIMEType  string `json:"mime_type"`
	Size      int64  `json:"size"`
}

// Store wraps one ObjectStore bucket per container.
type Store struct {
	buckets map[string]jetstream.ObjectStore
	baseURL string
}

// NewStore creates the container buckets if they don't exist. baseURL is
// the public URL prefix used by URL().
func NewStore(ctx context.Context, js jetstream.JetStream, baseURL string) (*Store, error) {
	s := &Store{
		buckets: make(map[string]jetstream.ObjectStore, len(containers)),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
	for name := range containers {
		bucket := "AGROMITRA_BLOB_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		os, err := js.ObjectStore(ctx, bucket)
		if err != nil {
			os, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
				Bucket:      bucket,
				Description: fmt.Sprintf("Agromitra %s files", name),
			})
			if err != nil {
				return nil, fmt.Errorf("create object store %s: %w", bucket, err)
			}
		}
		s.buckets[name] = os
	}
	return s, nil
}

// IsReference reports whether value looks like "<container>/<path>" with a
// known container.
func IsReference(value string) bool {
	cleaned := strings.Trim(strings.TrimSpace(value), "/")
	container, _, ok := strings.Cut(cleaned, "/")
	return ok && containers[container]
}

// Normalize cleans a reference and rejects anything that is not in
// "<container>/<path>" form.
func Normalize(reference string) (string, error) {
	cleaned := strings.Trim(strings.TrimSpace(reference), "/")
	if cleaned == "" {
		return "", apperr.BadRequest("blob reference is required")
	}
	if !IsReference(cleaned) {
		return "", apperr.BadRequest("blob value must be in '<container>/<path>' format")
	}
	return cleaned, nil
}

// UserScopedPath normalizes a client-supplied path prefix so uploads are
// scoped to "<user_id>/<data_id>[/...]".
func UserScopedPath(userID, pathPrefix string) (string, error) {
	cleanedUser := strings.Trim(strings.TrimSpace(userID), "/")
	if cleanedUser == "" {
		return "", apperr.Unauthorized("could not validate credentials")
	}

	segments := splitSegments(pathPrefix)
	if len(segments) == 0 {
		return "", apperr.BadRequest("path_prefix is required and must include data_id")
	}
	if segments[0] == cleanedUser {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return "", apperr.BadRequest("path_prefix must include data_id after user_id")
	}
	return strings.Join(append([]string{cleanedUser}, segments...), "/"), nil
}

func splitSegments(value string) []string {
	parts := strings.Split(strings.Trim(strings.TrimSpace(value), "/"), "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return segments
}

func (s *Store) split(reference string) (jetstream.ObjectStore, string, error) {
	normalized, err := Normalize(reference)
	if err != nil {
		return nil, "", err
	}
	container, path, _ := strings.Cut(normalized, "/")

	if userScopedContainers[container] && len(splitSegments(path)) < 2 {
		return nil, "", apperr.BadRequest(
			"for 'ai-chat' and 'user-content', the path must be '<user_id>/<data_id>' or deeper")
	}
	return s.buckets[container], path, nil
}

// Put stores data under the reference and returns the stored object.
func (s *Store) Put(ctx context.Context, reference string, data []byte, mimeType string) (*Object, error) {
	bucket, path, err := s.split(reference)
	if err != nil {
		return nil, err
	}

	meta := jetstream.ObjectMeta{
		Name: path,
		Metadata: map[string]string{
			"content-type": mimeType,
		},
	}
	info, err := bucket.Put(ctx, meta, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("put blob %s: %w", reference, err)
	}

	normalized, _ := Normalize(reference)
	return &Object{
		Reference: normalized,
		MIMEType:  mimeType,
		Size:      int64(info.Size),
	}, nil
}

// Get returns the file bytes and MIME type for a reference.
func (s *Store) Get(ctx context.Context, reference string) ([]byte, string, error) {
	bucket, path, err := s.split(reference)
	if err != nil {
		return nil, "", err
	}

	result, err := bucket.Get(ctx, path)
	if err != nil {
		if err == jetstream.ErrObjectNotFound {
			return nil, "", apperr.NotFound("file not found")
		}
		return nil, "", fmt.Errorf("get blob %s: %w", reference, err)
	}
	defer result.Close()

	data, err := io.ReadAll(result)
	if err != nil {
		return nil, "", fmt.Errorf("read blob %s: %w", reference, err)
	}

	mimeType := "application/octet-stream"
	if info, err := result.Info(); err == nil && info.Metadata["content-type"] != "" {
		mimeType = info.Metadata["content-type"]
	}
	return data, mimeType, nil
}

// Delete removes a file. Deleting a missing file is not an error.
func (s *Store) Delete(ctx context.Context, reference string) error {
	bucket, path, err := s.split(reference)
	if err != nil {
		return err
	}
	if err := bucket.Delete(ctx, path); err != nil && err != jetstream.ErrObjectNotFound {
		return fmt.Errorf("delete blob %s: %w", reference, err)
	}
	return nil
}

// URL returns the public download URL for a reference. Non-references pass
// through unchanged so external URLs survive.
func (s *Store) URL(reference string) string {
	cleaned := strings.Trim(strings.TrimSpace(reference), "/")
	if !IsReference(cleaned) {
		return reference
	}
	return s.baseURL + "/files/" + cleaned
}
