// Package storage provides entity storage backed by NATS JetStream KV.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// Bucket names for each entity type.
const (
	BucketUsers            = "AGROMITRA_USERS"
	BucketFarms            = "AGROMITRA_FARMS"
	BucketRecommendations  = "AGROMITRA_CROP_RECOMMENDATIONS"
	BucketComponents       = "AGROMITRA_CROP_COMPONENTS"
	BucketPesticides       = "AGROMITRA_PESTICIDE_RECOMMENDATIONS"
	BucketPesticideParts   = "AGROMITRA_PESTICIDE_COMPONENTS"
	BucketCultivatingCrops = "AGROMITRA_CULTIVATING_CROPS"
	BucketCalendars        = "AGROMITRA_CULTIVATION_CALENDARS"
	BucketInvestments      = "AGROMITRA_INVESTMENT_BREAKDOWNS"
	BucketSoilHealth       = "AGROMITRA_SOIL_HEALTH"
	BucketIntercropping    = "AGROMITRA_INTERCROPPING_DETAILS"
	BucketCropImages       = "AGROMITRA_CROP_IMAGES"
	BucketChatSessions     = "AGROMITRA_CHAT_SESSIONS"
	BucketChatMessages     = "AGROMITRA_CHAT_MESSAGES"
	BucketWorkflowRuns     = "AGROMITRA_WORKFLOW_RUNS"
	BucketWorkflowEvents   = "AGROMITRA_WORKFLOW_EVENTS"
)

// Store provides entity storage operations backed by NATS KV.
type Store struct {
	users            jetstream.KeyValue
	farms            jetstream.KeyValue
	recommendations  jetstream.KeyValue
	components       jetstream.KeyValue
	pesticides       jetstream.KeyValue
	pesticideParts   jetstream.KeyValue
	cultivatingCrops jetstream.KeyValue
	calendars        jetstream.KeyValue
	investments      jetstream.KeyValue
	soilHealth       jetstream.KeyValue
	intercropping    jetstream.KeyValue
	cropImages       jetstream.KeyValue
	chatSessions     jetstream.KeyValue
	chatMessages     jetstream.KeyValue
	workflowRuns     jetstream.KeyValue
	workflowEvents   jetstream.KeyValue
}

// NewStore creates a Store with the given JetStream context, creating the
// KV buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	s := &Store{}
	buckets := []struct {
		name string
		dst  *jetstream.KeyValue
	}{
		{BucketUsers, &s.users},
		{BucketFarms, &s.farms},
		{BucketRecommendations, &s.recommendations},
		{BucketComponents, &s.components},
		{BucketPesticides, &s.pesticides},
		{BucketPesticideParts, &s.pesticideParts},
		{BucketCultivatingCrops, &s.cultivatingCrops},
		{BucketCalendars, &s.calendars},
		{BucketInvestments, &s.investments},
		{BucketSoilHealth, &s.soilHealth},
		{BucketIntercropping, &s.intercropping},
		{BucketCropImages, &s.cropImages},
		{BucketChatSessions, &s.chatSessions},
		{BucketChatMessages, &s.chatMessages},
		{BucketWorkflowRuns, &s.workflowRuns},
		{BucketWorkflowEvents, &s.workflowEvents},
	}

	for _, b := range buckets {
		kv, err := getOrCreateBucket(ctx, js, b.name)
		if err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", b.name, err)
		}
		*b.dst = kv
	}
	return s, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Agromitra %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// putJSON marshals v and upserts it under key.
func putJSON(ctx context.Context, kv jetstream.KeyValue, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if _, err := kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// getJSON fetches key and unmarshals it into out. Returns ErrNotFound when
// the key is absent.
func getJSON(ctx context.Context, kv jetstream.KeyValue, key string, out any) error {
	entry, err := kv.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(entry.Value(), out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// keysWithPrefix lists all keys starting with prefix. An empty bucket is
// not an error.
func keysWithPrefix(ctx context.Context, kv jetstream.KeyValue, prefix string) ([]string, error) {
	keys, err := kv.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}

	matched := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	return matched, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
