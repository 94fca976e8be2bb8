package storage

import (
	"context"
	"strings"
	"testing"

	"dular-server/config"
)

func TestMemoryStorePut(t *testing.T) {
	s := NewMemoryStore()
	obj, err := s.Put(context.Background(), "incidents/7", "image/png", strings.NewReader("png-bytes"), 9)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(obj.Key, "incidents/7/") {
		t.Errorf("key = %q", obj.Key)
	}
	if obj.Size != 9 || obj.Mime != "image/png" {
		t.Errorf("object = %+v", obj)
	}
	got, ok := s.Get(obj.Key)
	if !ok || string(got) != "png-bytes" {
		t.Errorf("stored bytes = %q, %v", got, ok)
	}
}

func TestNewFallsBackToMemory(t *testing.T) {
	st, err := New(config.CloudinaryConfig{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := st.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", st)
	}
}
