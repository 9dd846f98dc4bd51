package s3

import (
	"context"
	"testing"

	"uksledger/internal/blob/blobtest"
	"uksledger/internal/blob/core"
)

func TestS3StoreContract(t *testing.T) {
	store := NewMockForTests()
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	blobtest.RunContract(t, store)
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
	store, err := New(context.Background(), Config{Bucket: "uks", Endpoint: "http://localhost:9000", PathStyle: true, AccessKeyID: "k", SecretAccessKey: "s"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.bucket != "uks" {
		t.Fatalf("unexpected bucket %s", store.bucket)
	}
}
