package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestClient_ClaimBlock(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := client.ClaimBlock(ctx, "alphanet", 10, "run-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}

	ok, err = client.ClaimBlock(ctx, "alphanet", 10, "run-b", time.Minute)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Error("second pass must not claim a held block")
	}

	// Claims are scoped per network
	ok, _ = client.ClaimBlock(ctx, "devnet", 10, "run-b", time.Minute)
	if !ok {
		t.Error("expected claim on a different network to succeed")
	}
}

func TestClient_ClaimExpires(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	_, _ = client.ClaimBlock(ctx, "alphanet", 10, "run-a", time.Minute)
	mr.FastForward(2 * time.Minute)

	ok, err := client.ClaimBlock(ctx, "alphanet", 10, "run-b", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected expired claim to be reclaimable: ok=%v err=%v", ok, err)
	}
}

func TestClient_ReleaseOnlyByOwner(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, _ = client.ClaimBlock(ctx, "alphanet", 10, "run-a", time.Minute)

	if err := client.ReleaseBlock(ctx, "alphanet", 10, "run-b"); err != nil {
		t.Fatalf("ReleaseBlock: %v", err)
	}
	if owner, _ := client.ClaimOwner(ctx, "alphanet", 10); owner != "run-a" {
		t.Fatalf("foreign release dropped the claim, owner=%q", owner)
	}

	if err := client.ReleaseBlock(ctx, "alphanet", 10, "run-a"); err != nil {
		t.Fatalf("ReleaseBlock: %v", err)
	}
	if owner, _ := client.ClaimOwner(ctx, "alphanet", 10); owner != "" {
		t.Errorf("expected claim released, owner=%q", owner)
	}
}

func TestClient_CompleteExtendsTTL(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	_, _ = client.ClaimBlock(ctx, "alphanet", 10, "run-a", time.Minute)
	if err := client.CompleteBlock(ctx, "alphanet", 10, "run-a", time.Hour); err != nil {
		t.Fatalf("CompleteBlock: %v", err)
	}

	if ttl := mr.TTL(claimKey("alphanet", 10)); ttl != time.Hour {
		t.Errorf("expected 1h ttl, got %v", ttl)
	}

	mr.FastForward(30 * time.Minute)
	if ok, _ := client.ClaimBlock(ctx, "alphanet", 10, "run-b", time.Minute); ok {
		t.Error("completed block must stay claimed")
	}
}

func TestNewClient_BadURL(t *testing.T) {
	if _, err := NewClient(Config{URL: "not-a-url"}); err == nil {
		t.Fatal("expected parse error")
	}
}
