package store

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"
)

func TestPostgresGatewayIntegration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := NewPostgres(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pg.Close()

	if err := pg.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	const path = "it_tickets/t1"
	defer pg.Remove(ctx, path)

	if err := pg.Set(ctx, path, map[string]any{"ticketCode": "TC01", "status": "open"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := pg.Update(ctx, path, map[string]any{"status": "assigned"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	raw, err := pg.Get(ctx, path)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["ticketCode"] != "TC01" {
		t.Fatalf("merge lost ticketCode, got %v", doc["ticketCode"])
	}
	if doc["status"] != "assigned" {
		t.Fatalf("expected status assigned, got %v", doc["status"])
	}

	key, err := pg.Push(ctx, "it_tickets", map[string]any{"ticketCode": "TC02"})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	defer pg.Remove(ctx, "it_tickets/"+key)

	if err := pg.Remove(ctx, path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if raw, err := pg.Get(ctx, path); err != nil || raw != nil {
		t.Fatalf("expected removed document to read as nil, got %s err %v", raw, err)
	}
}
