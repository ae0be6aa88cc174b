package redis

import (
	"context"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewClientSelectsDatabase(t *testing.T) {
	mr := miniredis.RunT(t)

	ctx := context.Background()
	client, err := NewClient(ctx, "redis://"+mr.Addr()+"/2")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if got := client.Options().DB; got != 2 {
		t.Fatalf("expected database 2, got %d", got)
	}
	if err := client.Set(ctx, "report:version:org-1", 1, 0).Err(); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if !mr.DB(2).Exists("report:version:org-1") {
		t.Fatal("expected the version key in database 2")
	}
}

func TestNewClientErrors(t *testing.T) {
	down := miniredis.RunT(t)
	downAddr := down.Addr()
	down.Close()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"missing scheme", "localhost:6379", "failed to parse redis URL"},
		{"server down", "redis://" + downAddr, "failed to ping redis " + downAddr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tt.url)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}
}
