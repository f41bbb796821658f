//go:build integration

package github

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestPublicRepository_Integration(t *testing.T) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		t.Skip("GITHUB_TOKEN not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := NewProvider(Config{Token: token}).Open(ctx, "https://github.com/golang/go")
	if err != nil {
		t.Fatal(err)
	}
	branch, err := repo.DefaultBranch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	head, err := repo.BranchHead(ctx, branch)
	if err != nil || len(head) != 40 {
		t.Fatalf("BranchHead(%s) = (%s, %v)", branch, head, err)
	}
	if _, err := repo.FileContents(ctx, "README.md", head); err != nil {
		t.Errorf("FileContents: %v", err)
	}
}
