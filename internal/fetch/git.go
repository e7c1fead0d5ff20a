package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

// cloneRepo clones host/owner/repo at ref (branch, tag, or empty for the
// default branch) into destDir, adapted from the teacher's use of
// go-git/v5 for repository access (internal/mcp/git_helper.go), generalized
// from PlainOpen-on-an-existing-checkout to a fresh PlainClone.
func cloneRepo(ctx context.Context, host, ownerRepo, ref, destDir string) error {
	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.cloneRepo", err)
	}

	url := fmt.Sprintf("https://%s/%s.git", host, ownerRepo)
	opts := &git.CloneOptions{
		URL:   url,
		Depth: 1,
	}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
		opts.SingleBranch = true
	}

	_, err := git.PlainCloneContext(ctx, destDir, false, opts)
	if err == nil {
		return nil
	}

	// Fall back to cloning the default branch and checking out ref as a
	// tag or commit when it isn't a branch name.
	if ref != "" {
		_ = os.RemoveAll(destDir)
		repo, err2 := git.PlainCloneContext(ctx, destDir, false, &git.CloneOptions{URL: url})
		if err2 != nil {
			return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.cloneRepo", err2)
		}
		wt, err2 := repo.Worktree()
		if err2 != nil {
			return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.cloneRepo", err2)
		}
		if err2 := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(ref)}); err2 != nil {
			if err3 := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewTagReferenceName(ref)}); err3 != nil {
				return opensrcerr.New(opensrcerr.KindFetchError, "fetch.cloneRepo", "unknown ref: "+ref)
			}
		}
		return nil
	}

	return opensrcerr.Wrap(opensrcerr.KindFetchError, "fetch.cloneRepo", err)
}
