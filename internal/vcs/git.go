// SPDX-License-Identifier: MPL-2.0

// Package vcs lists the files a change touched, using go-git so no git
// binary is needed on the runner.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

var (
	// ErrNotARepository is returned when no repository encloses the path.
	ErrNotARepository = errors.New("not a git repository")
	// ErrUnknownRevision is returned when a revision cannot be resolved to a commit.
	ErrUnknownRevision = errors.New("unknown revision")
)

type (
	// Differ lists files added or modified between two revisions.
	// Returned paths are slash-separated and relative to the directory the
	// Differ was created for.
	Differ interface {
		Diff(ctx context.Context, from, to string) ([]string, error)
	}

	// Repository implements Differ on a local repository.
	Repository struct {
		path string
	}
)

// NewRepository returns a Repository for path, which may be the worktree
// root or any directory below it. The repository is opened on each call,
// so it may not exist yet.
func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

// Diff returns the files added or modified between from and to, sorted.
// Revisions accept anything go-git resolves: HEAD~1, branch and tag names,
// full or abbreviated hashes. Renames are reported as additions at the new path.
// Only files below the Repository's directory are returned.
func (r *Repository) Diff(ctx context.Context, from, to string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(r.path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotARepository, r.path)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	prefix, err := r.subdir(repo)
	if err != nil {
		return nil, err
	}

	fromTree, err := treeAt(repo, from)
	if err != nil {
		return nil, err
	}
	toTree, err := treeAt(repo, to)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, &object.DiffTreeOptions{})
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", from, to, err)
	}

	var paths []string
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, fmt.Errorf("classify change: %w", err)
		}
		switch action {
		case merkletrie.Insert, merkletrie.Modify:
			if rel, ok := strings.CutPrefix(change.To.Name, prefix); ok {
				paths = append(paths, rel)
			}
		case merkletrie.Delete:
			// deleted files have nothing left to process
		}
	}
	slices.Sort(paths)

	return paths, nil
}

// subdir returns the slash path of r.path below the worktree root with a
// trailing slash, or "" when r.path is the root or the repository is bare.
func (r *Repository) subdir(repo *git.Repository) (string, error) {
	wt, err := repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	top, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		return "", fmt.Errorf("resolve worktree root: %w", err)
	}
	dir, err := filepath.Abs(r.path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", r.path, err)
	}
	if dir, err = filepath.EvalSymlinks(dir); err != nil {
		return "", fmt.Errorf("resolve %s: %w", r.path, err)
	}

	rel, err := filepath.Rel(top, dir)
	if err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%s is outside the worktree %s", r.path, top)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel) + "/", nil
}

func treeAt(repo *git.Repository, rev string) (*object.Tree, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownRevision, rev, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownRevision, rev, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", hash, err)
	}
	return tree, nil
}
