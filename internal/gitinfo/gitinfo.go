// Package gitinfo reads the checked-out commit of the project directory.
package gitinfo

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info describes HEAD of a checkout. Both fields are empty outside a repository.
type Info struct {
	Commit string
	Branch string // empty for a detached HEAD
}

// Short returns the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}

// Lookup opens the repository containing dir, searching parent directories.
// A directory outside any repository, or a repository without commits, yields
// an empty Info and no error.
func Lookup(dir string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Info{}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("open repository at %s: %w", dir, err)
	}

	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return Info{}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	info := Info{Commit: ref.Hash().String()}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}
	return info, nil
}
