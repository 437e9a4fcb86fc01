// Package changelog turns walked commits into changelog entries and groups
// them into a tree keyed by an ordered list of fields.
package changelog

import (
	"fmt"
	"iter"

	"github.com/vberset/resume/pkg/conventional"
	"github.com/vberset/resume/pkg/gitlib"
	"github.com/vberset/resume/pkg/snapshot"
)

// TeamTrailer is the trailer key carrying team attribution.
const TeamTrailer = "team"

// Entry is one changelog line: a conventional message and where it came from.
type Entry struct {
	Origin  snapshot.RepositoryOrigin `json:"origin"  yaml:"origin"`
	Branch  snapshot.BranchName       `json:"branch"  yaml:"branch"`
	Commit  snapshot.CommitHash       `json:"commit"  yaml:"commit"`
	Message conventional.Message      `json:"message" yaml:"message"`
}

// Extraction is the result of scanning the commits of one branch.
type Extraction struct {
	// Entries holds one entry per accepted message, in walk order.
	Entries []Entry
	// Sentinels holds the merge commits met during the walk.
	Sentinels gitlib.HashSet
	// Scanned counts every commit read, conventional or not.
	Scanned int
}

// ExtractEntries scans commits in walk order. Merge commits become sentinels
// for the branches walked later. Messages that are not conventional are
// skipped. A non-empty team keeps only messages carrying a "team" trailer
// with exactly that value.
func ExtractEntries(
	origin snapshot.RepositoryOrigin,
	branch snapshot.BranchName,
	commits iter.Seq2[gitlib.CommitInfo, error],
	team string,
) (Extraction, error) {
	result := Extraction{Sentinels: gitlib.NewHashSet()}

	for commit, err := range commits {
		if err != nil {
			return Extraction{}, fmt.Errorf("walk %s@%s: %w", origin, branch, err)
		}

		result.Scanned++

		if gitlib.IsMerge(commit) {
			result.Sentinels.Add(commit.Hash())
		}

		msg, parseErr := conventional.Parse(commit.Message())
		if parseErr != nil {
			continue
		}

		if team != "" && !msg.HasTrailer(TeamTrailer, team) {
			continue
		}

		result.Entries = append(result.Entries, Entry{
			Origin:  origin,
			Branch:  branch,
			Commit:  snapshot.CommitHashFrom(commit.Hash()),
			Message: msg,
		})
	}

	return result, nil
}

// Slice adapts a slice of commits to the iterator ExtractEntries consumes.
func Slice[C gitlib.CommitInfo](commits []C) iter.Seq2[gitlib.CommitInfo, error] {
	return func(yield func(gitlib.CommitInfo, error) bool) {
		for _, c := range commits {
			if !yield(c, nil) {
				return
			}
		}
	}
}
