// Package journal persists the outcome of every directory of a run, so that
// a later run can be restricted to the directories that failed before.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/scicomp/clusterstor-tools/internal/reconcile"
)

// Entry is the journaled outcome of one directory.
type Entry struct {
	Command  string                     `json:"command"`
	Path     string                     `json:"path"`
	Status   reconcile.Status           `json:"status"`
	Outcomes map[reconcile.Phase]string `json:"outcomes"`
	Error    string                     `json:"error,omitempty"`
	DryRun   bool                       `json:"dryRun"`
	Time     time.Time                  `json:"time"`
}

// Journal is a run journal backed by a BadgerDB database.
type Journal struct {
	db *badger.DB
}

// Open opens (or creates) the journal in a directory. An empty directory
// opens a journal that is kept in memory only.
func Open(dir string) (*Journal, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithLoggingLevel(badger.WARNING)

	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("(journal) failed to open %s: %w", dir, err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	return j.db.Close()
}

func entryKey(command string, path string) []byte {
	return []byte("node:" + command + ":" + path)
}

func commandPrefix(command string) []byte {
	return []byte("node:" + command + ":")
}

// Record journals every reached directory of a run of a command, replacing
// its previous entry. Dry runs and verify runs are only journaled when
// nothing was journaled for a directory before, so that they never hide a
// failure of a committing run.
func (j *Journal) Record(command string, report *reconcile.RunReport) error {
	err := j.db.Update(func(txn *badger.Txn) error {
		for _, n := range report.Nodes {
			if n.Status == reconcile.StatusNotReached {
				continue
			}

			key := entryKey(command, n.Path)

			if report.DryRun || report.Verify {
				if _, err := txn.Get(key); err == nil {
					continue
				} else if !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
			}

			entry := Entry{
				Command:  command,
				Path:     n.Path,
				Status:   n.Status,
				Outcomes: make(map[reconcile.Phase]string, len(reconcile.Phases)),
				DryRun:   report.DryRun || report.Verify,
				Time:     report.EndTime,
			}
			for _, p := range reconcile.Phases {
				entry.Outcomes[p] = string(n.Outcome(p))
			}
			if err := n.Err(); err != nil {
				entry.Error = err.Error()
			}

			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}

			if err := txn.Set(key, data); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("(journal-record) %w", err)
	}

	return nil
}

// Entries returns all journaled directories of a command, ordered by path.
func (j *Journal) Entries(command string) ([]Entry, error) {
	var entries []Entry

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = commandPrefix(command)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry Entry

			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}

			entries = append(entries, entry)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("(journal-entries) %w", err)
	}

	return entries, nil
}

// Failed returns the paths of all directories of a command whose last
// journaled run failed, ordered by path.
func (j *Journal) Failed(command string) ([]string, error) {
	entries, err := j.Entries(command)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.Status == reconcile.StatusFailed {
			paths = append(paths, e.Path)
		}
	}
	slices.Sort(paths)

	return paths, nil
}
