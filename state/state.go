// Package state persists the bot's run checkpoint and approved channel links
// as a pretty-printed JSON file.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/araddon/dateparse"
)

// ApprovedLink records one verified author/channel pair. CommentID is the
// source comment's UTC unix timestamp as a string; it doubles as the entry's
// stable identity across runs.
type ApprovedLink struct {
	UserID      string `json:"userId"`
	CommentID   string `json:"commentId"`
	ChannelLink string `json:"channelLink"`
}

// State is the durable artifact of a run: when the thread was last checked
// and every link approved so far. Entries are only ever appended, never
// deleted.
type State struct {
	LastChecked   *time.Time
	ApprovedLinks []ApprovedLink
}

// Store reads and writes the state file at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// stateFile is the wire form; lastChecked stays a string so hand-edited or
// legacy timestamps can be parsed tolerantly.
type stateFile struct {
	LastChecked   *string        `json:"lastChecked"`
	ApprovedLinks []ApprovedLink `json:"approvedLinks"`
}

// Load reads the state file. A missing file is a first run and yields the
// zero state, not an error.
func (s *Store) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state file: %w", err)
	}

	var file stateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return State{}, fmt.Errorf("parse state file: %w", err)
	}

	st := State{ApprovedLinks: file.ApprovedLinks}
	if file.LastChecked != nil && *file.LastChecked != "" {
		checked, err := parseTimestamp(*file.LastChecked)
		if err != nil {
			return State{}, fmt.Errorf("parse lastChecked: %w", err)
		}
		st.LastChecked = &checked
	}
	return st, nil
}

// Save writes the state atomically: the JSON lands in a temp file in the
// same directory and replaces the target with a rename, so a partial write
// never corrupts the existing file.
func (s *Store) Save(st State) error {
	file := stateFile{ApprovedLinks: st.ApprovedLinks}
	if file.ApprovedLinks == nil {
		file.ApprovedLinks = []ApprovedLink{}
	}
	if st.LastChecked != nil {
		checked := st.LastChecked.UTC().Format(time.RFC3339)
		file.LastChecked = &checked
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// parseTimestamp accepts RFC 3339 first and falls back to dateparse for
// looser formats.
func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
