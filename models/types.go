package models

import (
	"time"
)

// Signature is the hex SHA-256 digest of a file's full content.
type Signature string

// FileRecord describes one file's identity at the moment it was scanned.
// Records are values; nothing mutates them after construction.
type FileRecord struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mod_time"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Signature Signature `json:"signature,omitempty"`
	// Prefix is the hex encoding of the first bytes of content. It is kept
	// for reporting and is not consulted by any comparison.
	Prefix string `json:"prefix,omitempty"`
}

// SameContent reports whether a and b hold the same bytes, judged by
// signature and size.
func SameContent(a, b FileRecord) bool {
	return a.Signature == b.Signature && a.Size == b.Size
}

// ReadFailure is a file (or directory) skipped during a walk.
type ReadFailure struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// DuplicateGroup is two or more records sharing one signature.
type DuplicateGroup struct {
	Signature Signature    `json:"signature"`
	Records   []FileRecord `json:"records"`
}

// Paths returns the paths of the group members.
func (g DuplicateGroup) Paths() []string {
	paths := make([]string, len(g.Records))
	for i, r := range g.Records {
		paths[i] = r.Path
	}
	return paths
}

// Match pairs an incoming record with the canonical record holding the same
// signature.
type Match struct {
	Incoming  FileRecord `json:"incoming"`
	Canonical FileRecord `json:"canonical"`
}

// Comparison is the classification of an incoming tree against a canonical
// one. Present and New are in incoming visitation order.
type Comparison struct {
	Present             []Match          `json:"present"`
	New                 []FileRecord     `json:"new"`
	CanonicalDuplicates []DuplicateGroup `json:"canonical_duplicates,omitempty"`
	ReadFailures        []ReadFailure    `json:"read_failures,omitempty"`
}

type Outcome string

const (
	OutcomeDeleted           Outcome = "deleted"
	OutcomeMovedNew          Outcome = "moved-new"
	OutcomeReplacedByRecency Outcome = "replaced-by-recency"
	OutcomeLeftAsConflict    Outcome = "left-as-conflict"
	// OutcomeSkippedDuplicate is a new file whose content reached canonical
	// earlier in the same run; it is removed from incoming.
	OutcomeSkippedDuplicate Outcome = "skipped-duplicate"
	OutcomeFailed           Outcome = "failed"
)

// Reference is the record a conflicting file was compared against.
type Reference struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// FileOutcome is the result of one delete or migrate step.
type FileOutcome struct {
	Path        string     `json:"path"`
	Destination string     `json:"destination,omitempty"`
	Signature   Signature  `json:"signature"`
	Outcome     Outcome    `json:"outcome"`
	Reference   *Reference `json:"reference,omitempty"`
	Err         string     `json:"error,omitempty"`
}

// Failed reports whether the step did not complete.
func (o FileOutcome) Failed() bool {
	return o.Outcome == OutcomeFailed
}

type CategoryTotal struct {
	Name  string `json:"name"`
	Files int64  `json:"files"`
	Bytes int64  `json:"bytes"`
}

type ProgressStats struct {
	ProcessedFiles int64
	ProcessedBytes int64
	StartTime      time.Time
	LastLogTime    time.Time
}
