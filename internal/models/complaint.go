package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ComplaintStatus is the lifecycle state of a complaint. Stored values are lower-case.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "pending"
	StatusInProgress ComplaintStatus = "in progress"
	StatusForwarded  ComplaintStatus = "forwarded"
	StatusResolved   ComplaintStatus = "resolved"
)

// CanonicalStatuses lists the four accepted states in lifecycle order.
var CanonicalStatuses = []ComplaintStatus{StatusPending, StatusInProgress, StatusForwarded, StatusResolved}

// statusAliases maps historical spellings found in stored data to their canonical state.
var statusAliases = map[string]ComplaintStatus{
	"":            StatusPending,
	"pending":     StatusPending,
	"pendng":      StatusPending,
	"pend":        StatusPending,
	"waiting":     StatusPending,
	"in progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"in_progress": StatusInProgress,
	"progress":    StatusInProgress,
	"forwarded":   StatusForwarded,
	"forward":     StatusForwarded,
	"forwared":    StatusForwarded,
	"fwd":         StatusForwarded,
	"resolved":    StatusResolved,
	"resolve":     StatusResolved,
	"resloved":    StatusResolved,
	"solved":      StatusResolved,
}

// NormalizeStatus maps a raw status string to its canonical form. The boolean is false
// for strings that match neither a canonical value nor a known alias.
func NormalizeStatus(raw string) (ComplaintStatus, bool) {
	s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// StatusAliases returns every raw spelling, canonical included, that normalizes to s.
// Used to build tolerant SQL filters over legacy rows.
func StatusAliases(s ComplaintStatus) []string {
	out := make([]string, 0, 5)
	for alias, canonical := range statusAliases {
		if canonical == s && alias != "" {
			out = append(out, alias)
		}
	}
	return out
}

// Assigned reports whether s is one of the two "assigned, awaiting resolution" synonyms.
func (s ComplaintStatus) Assigned() bool {
	return s == StatusForwarded || s == StatusInProgress
}

// Comment is one entry of a complaint's append-only discussion.
type Comment struct {
	Text      string    `json:"text"`
	AuthorID  string    `json:"authorId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comments is stored as a JSONB array.
type Comments []Comment

// Value implements driver.Valuer.
func (c Comments) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Comment(c))
}

// Scan implements sql.Scanner.
func (c *Comments) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = Comments{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("comments: unsupported scan type")
	}
	out := Comments{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*c = out
	return nil
}

// Attachment references an uploaded blob.
type Attachment struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalname"`
}

// Complaint is the central ticket entity.
type Complaint struct {
	ID                string          `db:"id" json:"id"`
	Title             string          `db:"title" json:"title"`
	Description       string          `db:"description" json:"description"`
	Branch            string          `db:"branch" json:"branch"`
	Category          string          `db:"category" json:"category"`
	Priority          string          `db:"priority" json:"priority"`
	Status            ComplaintStatus `db:"status" json:"status"`
	StudentID         string          `db:"student_id" json:"studentId"`
	ResolverID        *string         `db:"resolver_id" json:"resolverId"`
	Comments          Comments        `db:"comments" json:"comments"`
	ResolutionComment *string         `db:"resolution_comment" json:"resolutionComment"`
	FileKey           *string         `db:"file_key" json:"-"`
	FileName          *string         `db:"file_name" json:"-"`
	InchargeName      *string         `db:"incharge_name" json:"inchargeName"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updatedAt"`

	File *Attachment `db:"-" json:"file"`
}

// Hydrate fills derived fields after loading from storage.
func (c *Complaint) Hydrate() {
	if c.FileKey != nil && *c.FileKey != "" {
		name := ""
		if c.FileName != nil {
			name = *c.FileName
		}
		c.File = &Attachment{Filename: *c.FileKey, OriginalName: name}
	}
	if c.Comments == nil {
		c.Comments = Comments{}
	}
}

// ComplaintFilter narrows list queries.
type ComplaintFilter struct {
	Statuses   []ComplaintStatus
	StudentID  string
	ResolverID string
	// Participant matches complaints where the user is either the student or the resolver.
	Participant string
}

// StatusCount is one row of the grouped status query.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

// ComplaintStats is the aggregator output.
type ComplaintStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
	Forwarded  int `json:"forwarded"`
}

// Add classifies n complaints with the given raw status.
func (s *ComplaintStats) Add(raw string, n int) {
	s.Total += n
	status, ok := NormalizeStatus(raw)
	if !ok {
		return
	}
	switch status {
	case StatusPending:
		s.Pending += n
	case StatusInProgress:
		s.InProgress += n
	case StatusResolved:
		s.Resolved += n
	case StatusForwarded:
		s.Forwarded += n
	}
}

// StatusBreakdown describes a distinct raw status and how it classifies.
type StatusBreakdown struct {
	Raw        string          `json:"raw"`
	Count      int             `json:"count"`
	Canonical  ComplaintStatus `json:"canonical,omitempty"`
	Recognized bool            `json:"recognized"`
}
