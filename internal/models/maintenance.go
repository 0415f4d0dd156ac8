package models

// NormalizeReport summarizes one batch normalizer run.
type NormalizeReport struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// RetentionReport summarizes one retention run.
type RetentionReport struct {
	NotificationsDeleted int64    `json:"notificationsDeleted"`
	ExportsDeleted       []string `json:"exportsDeleted"`
}

// ComplaintIdentity is the projection scanned by the batch normalizer.
type ComplaintIdentity struct {
	ID         string  `db:"id"`
	Status     string  `db:"status"`
	StudentID  string  `db:"student_id"`
	ResolverID *string `db:"resolver_id"`
}
