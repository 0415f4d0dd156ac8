package models

import "time"

// Feedback is a student's rating of a resolved complaint.
type Feedback struct {
	ID          string    `db:"id" json:"id"`
	ComplaintID string    `db:"complaint_id" json:"complaintId"`
	StudentID   string    `db:"student_id" json:"studentId"`
	Rating      int       `db:"rating" json:"rating"`
	Comment     string    `db:"comment" json:"comment"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`

	StudentName    string `db:"student_name" json:"studentName,omitempty"`
	ComplaintTitle string `db:"complaint_title" json:"complaintTitle,omitempty"`
}
