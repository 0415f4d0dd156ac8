package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

func TestFeedbackCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectExec("INSERT INTO feedbacks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO feedbacks").WillReturnError(&pq.Error{Code: "23505"})

	require.NoError(t, repo.Create(context.Background(), &models.Feedback{ComplaintID: "c1", StudentID: "s1", Rating: 5}))
	err := repo.Create(context.Background(), &models.Feedback{ComplaintID: "c1", StudentID: "s1", Rating: 2})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM feedbacks WHERE complaint_id = $1 AND student_id = $2)")).
		WithArgs("c1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFeedbackListAllJoinsNames(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	rows := sqlmock.NewRows([]string{"id", "complaint_id", "student_id", "rating", "comment", "created_at", "student_name", "complaint_title"}).
		AddRow("f1", "c1", "s1", 4, "quick fix", time.Now(), "Meera", "Fan broken")
	mock.ExpectQuery("LEFT JOIN complaints c ON c.id = f.complaint_id").WillReturnRows(rows)

	list, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Meera", list[0].StudentName)
	assert.Equal(t, "Fan broken", list[0].ComplaintTitle)
}
