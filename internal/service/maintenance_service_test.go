package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/jobs"
)

type memIdentityRepo struct {
	rows    map[string]models.ComplaintIdentity
	order   []string
	updates int
}

func newMemIdentityRepo(rows ...models.ComplaintIdentity) *memIdentityRepo {
	r := &memIdentityRepo{rows: map[string]models.ComplaintIdentity{}}
	for _, row := range rows {
		r.rows[row.ID] = row
		r.order = append(r.order, row.ID)
	}
	return r
}

func (r *memIdentityRepo) ListIdentities(ctx context.Context) ([]models.ComplaintIdentity, error) {
	out := make([]models.ComplaintIdentity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rows[id])
	}
	return out, nil
}

func (r *memIdentityRepo) UpdateIdentity(ctx context.Context, row models.ComplaintIdentity) error {
	r.updates++
	r.rows[row.ID] = row
	return nil
}

type stubPruner struct {
	retention time.Duration
	deleted   int64
	err       error
}

func (s *stubPruner) PruneRead(ctx context.Context, retention time.Duration) (int64, error) {
	s.retention = retention
	return s.deleted, s.err
}

type stubCleaner struct{ removed []string }

func (s *stubCleaner) Cleanup(ttl time.Duration) ([]string, error) { return s.removed, nil }

type recordedRun struct {
	task string
	err  error
}

type stubMaintenanceMetrics struct{ runs []recordedRun }

func (s *stubMaintenanceMetrics) RecordMaintenance(task string, err error) {
	s.runs = append(s.runs, recordedRun{task, err})
}

func strPtr(s string) *string { return &s }

func TestNormalizeComplaintsIsIdempotent(t *testing.T) {
	repo := newMemIdentityRepo(
		models.ComplaintIdentity{ID: "1", Status: "Forwared", StudentID: " 3F2504E0-4F89-11D3-9A0C-0305E82C3301 ", ResolverID: strPtr("r1")},
		models.ComplaintIdentity{ID: "2", Status: "pending", StudentID: "s2", ResolverID: strPtr("  ")},
		models.ComplaintIdentity{ID: "3", Status: "archived", StudentID: "s3"},
		models.ComplaintIdentity{ID: "4", Status: "resolved", StudentID: "s4", ResolverID: strPtr("r2")},
		models.ComplaintIdentity{ID: "5", Status: "", StudentID: "s5"},
	)
	metrics := &stubMaintenanceMetrics{}
	svc := NewMaintenanceService(repo, &stubPruner{}, nil, metrics, nil, MaintenanceConfig{})

	report, err := svc.NormalizeComplaints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.NormalizeReport{Scanned: 5, Updated: 3, Skipped: 1}, report)

	assert.Equal(t, "forwarded", repo.rows["1"].Status)
	assert.Equal(t, "3f2504e0-4f89-11d3-9a0c-0305e82c3301", repo.rows["1"].StudentID)
	assert.Nil(t, repo.rows["2"].ResolverID)
	assert.Equal(t, "archived", repo.rows["3"].Status)
	assert.Equal(t, "pending", repo.rows["5"].Status)

	again, err := svc.NormalizeComplaints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Updated)
	assert.Equal(t, 1, again.Skipped)
	assert.Equal(t, 3, repo.updates)
	assert.Len(t, metrics.runs, 2)
}

func TestPruneNotificationsReport(t *testing.T) {
	pruner := &stubPruner{deleted: 7}
	cleaner := &stubCleaner{removed: []string{"exports/a.csv"}}
	svc := NewMaintenanceService(newMemIdentityRepo(), pruner, cleaner, nil, nil, MaintenanceConfig{NotificationRetention: 48 * time.Hour})

	report, err := svc.PruneNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.NotificationsDeleted)
	assert.Equal(t, []string{"exports/a.csv"}, report.ExportsDeleted)
	assert.Equal(t, 48*time.Hour, pruner.retention)
}

func TestPruneNotificationsFailure(t *testing.T) {
	metrics := &stubMaintenanceMetrics{}
	pruner := &stubPruner{err: appErrors.Internal(errors.New("db down"), "failed to prune notifications")}
	svc := NewMaintenanceService(newMemIdentityRepo(), pruner, nil, metrics, nil, MaintenanceConfig{})

	_, err := svc.PruneNotifications(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	require.Len(t, metrics.runs, 1)
	assert.Error(t, metrics.runs[0].err)
}

func TestRunRequiresAdminAndKnownTask(t *testing.T) {
	svc := NewMaintenanceService(newMemIdentityRepo(), &stubPruner{}, nil, nil, nil, MaintenanceConfig{})
	ctx := context.Background()

	_, err := svc.Run(ctx, resolverActor, TaskNormalize)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Run(ctx, adminActor, "reindex")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	out, err := svc.Run(ctx, adminActor, "Normalize")
	require.NoError(t, err)
	assert.IsType(t, models.NormalizeReport{}, out)
}

func TestRegisterInstallsJobKinds(t *testing.T) {
	q := jobs.NewQueue("maintenance", jobs.Config{Workers: 1})
	svc := NewMaintenanceService(newMemIdentityRepo(), &stubPruner{}, nil, nil, nil, MaintenanceConfig{})
	svc.Register(q)
	assert.ElementsMatch(t, []string{TaskNormalize, TaskRetention}, q.Kinds())
}
