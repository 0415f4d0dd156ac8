package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/storage"
)

type memComplaintRepo struct {
	mu        sync.Mutex
	items     map[string]*models.Complaint
	lastList  models.ComplaintFilter
	createErr error
	seq       int
}

func newMemComplaintRepo(items ...models.Complaint) *memComplaintRepo {
	r := &memComplaintRepo{items: map[string]*models.Complaint{}}
	for i := range items {
		c := items[i]
		r.items[c.ID] = &c
	}
	return r
}

func (r *memComplaintRepo) copyOf(id string) (*models.Complaint, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *c
	out.Comments = append(models.Comments{}, c.Comments...)
	return &out, nil
}

func (r *memComplaintRepo) Create(ctx context.Context, c *models.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	c.ID = "c-new"
	stored := *c
	r.items[c.ID] = &stored
	return nil
}

func (r *memComplaintRepo) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyOf(id)
}

func (r *memComplaintRepo) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastList = filter
	var out []models.Complaint
	for id := range r.items {
		c, _ := r.copyOf(id)
		if !matchesFilter(c, filter) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matchesFilter(c *models.Complaint, filter models.ComplaintFilter) bool {
	if len(filter.Statuses) > 0 {
		status, _ := models.NormalizeStatus(string(c.Status))
		found := false
		for _, s := range filter.Statuses {
			found = found || s == status
		}
		if !found {
			return false
		}
	}
	resolver := ""
	if c.ResolverID != nil {
		resolver = *c.ResolverID
	}
	if filter.StudentID != "" && c.StudentID != filter.StudentID {
		return false
	}
	if filter.ResolverID != "" && resolver != filter.ResolverID {
		return false
	}
	if filter.Participant != "" && c.StudentID != filter.Participant && resolver != filter.Participant {
		return false
	}
	return true
}

func (r *memComplaintRepo) Assign(ctx context.Context, id, resolverID string, status models.ComplaintStatus) (*models.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c.ResolverID = &resolverID
	c.Status = status
	c.ResolutionComment = nil
	return r.copyOf(id)
}

func (r *memComplaintRepo) AppendComment(ctx context.Context, id string, comment models.Comment) (*models.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c.Comments = append(c.Comments, comment)
	return r.copyOf(id)
}

func (r *memComplaintRepo) Resolve(ctx context.Context, id, actorID, resolutionComment string) (*models.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c.Status = models.StatusResolved
	c.ResolutionComment = &resolutionComment
	if c.ResolverID == nil {
		c.ResolverID = &actorID
	}
	return r.copyOf(id)
}

func (r *memComplaintRepo) UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus, actorID string, resolutionComment *string) (*models.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c.Status = status
	if status == models.StatusPending {
		c.ResolverID = nil
		c.ResolutionComment = nil
	} else {
		if c.ResolverID == nil {
			c.ResolverID = &actorID
		}
		c.ResolutionComment = resolutionComment
	}
	return r.copyOf(id)
}

func (r *memComplaintRepo) Delete(ctx context.Context, id string) (*string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(r.items, id)
	return c.FileKey, nil
}

type stubUsers struct {
	users   map[string]*models.User
	listErr error
}

func (s *stubUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *stubUsers) ListByRole(ctx context.Context, roles ...models.UserRole) ([]models.UserContact, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.UserContact
	for _, u := range s.users {
		for _, r := range roles {
			if u.Role == r {
				out = append(out, models.UserContact{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
			}
		}
	}
	return out, nil
}

type notifyCall struct {
	userIDs []string
	message string
}

type recordingNotifier struct {
	mu        sync.Mutex
	notified  []notifyCall
	emails    [][]string
	notifyErr error
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, message, link string) error {
	return n.NotifyAll(ctx, []string{userID}, message, link)
}

func (n *recordingNotifier) NotifyAll(ctx context.Context, userIDs []string, message, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, notifyCall{userIDs: userIDs, message: message})
	return n.notifyErr
}

func (n *recordingNotifier) Email(ctx context.Context, to []string, subject, html string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, to)
}

type memBlobs struct {
	objects   map[string][]byte
	deleted   []string
	deleteErr error
}

func (m *memBlobs) PutLimited(key string, body io.Reader, limit int64) (int64, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return 0, err
	}
	if int64(len(data)) > limit {
		return int64(len(data)), storage.ErrTooLarge
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return int64(len(data)), nil
}

func (m *memBlobs) Delete(key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.objects, key)
	return m.deleteErr
}

var (
	adminActor    = &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}
	resolverActor = &models.JWTClaims{UserID: "r1", Role: models.RoleResolver}
	studentActor  = &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}
)

type complaintFixture struct {
	svc      *ComplaintService
	repo     *memComplaintRepo
	users    *stubUsers
	notifier *recordingNotifier
	blobs    *memBlobs
}

func newComplaintFixture(enforceRole bool, items ...models.Complaint) complaintFixture {
	repo := newMemComplaintRepo(items...)
	users := &stubUsers{users: map[string]*models.User{
		"a1": {ID: "a1", Name: "Admin", Email: "admin@college.edu", Role: models.RoleAdmin},
		"a2": {ID: "a2", Name: "Admin Two", Email: "admin2@college.edu", Role: models.RoleAdmin},
		"r1": {ID: "r1", Name: "Ravi", Email: "ravi@college.edu", Role: models.RoleResolver},
		"t1": {ID: "t1", Name: "Tara", Email: "tara@college.edu", Role: models.RoleTeacher},
		"s1": {ID: "s1", Name: "Sam", Email: "sam@college.edu", Role: models.RoleStudent},
	}}
	notifier := &recordingNotifier{}
	blobs := &memBlobs{}
	svc := NewComplaintService(repo, users, notifier, blobs, nil, zap.NewNop(), ComplaintConfig{
		EnforceResolverRole: enforceRole,
		MaxAttachmentBytes:  16,
	})
	return complaintFixture{svc: svc, repo: repo, users: users, notifier: notifier, blobs: blobs}
}

func pendingComplaint(id string) models.Complaint {
	return models.Complaint{ID: id, Title: "Fan broken", StudentID: "s1", Status: models.StatusPending}
}

func validSubmit() dto.SubmitComplaintRequest {
	return dto.SubmitComplaintRequest{
		Title:       "Broken projector",
		Description: "The projector in lab 3 has not worked for a week.",
		Branch:      "CSE",
		Category:    "infrastructure",
		Priority:    "high",
	}
}

func assertResolverInvariant(t *testing.T, c *models.Complaint) {
	t.Helper()
	if c.Status == models.StatusPending {
		assert.Nil(t, c.ResolverID, "pending complaint must not have a resolver")
	} else {
		assert.NotNil(t, c.ResolverID, "non-pending complaint must have a resolver")
	}
	assert.Equal(t, c.Status == models.StatusResolved, c.ResolutionComment != nil)
}

func TestSubmitCreatesPendingAndNotifiesAdmins(t *testing.T) {
	f := newComplaintFixture(true)

	c, err := f.svc.Submit(context.Background(), studentActor, validSubmit(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, "s1", c.StudentID)
	assertResolverInvariant(t, c)

	require.Len(t, f.notifier.notified, 1)
	assert.ElementsMatch(t, []string{"a1", "a2"}, f.notifier.notified[0].userIDs)
	require.Len(t, f.notifier.emails, 1)
	assert.ElementsMatch(t, []string{"admin@college.edu", "admin2@college.edu"}, f.notifier.emails[0])
}

func TestSubmitSucceedsWhenNotificationFails(t *testing.T) {
	f := newComplaintFixture(true)
	f.notifier.notifyErr = errors.New("insert failed")
	f.users.listErr = nil

	_, err := f.svc.Submit(context.Background(), studentActor, validSubmit(), nil)
	require.NoError(t, err)
}

func TestSubmitValidation(t *testing.T) {
	f := newComplaintFixture(true)

	short := validSubmit()
	short.Description = "too short"
	_, err := f.svc.Submit(context.Background(), studentActor, short, nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	long := validSubmit()
	long.Title = strings.Repeat("x", 101)
	_, err = f.svc.Submit(context.Background(), studentActor, long, nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	missing := validSubmit()
	missing.Branch = " "
	_, err = f.svc.Submit(context.Background(), studentActor, missing, nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Submit(context.Background(), resolverActor, validSubmit(), nil)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestSubmitStoresAttachment(t *testing.T) {
	f := newComplaintFixture(true)
	file := &dto.Upload{Filename: "photo.JPG", Size: 4, Body: bytes.NewReader([]byte("jpeg"))}

	c, err := f.svc.Submit(context.Background(), studentActor, validSubmit(), file)
	require.NoError(t, err)
	require.NotNil(t, c.FileKey)
	assert.True(t, strings.HasPrefix(*c.FileKey, "complaints/"))
	assert.Contains(t, f.blobs.objects, *c.FileKey)
}

func TestSubmitRejectsOversizedAttachment(t *testing.T) {
	f := newComplaintFixture(true)
	body := bytes.Repeat([]byte("x"), 32)
	file := &dto.Upload{Filename: "big.bin", Size: 0, Body: bytes.NewReader(body)}

	_, err := f.svc.Submit(context.Background(), studentActor, validSubmit(), file)
	assert.ErrorIs(t, err, appErrors.ErrPayloadTooLarge)
	assert.Empty(t, f.blobs.objects)
}

func TestSubmitRemovesBlobWhenInsertFails(t *testing.T) {
	f := newComplaintFixture(true)
	f.repo.createErr = errors.New("db down")
	file := &dto.Upload{Filename: "a.pdf", Size: 3, Body: bytes.NewReader([]byte("pdf"))}

	_, err := f.svc.Submit(context.Background(), studentActor, validSubmit(), file)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Len(t, f.blobs.deleted, 1)
}

func TestAssignForwardsAndNotifiesResolver(t *testing.T) {
	f := newComplaintFixture(true, pendingComplaint("c1"))

	c, err := f.svc.Assign(context.Background(), adminActor, "c1", dto.AssignComplaintRequest{ResolverID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusForwarded, c.Status)
	require.NotNil(t, c.ResolverID)
	assert.Equal(t, "r1", *c.ResolverID)
	assertResolverInvariant(t, c)

	require.Len(t, f.notifier.notified, 1)
	assert.Equal(t, []string{"r1"}, f.notifier.notified[0].userIDs)
	assert.Equal(t, [][]string{{"ravi@college.edu"}}, f.notifier.emails)
}

func TestAssignUnknownResolverLeavesComplaintUntouched(t *testing.T) {
	f := newComplaintFixture(true, pendingComplaint("c1"))

	_, err := f.svc.Assign(context.Background(), adminActor, "c1", dto.AssignComplaintRequest{ResolverID: "ghost"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	c, err := f.repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Nil(t, c.ResolverID)
	assert.Empty(t, f.notifier.notified)
}

func TestAssignEnforcesResolverRole(t *testing.T) {
	f := newComplaintFixture(true, pendingComplaint("c1"))
	_, err := f.svc.Assign(context.Background(), adminActor, "c1", dto.AssignComplaintRequest{ResolverID: "t1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	f = newComplaintFixture(false, pendingComplaint("c1"))
	_, err = f.svc.Assign(context.Background(), adminActor, "c1", dto.AssignComplaintRequest{ResolverID: "t1"})
	assert.NoError(t, err)
}

func TestAssignMissingComplaint(t *testing.T) {
	f := newComplaintFixture(true)
	_, err := f.svc.Assign(context.Background(), adminActor, "nope", dto.AssignComplaintRequest{ResolverID: "r1"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Assign(context.Background(), studentActor, "nope", dto.AssignComplaintRequest{ResolverID: "r1"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestResolveRequiresComment(t *testing.T) {
	f := newComplaintFixture(true, pendingComplaint("c1"))

	_, err := f.svc.Resolve(context.Background(), resolverActor, "c1", dto.ResolveComplaintRequest{ResolutionComment: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	c, err := f.svc.Resolve(context.Background(), resolverActor, "c1", dto.ResolveComplaintRequest{ResolutionComment: "Replaced the regulator."})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, c.Status)
	require.NotNil(t, c.ResolutionComment)
	assert.Equal(t, "Replaced the regulator.", *c.ResolutionComment)
	assertResolverInvariant(t, c)

	require.NotEmpty(t, f.notifier.notified)
	assert.Equal(t, []string{"s1"}, f.notifier.notified[0].userIDs)
}

func TestUpdateStatusTransitionsKeepInvariants(t *testing.T) {
	f := newComplaintFixture(true, pendingComplaint("c1"))
	ctx := context.Background()

	c, err := f.svc.UpdateStatus(ctx, resolverActor, "c1", dto.UpdateStatusRequest{Status: "In_Progress"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)
	assertResolverInvariant(t, c)

	_, err = f.svc.UpdateStatus(ctx, resolverActor, "c1", dto.UpdateStatusRequest{Status: "resolved"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	c, err = f.svc.UpdateStatus(ctx, resolverActor, "c1", dto.UpdateStatusRequest{Status: "resolved", ResolutionComment: "done"})
	require.NoError(t, err)
	assertResolverInvariant(t, c)

	c, err = f.svc.UpdateStatus(ctx, adminActor, "c1", dto.UpdateStatusRequest{Status: "forwarded"})
	require.NoError(t, err)
	assertResolverInvariant(t, c)

	c, err = f.svc.UpdateStatus(ctx, adminActor, "c1", dto.UpdateStatusRequest{Status: "pending"})
	require.NoError(t, err)
	assertResolverInvariant(t, c)

	_, err = f.svc.UpdateStatus(ctx, adminActor, "c1", dto.UpdateStatusRequest{Status: "archived"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUpdateStatusAllowsSkippingStates(t *testing.T) {
	f := newComplaintFixture(true, pendingComplaint("c1"))

	c, err := f.svc.UpdateStatus(context.Background(), adminActor, "c1", dto.UpdateStatusRequest{Status: "resolved", ResolutionComment: "duplicate of c0"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, c.Status)
	assertResolverInvariant(t, c)
}

func TestConcurrentStatusUpdatesLastWriteWins(t *testing.T) {
	f := newComplaintFixture(true, pendingComplaint("c1"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, status := range []string{"in progress", "forwarded"} {
		wg.Add(1)
		go func(i int, status string) {
			defer wg.Done()
			_, errs[i] = f.svc.UpdateStatus(context.Background(), resolverActor, "c1", dto.UpdateStatusRequest{Status: status})
		}(i, status)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	c, err := f.repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Contains(t, []models.ComplaintStatus{models.StatusInProgress, models.StatusForwarded}, c.Status)
	assertResolverInvariant(t, c)
}

func TestCommentRequiresVisibility(t *testing.T) {
	f := newComplaintFixture(true, pendingComplaint("c1"))

	_, err := f.svc.Comment(context.Background(), &models.JWTClaims{UserID: "s2", Role: models.RoleStudent}, "c1", dto.CommentRequest{Comment: "hello"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Comment(context.Background(), studentActor, "c1", dto.CommentRequest{Comment: " "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	c, err := f.svc.Comment(context.Background(), studentActor, "c1", dto.CommentRequest{Comment: "any update?"})
	require.NoError(t, err)
	require.Len(t, c.Comments, 1)
	assert.Equal(t, "s1", c.Comments[0].AuthorID)
}

func TestGetVisibility(t *testing.T) {
	assigned := pendingComplaint("c1")
	resolver := "r1"
	assigned.ResolverID = &resolver
	assigned.Status = models.StatusForwarded
	f := newComplaintFixture(true, assigned)
	ctx := context.Background()

	for _, actor := range []*models.JWTClaims{adminActor, studentActor, resolverActor} {
		_, err := f.svc.Get(ctx, actor, "c1")
		assert.NoError(t, err, actor.UserID)
	}
	_, err := f.svc.Get(ctx, &models.JWTClaims{UserID: "r2", Role: models.RoleResolver}, "c1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Get(ctx, adminActor, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDeleteRemovesAttachment(t *testing.T) {
	withFile := pendingComplaint("c1")
	key := "complaints/abc.pdf"
	withFile.FileKey = &key
	f := newComplaintFixture(true, withFile, pendingComplaint("c2"))

	require.NoError(t, f.svc.Delete(context.Background(), adminActor, "c1"))
	assert.Equal(t, []string{key}, f.blobs.deleted)

	require.NoError(t, f.svc.Delete(context.Background(), adminActor, "c2"))
	assert.Len(t, f.blobs.deleted, 1)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), adminActor, "c2"), appErrors.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), resolverActor, "c1"), appErrors.ErrForbidden)
}

func TestDeleteSucceedsWhenBlobRemovalFails(t *testing.T) {
	withFile := pendingComplaint("c1")
	key := "complaints/abc.pdf"
	withFile.FileKey = &key
	f := newComplaintFixture(true, withFile)
	f.blobs.deleteErr = errors.New("permission denied")

	assert.NoError(t, f.svc.Delete(context.Background(), adminActor, "c1"))
}

func TestListFilters(t *testing.T) {
	f := newComplaintFixture(true)
	ctx := context.Background()

	_, err := f.svc.List(ctx, adminActor, "Forwared")
	require.NoError(t, err)
	assert.Equal(t, []models.ComplaintStatus{models.StatusForwarded}, f.repo.lastList.Statuses)

	_, err = f.svc.List(ctx, adminActor, "bogus")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.List(ctx, studentActor, "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.ListByResolver(ctx, resolverActor, "r1", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.ComplaintStatus{models.StatusForwarded, models.StatusInProgress}, f.repo.lastList.Statuses)
	assert.Equal(t, []models.ComplaintStatus{models.StatusForwarded, models.StatusInProgress}, f.repo.lastList.Statuses)

	_, err = f.svc.ListByResolver(ctx, resolverActor, "r2", false)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.History(ctx, studentActor)
	require.NoError(t, err)
	assert.Equal(t, "s1", f.repo.lastList.Participant)

	_, err = f.svc.ListForwarded(ctx, resolverActor, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, "r1", f.repo.lastList.ResolverID)
}
