package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"urbanreport-be/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ---- in-memory fakes ----

type memIssueStore struct {
	mu     sync.Mutex
	issues map[primitive.ObjectID]*models.Issue
}

func newMemIssueStore() *memIssueStore {
	return &memIssueStore{issues: make(map[primitive.ObjectID]*models.Issue)}
}

func (s *memIssueStore) add(issue *models.Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *issue
	s.issues[issue.ID] = &cp
}

func (s *memIssueStore) get(id primitive.ObjectID) *models.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if issue, ok := s.issues[id]; ok {
		cp := *issue
		return &cp
	}
	return nil
}

func (s *memIssueStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Issue, error) {
	if issue := s.get(id); issue != nil {
		return issue, nil
	}
	return nil, ErrNotFound
}

func (s *memIssueStore) Insert(_ context.Context, issue *models.Issue) error {
	s.add(issue)
	return nil
}

func (s *memIssueStore) Update(_ context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[issue.ID]; !ok {
		return ErrNotFound
	}
	cp := *issue
	s.issues[issue.ID] = &cp
	return nil
}

func (s *memIssueStore) CountOpenByArea(_ context.Context, area string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, issue := range s.issues {
		if issue.Area == area && issue.Status != models.Resolved {
			n++
		}
	}
	return n, nil
}

func (s *memIssueStore) ToggleUpvote(_ context.Context, issueID, userID primitive.ObjectID) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[issueID]
	if !ok {
		return false, 0, ErrNotFound
	}
	for i, id := range issue.Upvotes {
		if id == userID {
			issue.Upvotes = append(issue.Upvotes[:i], issue.Upvotes[i+1:]...)
			return false, len(issue.Upvotes), nil
		}
	}
	issue.Upvotes = append(issue.Upvotes, userID)
	return true, len(issue.Upvotes), nil
}

func (s *memIssueStore) SetSpam(_ context.Context, issueID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[issueID]
	if !ok {
		return ErrNotFound
	}
	issue.IsSpam = true
	issue.Status = models.Rejected
	return nil
}

type memUserDirectory struct {
	users map[primitive.ObjectID]*models.User
}

func newMemUserDirectory(users ...*models.User) *memUserDirectory {
	d := &memUserDirectory{users: make(map[primitive.ObjectID]*models.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *memUserDirectory) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (d *memUserDirectory) FindByRole(_ context.Context, role models.UserRole) ([]models.User, error) {
	var out []models.User
	for _, u := range d.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

type memNotificationStore struct {
	mu      sync.Mutex
	records []*models.Notification
}

func (s *memNotificationStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, n)
	return nil
}

func (s *memNotificationStore) all() []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Notification{}, s.records...)
}

type recordedEmail struct {
	to      string
	issueID string
	status  models.IssueStatus
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []recordedEmail
	fail error
}

func (m *fakeMailer) SendStatusEmail(to, _, issueID, _ string, status models.IssueStatus, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, recordedEmail{to: to, issueID: issueID, status: status})
	return nil
}

func (m *fakeMailer) emails() []recordedEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedEmail{}, m.sent...)
}

type recordedEvent struct {
	channel string
	name    string
	data    interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBroadcaster) EmitToChannel(channel, event string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{channel: channel, name: event, data: data})
}

func (b *fakeBroadcaster) EmitGlobal(event string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{channel: "", name: event, data: data})
}

func (b *fakeBroadcaster) byName(name string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, ev := range b.events {
		if ev.name == name {
			out = append(out, ev)
		}
	}
	return out
}

type fakeSequencer struct {
	mu    sync.Mutex
	next  int64
	calls int
}

func (s *fakeSequencer) Next(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.next++
	return s.next, nil
}

// ---- fixture ----

type fixture struct {
	store    *memIssueStore
	users    *memUserDirectory
	notes    *memNotificationStore
	mailer   *fakeMailer
	rt       *fakeBroadcaster
	seq      *fakeSequencer
	notifier *NotifierService
	svc      *LifecycleService
	reporter *models.User
	admin    *models.User
}

func newFixture() *fixture {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	reporter := &models.User{
		ID:    primitive.NewObjectID(),
		Name:  "Asha Rao",
		Email: "asha@example.com",
		Role:  models.RoleCitizen,
	}
	admin := &models.User{
		ID:    primitive.NewObjectID(),
		Name:  "Ward Officer",
		Email: "officer@example.com",
		Role:  models.RoleAdmin,
	}

	f := &fixture{
		store:    newMemIssueStore(),
		users:    newMemUserDirectory(reporter, admin),
		notes:    &memNotificationStore{},
		mailer:   &fakeMailer{},
		rt:       &fakeBroadcaster{},
		seq:      &fakeSequencer{},
		reporter: reporter,
		admin:    admin,
	}
	f.notifier = NewNotifierService(f.notes, f.users, f.mailer, f.rt, log)
	f.svc = NewLifecycleService(f.store, f.users, f.notifier, f.seq)
	return f
}

func validInput() CreateInput {
	return CreateInput{
		Title:       "Large pothole near market",
		Description: "Deep pothole causing two-wheeler accidents",
		Category:    models.Pothole,
		Area:        "Shivaji Nagar",
		Locality:    "Market Road",
	}
}

var issueIDPattern = regexp.MustCompile(`^UIR-\d{8}-\d{4}$`)

// ---- create ----

func TestCreateSeedsHistoryAndID(t *testing.T) {
	f := newFixture()

	issue, err := f.svc.Create(context.Background(), validInput(), f.reporter)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !issueIDPattern.MatchString(issue.IssueID) {
		t.Errorf("issueId %q does not match UIR-YYYYMMDD-NNNN", issue.IssueID)
	}
	if issue.Status != models.Reported {
		t.Errorf("expected initial status Reported, got %s", issue.Status)
	}
	if issue.Severity != 3 {
		t.Errorf("expected default severity 3, got %d", issue.Severity)
	}
	if len(issue.StatusHistory) != 1 {
		t.Fatalf("expected exactly 1 history entry, got %d", len(issue.StatusHistory))
	}
	entry := issue.StatusHistory[0]
	if entry.Status != models.Reported {
		t.Errorf("seed history status = %s, want Reported", entry.Status)
	}
	if entry.Comment != "Issue reported by citizen" {
		t.Errorf("seed history comment = %q", entry.Comment)
	}
	if entry.UpdatedByName != f.reporter.Name {
		t.Errorf("seed history actor = %q, want %q", entry.UpdatedByName, f.reporter.Name)
	}

	if f.store.get(issue.ID) == nil {
		t.Error("issue was not persisted")
	}
}

func TestCreateIdentifierIsSequential(t *testing.T) {
	f := newFixture()

	first, err := f.svc.Create(context.Background(), validInput(), f.reporter)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := f.svc.Create(context.Background(), validInput(), f.reporter)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	datePart := time.Now().UTC().Format("20060102")
	if want := "UIR-" + datePart + "-0001"; first.IssueID != want {
		t.Errorf("first issueId = %q, want %q", first.IssueID, want)
	}
	if want := "UIR-" + datePart + "-0002"; second.IssueID != want {
		t.Errorf("second issueId = %q, want %q", second.IssueID, want)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing title", func(in *CreateInput) { in.Title = " " }},
		{"missing description", func(in *CreateInput) { in.Description = "" }},
		{"unknown category", func(in *CreateInput) { in.Category = "Graffiti" }},
		{"missing area", func(in *CreateInput) { in.Area = "" }},
		{"missing locality", func(in *CreateInput) { in.Locality = "" }},
		{"severity too high", func(in *CreateInput) { in.Severity = 6 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := f.svc.Create(context.Background(), in, f.reporter)
			if !IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}

	if _, err := f.svc.Create(context.Background(), validInput(), nil); !IsValidation(err) {
		t.Errorf("expected ValidationError for nil reporter, got %v", err)
	}
}

// ---- status changes ----

func TestChangeStatusAppendsOneHistoryEntry(t *testing.T) {
	for _, status := range models.Statuses {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			issue, err := f.svc.Create(context.Background(), validInput(), f.reporter)
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}

			transition, err := f.svc.ChangeStatus(context.Background(), issue.ID, status, f.admin, "")
			if err != nil {
				t.Fatalf("ChangeStatus(%s) failed: %v", status, err)
			}

			if transition.OldStatus != models.Reported || transition.NewStatus != status {
				t.Errorf("transition = %s -> %s, want Reported -> %s", transition.OldStatus, transition.NewStatus, status)
			}

			updated := f.store.get(issue.ID)
			if updated.Status != status {
				t.Errorf("status = %s, want %s", updated.Status, status)
			}
			if len(updated.StatusHistory) != 2 {
				t.Fatalf("history length = %d, want 2", len(updated.StatusHistory))
			}
			last := updated.StatusHistory[1]
			if last.Comment != "Status changed to "+string(status) {
				t.Errorf("default comment = %q", last.Comment)
			}
			if last.UpdatedByName != f.admin.Name {
				t.Errorf("history actor = %q, want %q", last.UpdatedByName, f.admin.Name)
			}
		})
	}
}

func TestChangeStatusResolvedAtSetOnce(t *testing.T) {
	f := newFixture()
	issue, err := f.svc.Create(context.Background(), validInput(), f.reporter)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := f.svc.ChangeStatus(context.Background(), issue.ID, models.Resolved, f.admin, ""); err != nil {
		t.Fatalf("ChangeStatus failed: %v", err)
	}
	first := f.store.get(issue.ID)
	if first.ResolvedAt == nil {
		t.Fatal("resolvedAt not set on first Resolved")
	}
	resolvedAt := *first.ResolvedAt

	if _, err := f.svc.ChangeStatus(context.Background(), issue.ID, models.Verified, f.admin, ""); err != nil {
		t.Fatalf("ChangeStatus failed: %v", err)
	}
	if _, err := f.svc.ChangeStatus(context.Background(), issue.ID, models.Resolved, f.admin, ""); err != nil {
		t.Fatalf("ChangeStatus failed: %v", err)
	}

	final := f.store.get(issue.ID)
	if final.ResolvedAt == nil || !final.ResolvedAt.Equal(resolvedAt) {
		t.Error("resolvedAt changed on second transition to Resolved")
	}
}

func TestChangeStatusErrors(t *testing.T) {
	f := newFixture()
	issue, err := f.svc.Create(context.Background(), validInput(), f.reporter)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := f.svc.ChangeStatus(context.Background(), primitive.NewObjectID(), models.Verified, f.admin, ""); err != ErrNotFound {
		t.Errorf("missing issue: got %v, want ErrNotFound", err)
	}
	if _, err := f.svc.ChangeStatus(context.Background(), issue.ID, models.Verified, f.reporter, ""); err != ErrForbidden {
		t.Errorf("citizen actor: got %v, want ErrForbidden", err)
	}
	if _, err := f.svc.ChangeStatus(context.Background(), issue.ID, "Escalated", f.admin, ""); !IsValidation(err) {
		t.Errorf("unknown status: got %v, want ValidationError", err)
	}
}

// ---- severity and note ----

func TestChangeSeverityAndNote(t *testing.T) {
	f := newFixture()
	issue, err := f.svc.Create(context.Background(), validInput(), f.reporter)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := f.svc.ChangeSeverityAndNote(context.Background(), issue.ID, 0, ""); !IsValidation(err) {
		t.Errorf("severity 0: got %v, want ValidationError", err)
	}
	if _, err := f.svc.ChangeSeverityAndNote(context.Background(), issue.ID, 6, ""); !IsValidation(err) {
		t.Errorf("severity 6: got %v, want ValidationError", err)
	}

	if _, err := f.svc.ChangeSeverityAndNote(context.Background(), issue.ID, 5, "verify with site visit"); err != nil {
		t.Fatalf("ChangeSeverityAndNote failed: %v", err)
	}
	updated := f.store.get(issue.ID)
	if updated.Severity != 5 {
		t.Errorf("severity = %d, want 5", updated.Severity)
	}
	if updated.AdminNote != "verify with site visit" {
		t.Errorf("adminNote = %q", updated.AdminNote)
	}
	if len(updated.StatusHistory) != 1 {
		t.Errorf("severity change must not append history, length = %d", len(updated.StatusHistory))
	}

	// empty note leaves the previous one untouched
	if _, err := f.svc.ChangeSeverityAndNote(context.Background(), issue.ID, 2, ""); err != nil {
		t.Fatalf("ChangeSeverityAndNote failed: %v", err)
	}
	updated = f.store.get(issue.ID)
	if updated.AdminNote != "verify with site visit" {
		t.Errorf("empty note overwrote previous note: %q", updated.AdminNote)
	}
	if updated.Severity != 2 {
		t.Errorf("severity = %d, want 2", updated.Severity)
	}
}

// ---- spam ----

func TestMarkSpamIsSilent(t *testing.T) {
	f := newFixture()
	issue, err := f.svc.Create(context.Background(), validInput(), f.reporter)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	f.notifier.Wait()
	notificationsBefore := len(f.notes.all())

	if err := f.svc.MarkSpam(context.Background(), issue.ID); err != nil {
		t.Fatalf("MarkSpam failed: %v", err)
	}
	f.notifier.Wait()

	updated := f.store.get(issue.ID)
	if !updated.IsSpam {
		t.Error("isSpam not set")
	}
	if updated.Status != models.Rejected {
		t.Errorf("status = %s, want Rejected", updated.Status)
	}
	if len(updated.StatusHistory) != 1 {
		t.Errorf("spam marking must not append history, length = %d", len(updated.StatusHistory))
	}
	if got := len(f.notes.all()); got != notificationsBefore {
		t.Errorf("spam marking created %d notifications", got-notificationsBefore)
	}

	if err := f.svc.MarkSpam(context.Background(), primitive.NewObjectID()); err != ErrNotFound {
		t.Errorf("missing issue: got %v, want ErrNotFound", err)
	}
}

// ---- upvotes ----

func TestToggleUpvotePairIsIdempotent(t *testing.T) {
	f := newFixture()
	issue, err := f.svc.Create(context.Background(), validInput(), f.reporter)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	userID := primitive.NewObjectID()
	voted, count, err := f.svc.ToggleUpvote(context.Background(), issue.ID, userID)
	if err != nil {
		t.Fatalf("ToggleUpvote failed: %v", err)
	}
	if !voted || count != 1 {
		t.Errorf("first toggle: voted=%v count=%d, want true 1", voted, count)
	}

	voted, count, err = f.svc.ToggleUpvote(context.Background(), issue.ID, userID)
	if err != nil {
		t.Fatalf("ToggleUpvote failed: %v", err)
	}
	if voted || count != 0 {
		t.Errorf("second toggle: voted=%v count=%d, want false 0", voted, count)
	}

	if len(f.store.get(issue.ID).StatusHistory) != 1 {
		t.Error("upvote toggling must not append history")
	}
}

func TestToggleUpvoteConcurrentUsers(t *testing.T) {
	f := newFixture()
	issue, err := f.svc.Create(context.Background(), validInput(), f.reporter)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := f.svc.ToggleUpvote(context.Background(), issue.ID, primitive.NewObjectID()); err != nil {
				t.Errorf("ToggleUpvote failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(f.store.get(issue.ID).Upvotes); got != n {
		t.Errorf("upvote count = %d, want %d", got, n)
	}
}
