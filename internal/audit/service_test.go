package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/auditlog"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/clock"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/ports/mocks"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/tokenstore"
)

// =============================================================================
// Audit Service Test Suite
// =============================================================================

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	poster  *mocks.MockAuditPoster
	tokens  *tokenstore.MemoryStore
	clock   *clock.Fake
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.poster = mocks.NewMockAuditPoster(s.ctrl)
	s.tokens = tokenstore.NewMemoryStore()
	s.clock = clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	s.Require().NoError(s.tokens.Set(context.Background(), tokenstore.AuthTokenKey, "tok"))

	var err error
	s.service, err = New(s.poster, s.tokens, WithClock(s.clock))
	s.Require().NoError(err)
}

func (s *ServiceSuite) expectPosts(n int) *[]auditlog.Record {
	var (
		mu      sync.Mutex
		records []auditlog.Record
	)
	s.poster.EXPECT().
		Post(gomock.Any(), "tok", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, r auditlog.Record) error {
			mu.Lock()
			defer mu.Unlock()
			records = append(records, r)
			return nil
		}).
		Times(n)
	return &records
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *ServiceSuite) TestNew() {
	s.Run("nil poster returns error", func() {
		_, err := New(nil, s.tokens)
		s.Error(err)
	})

	s.Run("nil token reader returns error", func() {
		_, err := New(s.poster, nil)
		s.Error(err)
	})
}

// =============================================================================
// LogAction Tests
// =============================================================================

func (s *ServiceSuite) TestLogAction_StampsRecord() {
	records := s.expectPosts(1)

	s.service.LogAction(context.Background(), "expense_created", Options{
		Resource:    "expense",
		ResourceID:  "42",
		Description: "created expense",
		Metadata:    map[string]any{"amount": 120.5, "platform": "spoofed"},
	})
	s.service.Wait()

	s.Require().Len(*records, 1)
	r := (*records)[0]
	s.Equal("expense_created", r.Action)
	s.Equal("expense", r.Resource)
	s.Equal("42", r.ResourceID)
	s.Equal("created expense", r.Description)
	s.False(r.IsScreenshot)
	s.Equal(120.5, r.Metadata["amount"])
	s.Equal(PlatformMobile, r.Metadata["platform"], "platform stamp wins over caller metadata")
	s.Equal(DefaultSource, r.Metadata["source"])
}

func (s *ServiceSuite) TestLogAction_NoTokenNeverPosts() {
	s.Require().NoError(s.tokens.Delete(context.Background(), tokenstore.AuthTokenKey))
	s.poster.EXPECT().Post(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	outcome := s.service.logAction(context.Background(), "expense_created", Options{})
	s.service.Wait()

	s.Equal(auditlog.OutcomeUnauthenticated, outcome)
}

func (s *ServiceSuite) TestLogAction_DedupesWithinWindow() {
	records := s.expectPosts(2)
	ctx := context.Background()

	s.Equal(auditlog.OutcomeDispatched, s.service.logAction(ctx, "loan_viewed", Options{ResourceID: "7"}))
	s.clock.Advance(2999 * time.Millisecond)
	s.Equal(auditlog.OutcomeDuplicate, s.service.logAction(ctx, "loan_viewed", Options{ResourceID: "7"}))
	s.clock.Advance(time.Millisecond)
	s.Equal(auditlog.OutcomeDispatched, s.service.logAction(ctx, "loan_viewed", Options{ResourceID: "7"}),
		"repeat after the window is sent")
	s.service.Wait()

	s.Len(*records, 2)
}

func (s *ServiceSuite) TestLogAction_DifferentResourceIsNotDuplicate() {
	s.expectPosts(2)
	ctx := context.Background()

	s.service.LogAction(ctx, "loan_viewed", Options{ResourceID: "7"})
	s.service.LogAction(ctx, "loan_viewed", Options{ResourceID: "8"})
	s.service.Wait()
}

func (s *ServiceSuite) TestLogAction_SingleSlotDedupe() {
	// A, B, A: B overwrites the slot so the second A is not a duplicate.
	s.expectPosts(3)
	ctx := context.Background()

	s.service.LogAction(ctx, "a", Options{})
	s.service.LogAction(ctx, "b", Options{})
	s.service.LogAction(ctx, "a", Options{})
	s.service.Wait()
}

func (s *ServiceSuite) TestLogAction_ConcurrentCallsPassGateOnce() {
	s.expectPosts(1)
	ctx := context.Background()

	var dispatched atomic.Int32
	done := make(chan struct{})
	for range 20 {
		go func() {
			if s.service.logAction(ctx, "alert_acknowledged", Options{ResourceID: "1"}) == auditlog.OutcomeDispatched {
				dispatched.Add(1)
			}
			done <- struct{}{}
		}()
	}
	for range 20 {
		<-done
	}
	s.service.Wait()

	s.Equal(int32(1), dispatched.Load())
}

func (s *ServiceSuite) TestLogAction_FailureIsSwallowed() {
	s.poster.EXPECT().Post(gomock.Any(), gomock.Any(), gomock.Any()).Return(assert.AnError)
	invoked := false
	s.service.SetAuditLogsInvalidator(func() { invoked = true })

	s.NotPanics(func() {
		s.service.LogAction(context.Background(), "user_deleted", Options{})
		s.service.Wait()
	})
	s.False(invoked, "invalidator runs only after a successful post")
}

func (s *ServiceSuite) TestLogAction_CallerCancellationDoesNotCancelPost() {
	s.poster.EXPECT().
		Post(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ auditlog.Record) error {
			return ctx.Err()
		})
	invoked := false
	s.service.SetAuditLogsInvalidator(func() { invoked = true })

	ctx, cancel := context.WithCancel(context.Background())
	s.service.LogAction(ctx, "user_deleted", Options{})
	cancel()
	s.service.Wait()

	s.True(invoked)
}

// =============================================================================
// LogScreenView Tests
// =============================================================================

func (s *ServiceSuite) TestLogScreenView_DebouncesPerScreen() {
	records := s.expectPosts(3)
	ctx := context.Background()

	s.service.LogScreenView(ctx, "Dashboard")
	s.service.Wait()
	s.clock.Advance(10 * time.Second)
	s.service.LogScreenView(ctx, "Dashboard")
	s.service.LogScreenView(ctx, "Loans")
	s.service.Wait()
	s.clock.Advance(50 * time.Second)
	s.service.LogScreenView(ctx, "Dashboard")
	s.service.Wait()

	s.Require().Len(*records, 3)
	s.Equal(ActionScreenView, (*records)[0].Action)
	s.Equal("Dashboard", (*records)[0].ResourceID)
	s.Equal("Loans", (*records)[1].ResourceID)
	s.Equal("Dashboard", (*records)[2].ResourceID)
}

func (s *ServiceSuite) TestLogScreenView_StillSubjectToActionDedupe() {
	s.expectPosts(1)
	ctx := context.Background()

	s.service.LogAction(ctx, ActionScreenView, Options{ResourceID: "Reports"})
	s.service.LogScreenView(ctx, "Reports")
	s.service.Wait()
}

func (s *ServiceSuite) TestLogScreenView_DirectActionCountsTowardDebounce() {
	s.expectPosts(1)
	ctx := context.Background()

	s.service.LogAction(ctx, ActionScreenView, Options{ResourceID: "Dashboard"})
	s.clock.Advance(10 * time.Second)
	s.service.LogScreenView(ctx, "Dashboard")
	s.service.Wait()
}

func (s *ServiceSuite) TestLogScreenView_IndependentOfOtherActions() {
	s.expectPosts(2)
	ctx := context.Background()

	s.service.LogAction(ctx, "investment_created", Options{ResourceID: "Dashboard"})
	s.service.LogScreenView(ctx, "Dashboard")
	s.service.Wait()
}

// =============================================================================
// Invalidator Tests
// =============================================================================

func (s *ServiceSuite) TestInvalidator_LastRegistrationWins() {
	s.expectPosts(1)
	var first, second int
	s.service.SetAuditLogsInvalidator(func() { first++ })
	s.service.SetAuditLogsInvalidator(func() { second++ })

	s.service.LogAction(context.Background(), "alert_created", Options{})
	s.service.Wait()

	s.Zero(first)
	s.Equal(1, second)
}

func (s *ServiceSuite) TestInvalidator_StaleUnregisterKeepsNewer() {
	s.expectPosts(1)
	var stale, current int
	unregisterStale := s.service.SetAuditLogsInvalidator(func() { stale++ })
	s.service.SetAuditLogsInvalidator(func() { current++ })
	unregisterStale()

	s.service.LogAction(context.Background(), "alert_created", Options{})
	s.service.Wait()

	s.Zero(stale)
	s.Equal(1, current)
}

func (s *ServiceSuite) TestInvalidator_ClearedSlotIsNotInvoked() {
	s.expectPosts(2)
	calls := 0
	unregister := s.service.SetAuditLogsInvalidator(func() { calls++ })

	s.service.LogAction(context.Background(), "a", Options{})
	s.service.Wait()
	unregister()
	s.service.LogAction(context.Background(), "b", Options{})
	s.service.Wait()

	s.Equal(1, calls)

	s.service.SetAuditLogsInvalidator(nil)
}
