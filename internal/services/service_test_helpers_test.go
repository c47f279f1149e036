package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/talentgate/internal/database/testutil"
	"github.com/charlesng35/talentgate/internal/models"
)

type testServices struct {
	db          *gorm.DB
	audit       *AuditService
	profiles    *ProfileService
	assignments *AssignmentService
	resolver    *Resolver
	requests    *ChangeRequestService
	clock       *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

// Now advances the clock by one second per call so consecutive writes stay ordered.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	clock := newFakeClock()
	opts := []Option{WithClock(clock.Now)}

	audit, err := NewAuditService(db, opts...)
	require.NoError(t, err)
	profiles, err := NewProfileService(db, audit, opts...)
	require.NoError(t, err)
	assignments, err := NewAssignmentService(db, audit, opts...)
	require.NoError(t, err)
	resolver, err := NewResolver(db, assignments, audit, opts...)
	require.NoError(t, err)
	requests, err := NewChangeRequestService(db, audit, opts...)
	require.NoError(t, err)

	return &testServices{
		db:          db,
		audit:       audit,
		profiles:    profiles,
		assignments: assignments,
		resolver:    resolver,
		requests:    requests,
		clock:       clock,
	}
}

func createTestUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()

	user := models.User{Name: name, Email: name + "@example.com", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestProfile(t *testing.T, svc *testServices, code string, level int) *models.Profile {
	t.Helper()

	profile, err := svc.profiles.CreateProfile(context.Background(), 1, CreateProfileInput{
		Code:  code,
		Name:  code,
		Level: level,
	})
	require.NoError(t, err)
	return profile
}

func mustPermissionID(t *testing.T, db *gorm.DB, resource, action string) uint {
	t.Helper()

	var perm models.Permission
	require.NoError(t, db.Where("resource = ? AND action = ?", resource, action).First(&perm).Error)
	return perm.ID
}

func permissionKeys(perms []models.Permission) []string {
	keys := make([]string, 0, len(perms))
	for _, perm := range perms {
		keys = append(keys, perm.Key())
	}
	return keys
}

func countAudit(t *testing.T, svc *testServices, resource, action string) int64 {
	t.Helper()

	total, err := svc.audit.CountAccessLogs(context.Background(), AuditFilter{Resource: resource, Action: action})
	require.NoError(t, err)
	return total
}
