package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/talentgate/internal/models"
	apperrors "github.com/charlesng35/talentgate/pkg/errors"
)

func TestAssignProfileIsIdempotent(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	user := createTestUser(t, svc.db, "ana")
	manager, err := svc.profiles.GetProfileByCode(ctx, "manager")
	require.NoError(t, err)

	first, err := svc.assignments.AssignProfileToUser(ctx, user.ID, manager.ID, 1)
	require.NoError(t, err)
	second, err := svc.assignments.AssignProfileToUser(ctx, user.ID, manager.ID, 1)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var active int64
	require.NoError(t, svc.db.Model(&models.UserProfile{}).
		Where("user_id = ? AND profile_id = ? AND revoked_at IS NULL", user.ID, manager.ID).
		Count(&active).Error)
	require.Equal(t, int64(1), active)

	logs, err := svc.audit.GetAccessLogs(ctx, AuditFilter{Resource: auditResourceAssignments, Action: auditActionAssign})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Nil(t, logs[0].Context["note"])
	require.Equal(t, assignmentNoteAlreadyActive, logs[1].Context["note"])
}

func TestAssignProfileConcurrentCallsKeepOneBinding(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	user := createTestUser(t, svc.db, "bruno")
	employee, err := svc.profiles.GetProfileByCode(ctx, "employee")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.assignments.AssignProfileToUser(ctx, user.ID, employee.ID, 1)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	profiles, err := svc.assignments.GetUserProfiles(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
}

// hideActiveBindingOnce makes the next lookup of user_profiles come back empty, as if a
// concurrent assignment committed between that read and the insert that follows it.
func hideActiveBindingOnce(t *testing.T, db *gorm.DB) {
	t.Helper()

	armed := true
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:hide_active_binding", func(tx *gorm.DB) {
		if !armed || tx.Statement.Table != "user_profiles" {
			return
		}
		armed = false
		tx.Statement.AddClause(clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "1 = 0"}}})
	}))
}

func TestAssignProfileRetriesAfterUniqueViolation(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	user := createTestUser(t, svc.db, "dora")
	employee, err := svc.profiles.GetProfileByCode(ctx, "employee")
	require.NoError(t, err)

	key := models.ActiveBindingKey(user.ID, employee.ID)
	competitor := models.UserProfile{
		UserID:     user.ID,
		ProfileID:  employee.ID,
		AssignedBy: 2,
		AssignedAt: svc.clock.Now(),
		ActiveKey:  &key,
	}
	require.NoError(t, svc.db.Create(&competitor).Error)

	core, recorded := observer.New(zapcore.DebugLevel)
	assignments, err := NewAssignmentService(svc.db, svc.audit, WithLogger(zap.New(core)), WithClock(svc.clock.Now))
	require.NoError(t, err)

	hideActiveBindingOnce(t, svc.db)

	binding, err := assignments.AssignProfileToUser(ctx, user.ID, employee.ID, 1)
	require.NoError(t, err)
	require.Equal(t, competitor.ID, binding.ID)
	require.Equal(t, uint(2), binding.AssignedBy)
	require.Equal(t, 1, recorded.FilterMessage("assignment raced, retrying").Len())

	var active int64
	require.NoError(t, svc.db.Model(&models.UserProfile{}).
		Where("user_id = ? AND profile_id = ? AND revoked_at IS NULL", user.ID, employee.ID).
		Count(&active).Error)
	require.Equal(t, int64(1), active)

	logs, err := svc.audit.GetAccessLogs(ctx, AuditFilter{Resource: auditResourceAssignments, Action: auditActionAssign})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, assignmentNoteAlreadyActive, logs[0].Context["note"])
}

func TestRevokeThenReassignCreatesNewBinding(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	user := createTestUser(t, svc.db, "carla")
	manager, err := svc.profiles.GetProfileByCode(ctx, "manager")
	require.NoError(t, err)

	original, err := svc.assignments.AssignProfileToUser(ctx, user.ID, manager.ID, 1)
	require.NoError(t, err)
	require.NoError(t, svc.assignments.RevokeProfileFromUser(ctx, user.ID, manager.ID, 2))

	profiles, err := svc.assignments.GetUserProfiles(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, profiles)

	renewed, err := svc.assignments.AssignProfileToUser(ctx, user.ID, manager.ID, 3)
	require.NoError(t, err)
	require.NotEqual(t, original.ID, renewed.ID)

	profiles, err = svc.assignments.GetUserProfiles(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	require.Equal(t, manager.ID, profiles[0].ID)

	history, err := svc.assignments.ListAssignmentHistory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, renewed.ID, history[0].ID)
	require.True(t, history[0].IsActive())
	require.Equal(t, original.ID, history[1].ID)
	require.NotNil(t, history[1].RevokedAt)
	require.NotNil(t, history[1].RevokedBy)
	require.Equal(t, uint(2), *history[1].RevokedBy)
	require.NotNil(t, history[1].Profile)
	require.Equal(t, "manager", history[1].Profile.Code)
}

func TestRevokeWithoutActiveBindingIsAuditedNoOp(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	user := createTestUser(t, svc.db, "dora")
	manager, err := svc.profiles.GetProfileByCode(ctx, "manager")
	require.NoError(t, err)

	require.NoError(t, svc.assignments.RevokeProfileFromUser(ctx, user.ID, manager.ID, 1))

	logs, err := svc.audit.GetAccessLogs(ctx, AuditFilter{Resource: auditResourceAssignments, Action: auditActionRevoke})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, assignmentNoteNotActive, logs[0].Context["note"])
}

func TestAssignProfileRequiresActiveProfile(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	user := createTestUser(t, svc.db, "eva")
	viewer := createTestProfile(t, svc, "viewer", 4)

	_, err := svc.profiles.SetProfileActive(ctx, 1, viewer.ID, false)
	require.NoError(t, err)

	_, err = svc.assignments.AssignProfileToUser(ctx, user.ID, viewer.ID, 1)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.assignments.AssignProfileToUser(ctx, user.ID, 9999, 1)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.Equal(t, int64(0), countAudit(t, svc, auditResourceAssignments, auditActionAssign))
}

func TestGetUserProfilesSkipsInactiveProfilesAndOrdersByLevel(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	user := createTestUser(t, svc.db, "fabio")

	employee, err := svc.profiles.GetProfileByCode(ctx, "employee")
	require.NoError(t, err)
	manager, err := svc.profiles.GetProfileByCode(ctx, "manager")
	require.NoError(t, err)
	viewer := createTestProfile(t, svc, "viewer", 4)

	for _, id := range []uint{viewer.ID, employee.ID, manager.ID} {
		_, err := svc.assignments.AssignProfileToUser(ctx, user.ID, id, 1)
		require.NoError(t, err)
	}

	profiles, err := svc.assignments.GetUserProfiles(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	require.Equal(t, []string{"manager", "employee", "viewer"}, []string{profiles[0].Code, profiles[1].Code, profiles[2].Code})

	_, err = svc.profiles.SetProfileActive(ctx, 1, viewer.ID, false)
	require.NoError(t, err)

	profiles, err = svc.assignments.GetUserProfiles(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	active, err := svc.assignments.CountActiveAssignments(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), active)
}
