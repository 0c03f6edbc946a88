package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/database/testutil"
	"github.com/aidalert/aidalert/internal/models"
)

type testServices struct {
	db            *gorm.DB
	recorder      *HistoryRecorder
	incidents     *IncidentService
	assignments   *AssignmentService
	notifications *NotificationService
	users         *UserService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	recorder, err := NewHistoryRecorder(db)
	require.NoError(t, err)

	notifications, err := NewNotificationService(db)
	require.NoError(t, err)

	incidents, err := NewIncidentService(db, recorder, notifications)
	require.NoError(t, err)

	assignments, err := NewAssignmentService(db, recorder, incidents)
	require.NoError(t, err)

	users, err := NewUserService(db)
	require.NoError(t, err)

	return &testServices{
		db:            db,
		recorder:      recorder,
		incidents:     incidents,
		assignments:   assignments,
		notifications: notifications,
		users:         users,
	}
}

func createTestUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()

	user := models.User{
		Username: username,
		Email:    username + "@aidalert.test",
		Password: "not-a-real-hash",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func reportTestIncident(t *testing.T, s *testServices, reporterID, severity string) *models.Incident {
	t.Helper()

	incident, err := s.incidents.Create(context.Background(), CreateIncidentInput{
		ReporterID:   reporterID,
		IncidentType: models.IncidentTypeMedical,
		Severity:     severity,
		Location:     "12 Harbor Road",
		Description:  "Person collapsed near the entrance",
		ContactPhone: "5550123456",
	})
	require.NoError(t, err)
	return incident
}

func incidentHistoryCount(t *testing.T, db *gorm.DB, incidentID string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.IncidentStatusHistory{}).
		Where("incident_id = ?", incidentID).
		Count(&count).Error)
	return count
}

func responderHistoryCount(t *testing.T, db *gorm.DB, responderID string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.ResponderAvailabilityHistory{}).
		Where("responder_id = ?", responderID).
		Count(&count).Error)
	return count
}
