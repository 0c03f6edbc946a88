package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidalert/aidalert/internal/models"
	apperrors "github.com/aidalert/aidalert/pkg/errors"
)

func TestEnsureResponderProfileLazyCreate(t *testing.T) {
	s := newTestServices(t)
	user := createTestUser(t, s.db, "medic1", models.RoleResponder)

	responder, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(responder.ResponderID, "RES-"), responder.ResponderID)
	assert.Equal(t, models.ResponderAvailable, responder.Status)
	assert.Equal(t, "Pending", responder.Phone)
	assert.EqualValues(t, 1, responderHistoryCount(t, s.db, responder.ID))

	// A second call returns the existing profile without a new history row.
	again, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, responder.ID, again.ID)
	assert.EqualValues(t, 1, responderHistoryCount(t, s.db, responder.ID))
}

func TestAcceptAssignsAndGoesOnDuty(t *testing.T) {
	s := newTestServices(t)
	reporter := createTestUser(t, s.db, "reporter", models.RoleUser)
	user := createTestUser(t, s.db, "medic1", models.RoleResponder)

	responder, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)
	incident := reportTestIncident(t, s, reporter.ID, models.SeverityMedium)

	accepted, err := s.assignments.Accept(context.Background(), user.ID, incident.ID)
	require.NoError(t, err)

	assert.Equal(t, models.IncidentEnRoute, accepted.Status)
	require.NotNil(t, accepted.AssignedResponderID)
	assert.Equal(t, responder.ID, *accepted.AssignedResponderID)

	var reloaded models.Responder
	require.NoError(t, s.db.First(&reloaded, "id = ?", responder.ID).Error)
	assert.Equal(t, models.ResponderOnDuty, reloaded.Status)

	// One incident row (beyond open) and one availability row (beyond the
	// profile creation row).
	assert.EqualValues(t, 2, incidentHistoryCount(t, s.db, incident.ID))
	assert.EqualValues(t, 2, responderHistoryCount(t, s.db, responder.ID))
}

func TestAcceptAlreadyAssigned(t *testing.T) {
	s := newTestServices(t)
	reporter := createTestUser(t, s.db, "reporter", models.RoleUser)
	first := createTestUser(t, s.db, "medic1", models.RoleResponder)
	second := createTestUser(t, s.db, "medic2", models.RoleResponder)

	_, err := s.assignments.EnsureResponderProfile(context.Background(), first)
	require.NoError(t, err)
	loser, err := s.assignments.EnsureResponderProfile(context.Background(), second)
	require.NoError(t, err)

	incident := reportTestIncident(t, s, reporter.ID, models.SeverityMedium)

	_, err = s.assignments.Accept(context.Background(), first.ID, incident.ID)
	require.NoError(t, err)

	historyBefore := incidentHistoryCount(t, s.db, incident.ID)

	_, err = s.assignments.Accept(context.Background(), second.ID, incident.ID)
	require.ErrorIs(t, err, apperrors.ErrAlreadyAssigned)

	assert.Equal(t, historyBefore, incidentHistoryCount(t, s.db, incident.ID))

	var reloaded models.Responder
	require.NoError(t, s.db.First(&reloaded, "id = ?", loser.ID).Error)
	assert.Equal(t, models.ResponderAvailable, reloaded.Status, "losing responder must stay untouched")
}

func TestAcceptResponderBusy(t *testing.T) {
	s := newTestServices(t)
	reporter := createTestUser(t, s.db, "reporter", models.RoleUser)
	user := createTestUser(t, s.db, "medic1", models.RoleResponder)

	_, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)

	firstIncident := reportTestIncident(t, s, reporter.ID, models.SeverityMedium)
	secondIncident := reportTestIncident(t, s, reporter.ID, models.SeverityMedium)

	_, err = s.assignments.Accept(context.Background(), user.ID, firstIncident.ID)
	require.NoError(t, err)

	_, err = s.assignments.Accept(context.Background(), user.ID, secondIncident.ID)
	require.ErrorIs(t, err, apperrors.ErrResponderBusy)

	var reloaded models.Incident
	require.NoError(t, s.db.First(&reloaded, "id = ?", secondIncident.ID).Error)
	assert.Equal(t, models.IncidentOpen, reloaded.Status)
	assert.Nil(t, reloaded.AssignedResponderID)
	assert.EqualValues(t, 1, incidentHistoryCount(t, s.db, secondIncident.ID))
}

func TestAdvanceFullPipeline(t *testing.T) {
	s := newTestServices(t)
	reporter := createTestUser(t, s.db, "reporter", models.RoleUser)
	user := createTestUser(t, s.db, "medic1", models.RoleResponder)

	responder, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)
	incident := reportTestIncident(t, s, reporter.ID, models.SeverityHigh)

	_, err = s.assignments.Accept(context.Background(), user.ID, incident.ID)
	require.NoError(t, err)

	for _, token := range []string{"on-scene", "providing-aid", "transporting", "completed"} {
		_, err = s.assignments.AdvanceByResponder(context.Background(), user.ID, incident.ID, token, "", AdvanceFlags{})
		require.NoError(t, err, token)
	}

	var reloadedIncident models.Incident
	require.NoError(t, s.db.First(&reloadedIncident, "id = ?", incident.ID).Error)
	assert.Equal(t, models.IncidentResolved, reloadedIncident.Status)
	assert.NotNil(t, reloadedIncident.ResolvedAt)

	// open + en_route + 4 advances = 6 rows, 5 beyond the initial open row.
	assert.EqualValues(t, 6, incidentHistoryCount(t, s.db, incident.ID))

	var reloadedResponder models.Responder
	require.NoError(t, s.db.First(&reloadedResponder, "id = ?", responder.ID).Error)
	assert.Equal(t, models.ResponderAvailable, reloadedResponder.Status)
	assert.EqualValues(t, 1, reloadedResponder.HandledIncidents)
}

func TestAdvanceFlagsAppendedToNotes(t *testing.T) {
	s := newTestServices(t)
	reporter := createTestUser(t, s.db, "reporter", models.RoleUser)
	user := createTestUser(t, s.db, "medic1", models.RoleResponder)

	_, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)
	incident := reportTestIncident(t, s, reporter.ID, models.SeverityHigh)

	_, err = s.assignments.Accept(context.Background(), user.ID, incident.ID)
	require.NoError(t, err)

	_, err = s.assignments.AdvanceByResponder(context.Background(), user.ID, incident.ID, "on-scene",
		"Two patients found", AdvanceFlags{BackupRequested: true, FamilyNotified: true})
	require.NoError(t, err)

	history, err := s.incidents.History(context.Background(), incident.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, "Two patients found\n | Actions: Backup Requested, Family Notified", history[0].Notes)

	// Flags alone become the whole note.
	_, err = s.assignments.AdvanceByResponder(context.Background(), user.ID, incident.ID, "providing-aid",
		"", AdvanceFlags{EquipmentNeeded: true})
	require.NoError(t, err)

	history, err = s.incidents.History(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, " | Actions: Additional Equipment Needed", history[0].Notes)
}

func TestAdvanceRequiresAssignment(t *testing.T) {
	s := newTestServices(t)
	reporter := createTestUser(t, s.db, "reporter", models.RoleUser)
	assignee := createTestUser(t, s.db, "medic1", models.RoleResponder)
	stranger := createTestUser(t, s.db, "medic2", models.RoleResponder)

	_, err := s.assignments.EnsureResponderProfile(context.Background(), assignee)
	require.NoError(t, err)
	_, err = s.assignments.EnsureResponderProfile(context.Background(), stranger)
	require.NoError(t, err)

	incident := reportTestIncident(t, s, reporter.ID, models.SeverityMedium)
	_, err = s.assignments.Accept(context.Background(), assignee.ID, incident.ID)
	require.NoError(t, err)

	_, err = s.assignments.AdvanceByResponder(context.Background(), stranger.ID, incident.ID, "on-scene", "", AdvanceFlags{})
	require.ErrorIs(t, err, apperrors.ErrNotAssigned)
}

func TestAdvanceRejectsUnknownToken(t *testing.T) {
	s := newTestServices(t)
	reporter := createTestUser(t, s.db, "reporter", models.RoleUser)
	user := createTestUser(t, s.db, "medic1", models.RoleResponder)

	_, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)
	incident := reportTestIncident(t, s, reporter.ID, models.SeverityMedium)

	_, err = s.assignments.Accept(context.Background(), user.ID, incident.ID)
	require.NoError(t, err)

	_, err = s.assignments.AdvanceByResponder(context.Background(), user.ID, incident.ID, "finished", "", AdvanceFlags{})
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestAdminAssignAdvancesOpenIncident(t *testing.T) {
	s := newTestServices(t)
	reporter := createTestUser(t, s.db, "reporter", models.RoleUser)
	user := createTestUser(t, s.db, "medic1", models.RoleResponder)

	responder, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)
	incident := reportTestIncident(t, s, reporter.ID, models.SeverityMedium)

	assigned, err := s.assignments.AdminAssign(context.Background(), incident.ID, responder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentEnRoute, assigned.Status)
	require.NotNil(t, assigned.AssignedResponderID)
	assert.Equal(t, responder.ID, *assigned.AssignedResponderID)

	queue, err := s.incidents.ListOpenUnassigned(context.Background())
	require.NoError(t, err)
	assert.Empty(t, queue, "assigned incident must leave the open queue")
}

func TestUnassignLeavesStatusesUntouched(t *testing.T) {
	s := newTestServices(t)
	reporter := createTestUser(t, s.db, "reporter", models.RoleUser)
	user := createTestUser(t, s.db, "medic1", models.RoleResponder)

	responder, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)
	incident := reportTestIncident(t, s, reporter.ID, models.SeverityMedium)

	_, err = s.assignments.Accept(context.Background(), user.ID, incident.ID)
	require.NoError(t, err)

	historyBefore := incidentHistoryCount(t, s.db, incident.ID)

	unassigned, err := s.assignments.Unassign(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssignedResponderID)
	assert.Equal(t, models.IncidentEnRoute, unassigned.Status)
	assert.Equal(t, historyBefore, incidentHistoryCount(t, s.db, incident.ID))

	var reloaded models.Responder
	require.NoError(t, s.db.First(&reloaded, "id = ?", responder.ID).Error)
	assert.Equal(t, models.ResponderOnDuty, reloaded.Status)
}

func TestToggleAvailability(t *testing.T) {
	s := newTestServices(t)
	user := createTestUser(t, s.db, "medic1", models.RoleResponder)

	responder, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)

	toggled, err := s.assignments.ToggleAvailability(context.Background(), user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.ResponderUnavailable, toggled.Status)
	assert.EqualValues(t, 2, responderHistoryCount(t, s.db, responder.ID))

	toggled, err = s.assignments.ToggleAvailability(context.Background(), user.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.ResponderAvailable, toggled.Status)

	// Re-requesting the current state records no history.
	_, err = s.assignments.ToggleAvailability(context.Background(), user.ID, true)
	require.NoError(t, err)
	assert.EqualValues(t, 3, responderHistoryCount(t, s.db, responder.ID))
}

func TestToggleAvailabilityWhileOnDuty(t *testing.T) {
	s := newTestServices(t)
	reporter := createTestUser(t, s.db, "reporter", models.RoleUser)
	user := createTestUser(t, s.db, "medic1", models.RoleResponder)

	responder, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)
	incident := reportTestIncident(t, s, reporter.ID, models.SeverityMedium)

	_, err = s.assignments.Accept(context.Background(), user.ID, incident.ID)
	require.NoError(t, err)

	_, err = s.assignments.ToggleAvailability(context.Background(), user.ID, false)
	require.ErrorIs(t, err, apperrors.ErrResponderOnDuty)

	var reloaded models.Responder
	require.NoError(t, s.db.First(&reloaded, "id = ?", responder.ID).Error)
	assert.Equal(t, models.ResponderOnDuty, reloaded.Status)
}

func TestActiveAssignmentAndStats(t *testing.T) {
	s := newTestServices(t)
	reporter := createTestUser(t, s.db, "reporter", models.RoleUser)
	user := createTestUser(t, s.db, "medic1", models.RoleResponder)

	_, err := s.assignments.EnsureResponderProfile(context.Background(), user)
	require.NoError(t, err)

	active, err := s.assignments.ActiveAssignment(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	incident := reportTestIncident(t, s, reporter.ID, models.SeverityMedium)
	reportTestIncident(t, s, reporter.ID, models.SeverityLow)

	_, err = s.assignments.Accept(context.Background(), user.ID, incident.ID)
	require.NoError(t, err)

	active, err = s.assignments.ActiveAssignment(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, incident.ID, active.ID)

	stats, err := s.assignments.Stats(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResponderOnDuty, stats.Status)
	assert.Equal(t, incident.ID, stats.ActiveIncidentID)
	assert.EqualValues(t, 1, stats.OpenIncidents)
}
