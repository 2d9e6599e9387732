package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
)

func TestServiceRequest_RenewalWindow(t *testing.T) {
	tests := []struct {
		name     string
		expiryIn int // days from now
		wantCode string
	}{
		{name: "opens in two days", expiryIn: 91, wantCode: workflow.CodeRenewalWindow},
		{name: "inside window", expiryIn: 89},
		{name: "on expiry day", expiryIn: 0},
		{name: "already expired", expiryIn: -1, wantCode: workflow.CodeRenewalWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			parent := f.approvedParent(2, 1, 0, testNow.AddDate(0, 0, tt.expiryIn))

			child, err := f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindRenewal})
			if tt.wantCode != "" {
				rejection := requireRejection(t, err, tt.wantCode)
				assert.Contains(t, rejection.Details, "window_start")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.KindRenewal, child.Kind)
			assert.Equal(t, model.StatusDraft, child.Status)
			require.NotNil(t, child.ParentApplicationID)
			assert.Equal(t, parent.ID, *child.ParentApplicationID)
			assert.Equal(t, *parent.CertificateNumber, child.ServiceRequest.ParentCertificateNumber)
			assert.Equal(t, 3, child.TotalRooms)
		})
	}
}

func TestServiceRequest_AddRoomsCeiling(t *testing.T) {
	f := newFixture(t)
	parent := f.approvedParent(3, 2, 0, testNow.AddDate(1, 0, 0))

	_, err := f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindAddRooms, SingleBedDelta: 2})
	rejection := requireRejection(t, err, workflow.CodeRoomsInvalid)
	assert.Contains(t, rejection.Message, "total of 7")
	assert.Equal(t, 7, rejection.Details["resulting_total"])

	_, err = f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindAddRooms, SingleBedDelta: -1})
	requireRejection(t, err, workflow.CodeRoomsInvalid)

	child, err := f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindAddRooms, FamilySuiteDelta: 1})
	require.NoError(t, err)
	assert.Equal(t, 6, child.TotalRooms)
	assert.Equal(t, 1, child.FamilySuites)
	assert.Equal(t, 1, child.ServiceRequest.FamilySuiteDelta)
	require.NotNil(t, child.ServiceRequest.InheritedExpiry)
	assert.True(t, child.ServiceRequest.InheritedExpiry.Equal(*parent.CertificateExpiresAt))
}

func TestServiceRequest_DeleteRooms(t *testing.T) {
	f := newFixture(t)
	parent := f.approvedParent(2, 1, 0, testNow.AddDate(1, 0, 0))

	_, err := f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindDeleteRooms, DoubleBedDelta: -2})
	rejection := requireRejection(t, err, workflow.CodeRoomsInvalid)
	assert.Equal(t, "double_bed_delta", rejection.Field)

	_, err = f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindDeleteRooms, SingleBedDelta: -2, DoubleBedDelta: -1})
	requireRejection(t, err, workflow.CodeRoomsInvalid)

	child, err := f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindDeleteRooms, SingleBedDelta: -1})
	require.NoError(t, err)
	assert.Equal(t, 2, child.TotalRooms)
	assert.Equal(t, -1, child.ServiceRequest.SingleBedDelta)
}

func TestServiceRequest_OneActiveChild(t *testing.T) {
	f := newFixture(t)
	parent := f.approvedParent(2, 1, 0, testNow.AddDate(0, 1, 0))

	first, err := f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindRenewal})
	require.NoError(t, err)

	_, err = f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindCancelCertificate})
	rejection := requireRejection(t, err, workflow.CodeActiveServiceReq)
	assert.Equal(t, first.ID, rejection.Details["existing_application_id"])
}

func TestServiceRequest_ParentEligibility(t *testing.T) {
	f := newFixture(t)
	draft := f.draft(nil)

	_, err := f.requests.Create(f.owner, draft.ID, ServiceRequestInput{Kind: model.KindRenewal})
	requireRejection(t, err, workflow.CodeParentNotEligible)

	parent := f.approvedParent(1, 0, 0, testNow.AddDate(0, 1, 0))
	_, err = f.requests.Create(f.stranger, parent.ID, ServiceRequestInput{Kind: model.KindRenewal})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindNewRegistration})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.requests.Create(f.owner, 999, ServiceRequestInput{Kind: model.KindRenewal})
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	require.NoError(t, f.repos.Applications.UpdateColumns(parent.ID, map[string]interface{}{"certificate_cancelled_at": testNow}))
	_, err = f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindRenewal})
	requireRejection(t, err, workflow.CodeParentNotEligible)
}

func TestServiceRequest_RoomsFixedWhileEditing(t *testing.T) {
	f := newFixture(t)
	parent := f.approvedParent(2, 1, 0, testNow.AddDate(1, 0, 0))
	child, err := f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindAddRooms, DoubleBedDelta: 1})
	require.NoError(t, err)

	input := defaultDraft()
	input.SingleBedRooms = 0
	input.PropertyName = "Deodar View Cottage"
	updated, err := f.apps.UpdateDraft(f.owner, child.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Deodar View Cottage", updated.PropertyName)
	assert.Equal(t, 2, updated.SingleBedRooms)
	assert.Equal(t, 4, updated.TotalRooms)
}

func TestServiceRequest_ExpiredCertificateOnlyRenews(t *testing.T) {
	f := newFixture(t)
	parent := f.approvedParent(2, 1, 0, testNow.AddDate(0, 0, -1))

	for _, input := range []ServiceRequestInput{
		{Kind: model.KindAddRooms, DoubleBedDelta: 1},
		{Kind: model.KindDeleteRooms, SingleBedDelta: -1},
		{Kind: model.KindCancelCertificate},
	} {
		_, err := f.requests.Create(f.owner, parent.ID, input)
		rejection := requireRejection(t, err, workflow.CodeParentNotEligible)
		assert.Contains(t, rejection.Message, "expired", input.Kind)
	}

	_, err := f.requests.Create(f.owner, parent.ID, ServiceRequestInput{Kind: model.KindRenewal})
	requireRejection(t, err, workflow.CodeRenewalWindow)
}
