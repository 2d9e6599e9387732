package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupApplicationTest(t *testing.T) (*gorm.DB, ApplicationRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	return testDB, NewApplicationRepository(testDB)
}

func draftApplication() *model.Application {
	return &model.Application{
		Kind:           model.KindNewRegistration,
		Status:         model.StatusDraft,
		OwnerID:        1,
		OwnerName:      "Asha Devi",
		PropertyName:   "Pine View",
		District:       "Shimla",
		Category:       model.CategorySilver,
		LocationType:   model.LocationGP,
		SingleBedRooms: 1,
		DoubleBedRooms: 1,
		TotalRooms:     50, // ignored
	}
}

func TestApplicationRepository_Create(t *testing.T) {
	testDB, repo := setupApplicationTest(t)
	defer db.CleanupTestDB(testDB)

	app := draftApplication()
	require.NoError(t, repo.Create(app))
	assert.NotZero(t, app.ID)
	assert.Equal(t, fmt.Sprintf("HS/%d/%06d", app.CreatedAt.Year(), app.ID), app.ApplicationNumber)
	assert.Equal(t, 2, app.TotalRooms)

	found, err := repo.FindByID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ApplicationNumber, found.ApplicationNumber)
	assert.Equal(t, 2, found.TotalRooms)
}

func TestApplicationRepository_UpdateDraft(t *testing.T) {
	testDB, repo := setupApplicationTest(t)
	defer db.CleanupTestDB(testDB)

	app := draftApplication()
	require.NoError(t, repo.Create(app))

	app.FamilySuites = 2
	app.TotalRooms = 1
	app.Status = model.StatusApproved // not an owner column
	require.NoError(t, repo.UpdateDraft(app))

	found, err := repo.FindByID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, found.TotalRooms)
	assert.Equal(t, model.StatusDraft, found.Status)
}

func TestApplicationRepository_ApplyTransition(t *testing.T) {
	testDB, repo := setupApplicationTest(t)
	defer db.CleanupTestDB(testDB)

	app := draftApplication()
	require.NoError(t, repo.Create(app))

	next := *app
	next.Status = model.StatusSubmitted
	next.Version = 1
	rows, err := repo.ApplyTransition(&next, model.StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// stale writer still believes the status is draft
	stale := *app
	stale.Status = model.StatusSubmitted
	rows, err = repo.ApplyTransition(&stale, model.StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	found, err := repo.FindByID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, found.Status)
	assert.Equal(t, 1, found.Version)
}

func TestApplicationRepository_FindActiveChild(t *testing.T) {
	testDB, repo := setupApplicationTest(t)
	defer db.CleanupTestDB(testDB)

	parent := draftApplication()
	require.NoError(t, repo.Create(parent))

	_, err := repo.FindActiveChild(parent.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	done := draftApplication()
	done.Kind = model.KindRenewal
	done.ParentApplicationID = &parent.ID
	done.Status = model.StatusApproved
	require.NoError(t, repo.Create(done))

	_, err = repo.FindActiveChild(parent.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	active := draftApplication()
	active.Kind = model.KindAddRooms
	active.ParentApplicationID = &parent.ID
	require.NoError(t, repo.Create(active))

	child, err := repo.FindActiveChild(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, child.ID)
}

func TestApplicationRepository_List(t *testing.T) {
	testDB, repo := setupApplicationTest(t)
	defer db.CleanupTestDB(testDB)

	for i, district := range []string{"Shimla", "Shimla", "Kullu"} {
		app := draftApplication()
		app.District = district
		if i == 0 {
			app.Status = model.StatusSubmitted
		}
		require.NoError(t, repo.Create(app))
	}

	apps, total, err := repo.List(ApplicationFilter{District: "shimla"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, apps, 2)

	apps, total, err = repo.List(ApplicationFilter{Statuses: []model.ApplicationStatus{model.StatusSubmitted}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.StatusSubmitted, apps[0].Status)
}

func TestApplicationRepository_UpdateColumns(t *testing.T) {
	testDB, repo := setupApplicationTest(t)
	defer db.CleanupTestDB(testDB)

	app := draftApplication()
	require.NoError(t, repo.Create(app))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateColumns(app.ID, map[string]interface{}{"superseded_at": now}))

	found, err := repo.FindByID(app.ID)
	require.NoError(t, err)
	require.NotNil(t, found.SupersededAt)
	assert.True(t, now.Equal(*found.SupersededAt))
	assert.Equal(t, 2, found.TotalRooms)
}
