package repository

import (
	"testing"
	"time"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTxn(appID uint, ref string, status model.TransactionStatus) *model.PaymentTransaction {
	return &model.PaymentTransaction{
		ApplicationID:     appID,
		AppRefNo:          ref,
		DeptRefNo:         "HS-1",
		DDOCode:           "SML00-532",
		TotalAmount:       5000,
		Head1:             "1452-00-800-01",
		Amount1:           5000,
		ActualFee:         5000,
		TransactionStatus: status,
	}
}

func TestPaymentRepository_Lookups(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)
	repo := NewPaymentRepository(testDB)

	require.NoError(t, repo.Create(newTxn(1, "HPT-A", model.TransactionFailed)))
	require.NoError(t, repo.Create(newTxn(1, "HPT-B", model.TransactionInitiated)))
	require.NoError(t, repo.Create(newTxn(2, "HPT-C", model.TransactionSuccess)))

	assert.Error(t, repo.Create(newTxn(3, "HPT-A", model.TransactionInitiated)), "app ref no is unique")

	found, err := repo.FindByAppRefNo("HPT-B")
	require.NoError(t, err)
	assert.Equal(t, uint(1), found.ApplicationID)

	active, err := repo.FindActiveByApplication(1)
	require.NoError(t, err)
	assert.Equal(t, "HPT-B", active.AppRefNo)

	_, err = repo.FindActiveByApplication(2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	latest, err := repo.FindLatestByApplication(1)
	require.NoError(t, err)
	assert.Equal(t, "HPT-B", latest.AppRefNo)

	stale, err := repo.FindStaleInitiated(time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "HPT-B", stale[0].AppRefNo)

	none, err := repo.FindStaleInitiated(time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	// a fresh double verification holds the attempt back until the next window
	verifiedAt := time.Now()
	found.CreatedAt = verifiedAt.Add(-time.Hour)
	found.VerifiedAt = &verifiedAt
	require.NoError(t, repo.Save(found))
	stale, err = repo.FindStaleInitiated(time.Now().Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, stale)
	stale, err = repo.FindStaleInitiated(time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, stale, 1)
}
