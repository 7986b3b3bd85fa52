package gormrepo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brokenrx/rx-auth/rx"
	"github.com/brokenrx/rx-auth/rx/gormrepo"
	"github.com/brokenrx/rx-auth/users"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) (*gormrepo.Repo, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&users.User{}, &rx.Prescription{}))

	return gormrepo.New(db), db
}

func createUser(t *testing.T, db *gorm.DB, username string) int64 {
	t.Helper()

	user := &users.User{Username: username, PasswordHash: "x", Role: users.RoleUser}
	require.NoError(t, db.Create(user).Error)
	return user.ID
}

func TestCreateDefaults(t *testing.T) {
	repo, db := newTestRepo(t)
	userID := createUser(t, db, "alice")

	p := &rx.Prescription{UserID: userID, FileName: "scan.pdf"}
	require.NoError(t, repo.Create(context.Background(), p))

	require.NotEmpty(t, p.ID)
	require.Equal(t, rx.StatusUnchecked, p.Status)
	require.False(t, p.IsDispensed)

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
	require.Equal(t, userID, got.UserID)
	require.Equal(t, "scan.pdf", got.FileName)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "no-such-id")
	require.ErrorIs(t, err, rx.ErrNotFound)
}

func TestListByUserNewestFirst(t *testing.T) {
	repo, db := newTestRepo(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	base := time.Now().Add(-time.Hour)
	for i, fileName := range []string{"first.pdf", "second.pdf", "third.pdf"} {
		p := &rx.Prescription{
			UserID:    alice,
			FileName:  fileName,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(context.Background(), p))
	}
	require.NoError(t, repo.Create(context.Background(), &rx.Prescription{UserID: bob, FileName: "other.pdf"}))

	list, err := repo.ListByUser(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "third.pdf", list[0].FileName)
	require.Equal(t, "first.pdf", list[2].FileName)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestUpdateStatus(t *testing.T) {
	repo, db := newTestRepo(t)
	userID := createUser(t, db, "alice")

	newPrescription := func(t *testing.T) *rx.Prescription {
		p := &rx.Prescription{UserID: userID, FileName: "scan.pdf"}
		require.NoError(t, repo.Create(context.Background(), p))
		return p
	}

	t.Run("moves through the lifecycle", func(t *testing.T) {
		p := newPrescription(t)

		for _, status := range []rx.Status{rx.StatusApproved, rx.StatusInRoute, rx.StatusDelivered} {
			updated, err := repo.UpdateStatus(context.Background(), p.ID, status)
			require.NoError(t, err)
			require.Equal(t, status, updated.Status)
		}
	})

	t.Run("delivered is final", func(t *testing.T) {
		p := newPrescription(t)
		_, err := repo.UpdateStatus(context.Background(), p.ID, rx.StatusDelivered)
		require.NoError(t, err)

		_, err = repo.UpdateStatus(context.Background(), p.ID, rx.StatusApproved)
		require.ErrorIs(t, err, rx.ErrStatusFinal)
	})

	t.Run("rejected is final", func(t *testing.T) {
		p := newPrescription(t)
		_, err := repo.UpdateStatus(context.Background(), p.ID, rx.StatusRejected)
		require.NoError(t, err)

		_, err = repo.UpdateStatus(context.Background(), p.ID, rx.StatusInRoute)
		require.ErrorIs(t, err, rx.ErrStatusFinal)
	})

	t.Run("unknown status", func(t *testing.T) {
		p := newPrescription(t)
		_, err := repo.UpdateStatus(context.Background(), p.ID, rx.Status("shipped"))
		require.ErrorIs(t, err, rx.ErrInvalidStatus)
	})

	t.Run("unknown prescription", func(t *testing.T) {
		_, err := repo.UpdateStatus(context.Background(), "no-such-id", rx.StatusApproved)
		require.ErrorIs(t, err, rx.ErrNotFound)
	})
}

func TestCountByUsername(t *testing.T) {
	repo, db := newTestRepo(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	for range 3 {
		require.NoError(t, repo.Create(context.Background(), &rx.Prescription{UserID: alice, FileName: "a.pdf"}))
	}
	require.NoError(t, repo.Create(context.Background(), &rx.Prescription{UserID: bob, FileName: "b.pdf"}))

	counts, err := repo.CountByUsername(context.Background())
	require.NoError(t, err)

	byUser := map[string]int64{}
	for _, c := range counts {
		byUser[c.Username] = c.Count
	}
	require.Equal(t, int64(3), byUser["alice"])
	require.Equal(t, int64(1), byUser["bob"])
}
