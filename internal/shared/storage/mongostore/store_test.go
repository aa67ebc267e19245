package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore 创建测试用 Store，使用独立数据库避免污染
func testStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	s, err := NewStore(uri, "tragic_bricks_test")
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	ctx := context.Background()
	if err := s.db.Drop(ctx); err != nil {
		t.Fatalf("Failed to drop test database: %v", err)
	}
	if err := s.ensureIndexes(ctx); err != nil {
		t.Fatalf("Failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		s.db.Drop(context.Background())
		s.Close()
	})

	return s
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func seedLocation(t *testing.T, s *Store, id, name string, typ model.LocationType, created time.Time) *model.Location {
	t.Helper()
	loc := &model.Location{
		ID:             id,
		Name:           name,
		Description:    "A long enough description of " + name,
		Type:           typ,
		Address:        model.Address{City: "Salem", State: "MA", Country: "USA"},
		Coordinates:    model.Coordinates{Latitude: 42.5, Longitude: -70.9},
		Images:         []string{"https://img.example.com/" + id + ".jpg"},
		DiscoveredByID: "usr-1",
		CreatedAt:      created,
	}
	require.NoError(t, s.CreateLocation(context.Background(), loc))
	return loc
}

func TestUserCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u := &model.User{ID: "usr-1", Email: "a@example.com", Username: "alice", PasswordHash: "h", Role: model.UserRoleUser, CreatedAt: now()}
	require.NoError(t, s.CreateUser(ctx, u))

	dup := &model.User{ID: "usr-2", Email: "a@example.com", Username: "other", CreatedAt: now()}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), storage.ErrDuplicate)

	got, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "h", got.PasswordHash)

	missing, err := s.GetUserByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	got.ProfilePicture = "https://img.example.com/me.png"
	require.NoError(t, s.UpdateUserProfile(ctx, got))
	got, _ = s.GetUserByUsername(ctx, "alice")
	assert.Equal(t, "https://img.example.com/me.png", got.ProfilePicture)

	users, err := s.GetUsersByIDs(ctx, []string{"usr-1", "usr-404"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestLocationListFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := now()

	seedLocation(t, s, "loc-1", "Old Mill", model.LocationTypeAbandoned, base.Add(-2*time.Hour))
	seedLocation(t, s, "loc-2", "Grey Manor", model.LocationTypeHaunted, base.Add(-1*time.Hour))
	seedLocation(t, s, "loc-3", "Mill (East)", model.LocationTypeHaunted, base)

	all, err := s.ListLocations(ctx, model.LocationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "loc-3", all[0].ID)

	oldest, err := s.ListLocations(ctx, model.LocationFilter{Sort: model.SortOldest})
	require.NoError(t, err)
	assert.Equal(t, "loc-1", oldest[0].ID)

	haunted, err := s.ListLocations(ctx, model.LocationFilter{Type: model.LocationTypeHaunted})
	require.NoError(t, err)
	assert.Len(t, haunted, 2)

	mill, err := s.ListLocations(ctx, model.LocationFilter{Search: "MILL"})
	require.NoError(t, err)
	assert.Len(t, mill, 2)

	// 正则元字符按字面量匹配
	paren, err := s.ListLocations(ctx, model.LocationFilter{Search: "(east)"})
	require.NoError(t, err)
	require.Len(t, paren, 1)
	assert.Equal(t, "loc-3", paren[0].ID)

	byCity, err := s.ListLocations(ctx, model.LocationFilter{Search: "salem", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, byCity, 2)

	require.NoError(t, s.SetLocationRating(ctx, "loc-1", 4.5, 2))
	rated, err := s.ListLocations(ctx, model.LocationFilter{Sort: model.SortRating})
	require.NoError(t, err)
	assert.Equal(t, "loc-1", rated[0].ID)
	assert.Equal(t, 4.5, rated[0].AverageRating)

	byReviews, err := s.ListLocations(ctx, model.LocationFilter{Sort: model.SortReviews})
	require.NoError(t, err)
	assert.Equal(t, 2, byReviews[0].ReviewCount)

	assert.ErrorIs(t, s.SetLocationRating(ctx, "loc-404", 1, 1), storage.ErrNotFound)
}

func TestMigrateLegacyLocationTypes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	seedLocation(t, s, "loc-1", "Old Mill", model.LocationType("unknown"), now())
	seedLocation(t, s, "loc-2", "Grey Manor", model.LocationTypeHaunted, now())

	n, err := s.MigrateLegacyLocationTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetLocation(ctx, "loc-1")
	require.NoError(t, err)
	assert.Equal(t, model.LocationTypeMysterious, got.Type)
}

func TestReviewUniqueness(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	r1 := &model.Review{ID: "rev-1", LocationID: "loc-1", UserID: "usr-1", Rating: 4, Comment: "spooky place", CreatedAt: now()}
	require.NoError(t, s.CreateReview(ctx, r1))

	r2 := &model.Review{ID: "rev-2", LocationID: "loc-1", UserID: "usr-1", Rating: 2, Comment: "changed my mind", CreatedAt: now()}
	assert.ErrorIs(t, s.CreateReview(ctx, r2), storage.ErrDuplicate)

	r3 := &model.Review{ID: "rev-3", LocationID: "loc-1", UserID: "usr-2", Rating: 2, Comment: "not so spooky", CreatedAt: now()}
	require.NoError(t, s.CreateReview(ctx, r3))

	ratings, err := s.ListRatings(ctx, "loc-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{4, 2}, ratings)

	r1.Rating = 5
	require.NoError(t, s.UpdateReview(ctx, r1))
	got, err := s.GetReview(ctx, "rev-1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)

	byUser, err := s.ListReviewsByUser(ctx, "usr-2")
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	require.NoError(t, s.DeleteReview(ctx, "rev-1"))
	assert.ErrorIs(t, s.DeleteReview(ctx, "rev-1"), storage.ErrNotFound)

	byLoc, err := s.ListReviewsByLocation(ctx, "loc-1")
	require.NoError(t, err)
	assert.Len(t, byLoc, 1)
}

func TestWithTxRollback(t *testing.T) {
	if os.Getenv("MONGO_TEST_REPLSET") == "" {
		t.Skip("transactions need a replica set; set MONGO_TEST_REPLSET=1")
	}
	s := testStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		r := &model.Review{ID: "rev-1", LocationID: "loc-1", UserID: "usr-1", Rating: 4, Comment: "spooky place", CreatedAt: now()}
		if err := s.CreateReview(ctx, r); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetReview(ctx, "rev-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReports(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateReport(ctx, &model.Report{ID: "rep-1", LocationName: "Old Mill", ReportType: model.ReportTypeClosed, Status: model.ReportStatusOpen, CreatedAt: now().Add(-time.Minute)}))
	require.NoError(t, s.CreateReport(ctx, &model.Report{ID: "rep-2", LocationName: "Grey Manor", ReportType: model.ReportTypeOther, Status: model.ReportStatusOpen, CreatedAt: now()}))

	reports, err := s.ListReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "rep-2", reports[0].ID)
}
