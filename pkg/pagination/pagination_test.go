package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/pkg/db/dbtest"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
)

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2026, 10, 1, 9, 30, 0, 123, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(c.String())
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, parsed.CreatedAt.Equal(c.CreatedAt))
	assert.Equal(t, c.ID, parsed.ID)
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	c, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, c)

	for _, bad := range []string{"!!!", "bm90LWEtY3Vyc29y", Cursor{ID: uuid.New()}.String()[:10]} {
		_, err = ParseCursor(bad)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%q: %v", bad, err)
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(500))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestBuildPage(t *testing.T) {
	now := time.Now().UTC()
	rows := []Cursor{
		{CreatedAt: now, ID: uuid.New()},
		{CreatedAt: now.Add(-time.Minute), ID: uuid.New()},
		{CreatedAt: now.Add(-2 * time.Minute), ID: uuid.New()},
	}
	identity := func(c Cursor) Cursor { return c }

	page := BuildPage(rows, 2, identity)
	require.Len(t, page.Items, 2)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].ID, next.ID)

	last := BuildPage(rows[:1], 2, identity)
	assert.Empty(t, last.NextCursor)

	empty := BuildPage[Cursor](nil, 2, identity)
	assert.NotNil(t, empty.Items)
}

func TestKeysetBuildsOrderedQuery(t *testing.T) {
	conn := dbtest.Open(t).Session(&gorm.Session{DryRun: true})
	cursor := &Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}

	var rows []models.Notification
	stmt := Keyset(conn.Model(&models.Notification{}), cursor, 10).Find(&rows).Statement
	sql := stmt.SQL.String()
	assert.Contains(t, sql, "(created_at, id) < (")
	assert.Contains(t, sql, "ORDER BY created_at DESC, id DESC")
	assert.Contains(t, sql, "LIMIT 11")

	stmt = Keyset(conn.Model(&models.Notification{}), nil, 0).Find(&rows).Statement
	assert.NotContains(t, stmt.SQL.String(), "created_at, id) <")
}
