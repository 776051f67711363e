package database_test

import (
	"context"
	"testing"

	"github.com/agriconnectke/marketplace-service/internal/pkg/database"
	"github.com/agriconnectke/marketplace-service/internal/pkg/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%maize%", database.ContainsPattern("maize"))
	assert.Equal(t, `%50\% off%`, database.ContainsPattern("50% off"))
	assert.Equal(t, `%grade\_a%`, database.ContainsPattern("grade_a"))
	assert.Equal(t, `%c:\\farm%`, database.ContainsPattern(`c:\farm`))
}

func TestContainsPatternMatchesLiterally(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, "CREATE TABLE words (w TEXT NOT NULL)")
	require.NoError(t, err)
	for _, w := range []string{"50% off maize", "grade_a beans", "gradeXa beans", `c:\farm`} {
		_, err := db.ExecContext(ctx, db.Rebind("INSERT INTO words (w) VALUES (?)"), w)
		require.NoError(t, err)
	}

	match := func(term string) []string {
		var out []string
		require.NoError(t, db.SelectContext(ctx, &out,
			db.Rebind("SELECT w FROM words WHERE w LIKE ?"+database.LikeEscape+" ORDER BY w"), database.ContainsPattern(term)))
		return out
	}
	assert.Equal(t, []string{"50% off maize"}, match("%"))
	assert.Equal(t, []string{"grade_a beans"}, match("_"))
	assert.Equal(t, []string{`c:\farm`}, match(`\`))
	assert.Len(t, match("beans"), 2)
}
