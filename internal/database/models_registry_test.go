package database

import (
	"testing"

	modelspkg "github.com/quantu99/Test-Beincom-BE/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentModels_UsersBeforeDependents(t *testing.T) {
	all := PersistentModels()
	require.Len(t, all, 4)

	_, ok := all[0].(*modelspkg.User)
	assert.True(t, ok, "users must migrate first")

	found := false
	for _, model := range all {
		if _, ok := model.(*modelspkg.PostLike); ok {
			found = true
		}
	}
	assert.True(t, found, "PersistentModels should include PostLike")
}
