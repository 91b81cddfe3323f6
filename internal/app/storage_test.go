package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/pkg/logger"
)

func TestOpenMemoryRepositories(t *testing.T) {
	repos, err := OpenRepositories(config.DatabaseConfig{Driver: "memory"}, logger.Nop())
	require.NoError(t, err)
	defer repos.Close()

	require.NoError(t, repos.Health.PingContext(context.Background()))

	exists, err := repos.Doctors.Exists(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, exists)

	rows, err := repos.Availability.ListByDoctor(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestOpenRepositoriesUnknownDriver(t *testing.T) {
	_, err := OpenRepositories(config.DatabaseConfig{Driver: "sqlite"}, logger.Nop())
	assert.Error(t, err)
}
