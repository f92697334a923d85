package tern

import (
	"testing"

	"github.com/denismitr/tern/v4/migration"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_createConfigurators(t *testing.T) {
	tt := []struct {
		name                  string
		expectedConfigurators int
		steps                 int
		to                    string
		expectedTo            migration.Version
	}{
		{
			name:                  "zero values",
			expectedConfigurators: 0,
		},
		{
			name:                  "both params",
			expectedConfigurators: 2,
			steps:                 3,
			to:                    "1234567890",
			expectedTo:            1234567890,
		},
		{
			name:                  "only target version",
			expectedConfigurators: 1,
			to:                    "1234567899",
			expectedTo:            1234567899,
		},
		{
			name:                  "only steps",
			expectedConfigurators: 1,
			steps:                 4,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			configurators, err := CreateConfigurators(tc.steps, tc.to)
			require.NoError(t, err)
			assert.Len(t, configurators, tc.expectedConfigurators)

			a := newAction(configurators)

			assert.Equal(t, tc.steps, a.steps)
			assert.Equal(t, tc.expectedTo, a.to)
		})
	}

	t.Run("negative steps", func(t *testing.T) {
		configurators, err := CreateConfigurators(-1, "")
		assert.Nil(t, configurators)
		assert.True(t, errors.Is(err, ErrInvalidSteps))
	})

	t.Run("malformed target version", func(t *testing.T) {
		_, err := CreateConfigurators(0, "12ab")
		assert.True(t, errors.Is(err, migration.ErrInvalidVersionFormat))
	})
}

func Test_action(t *testing.T) {
	t.Parallel()

	t.Run("rollback defaults to a single step", func(t *testing.T) {
		a := newAction(nil)
		assert.Equal(t, 1, a.rollbackPlan().Steps)
		assert.Equal(t, 0, a.migratePlan().Steps)
	})

	t.Run("all steps", func(t *testing.T) {
		a := newAction([]ActionConfigurator{WithSteps(3), WithAllSteps()})
		assert.Equal(t, 0, a.rollbackPlan().Steps)
		assert.Equal(t, 3, a.migratePlan().Steps)
	})

	t.Run("migrate plan", func(t *testing.T) {
		a := newAction([]ActionConfigurator{WithToVersion(1001), WithOutOfOrder()})
		p := a.migratePlan()

		assert.Equal(t, migration.Version(1001), p.To)
		assert.True(t, p.AllowOutOfOrder)
		assert.Nil(t, p.OnIrreversible)
	})

	t.Run("skip irreversible", func(t *testing.T) {
		a := newAction([]ActionConfigurator{WithSkipIrreversible()})
		p := a.rollbackPlan()

		require.NotNil(t, p.OnIrreversible)
		assert.NoError(t, p.OnIrreversible(&migration.IrreversibleOperationError{Version: 1}))
	})
}
