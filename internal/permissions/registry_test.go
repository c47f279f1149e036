package permissions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterPreventsDuplicates(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register(Definition{Resource: "goals", Action: "view", Category: CategoryGoals}))

	err := reg.Register(Definition{Resource: " goals ", Action: "view"})
	require.Error(t, err)
	require.True(t, errors.Is(err, errDuplicateKey))
	require.Equal(t, 1, reg.Len())
}

func TestRegisterValidatesNames(t *testing.T) {
	reg := NewRegistry()

	require.ErrorIs(t, reg.Register(Definition{Action: "view"}), errEmptyResource)
	require.ErrorIs(t, reg.Register(Definition{Resource: "goals"}), errEmptyAction)
	require.ErrorIs(t, reg.Register(Definition{Resource: "Goals", Action: "view"}), errInvalidName)
	require.ErrorIs(t, reg.Register(Definition{Resource: "goals", Action: "view all"}), errInvalidName)
}

func TestRegisterAllCollectsEveryFailure(t *testing.T) {
	reg := NewRegistry()

	err := reg.RegisterAll([]Definition{
		{Resource: "goals", Action: "view"},
		{Resource: "goals", Action: "view"},
		{Resource: "", Action: "edit"},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, errDuplicateKey)
	require.ErrorIs(t, err, errEmptyResource)
	require.Equal(t, 1, reg.Len())
}

func TestRegistryOrderingAndCategories(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterAll([]Definition{
		{Resource: "pdi", Action: "view", Category: CategoryPDI},
		{Resource: "goals", Action: "view", Category: CategoryGoals},
		{Resource: "goals", Action: "approve", Category: CategoryGoals},
	}))

	all := reg.All()
	require.Len(t, all, 3)
	require.Equal(t, "goals:approve", all[0].Key())
	require.Equal(t, "goals:view", all[1].Key())
	require.Equal(t, "pdi:view", all[2].Key())

	goals := reg.ByCategory(CategoryGoals)
	require.Len(t, goals, 2)

	def, ok := reg.Get("pdi", "view")
	require.True(t, ok)
	require.Equal(t, CategoryPDI, def.Category)

	_, ok = reg.Get("pdi", "delete")
	require.False(t, ok)
}

func TestDefaultRegistryIsValid(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	require.Equal(t, len(Definitions()), reg.Len())

	_, ok := reg.Get(ResourceChangeRequests, ActionApprove)
	require.True(t, ok)
	require.NotEmpty(t, reg.ByCategory(CategoryAccess))
}

func TestDefinitionsReturnsCopy(t *testing.T) {
	defs := Definitions()
	defs[0].Resource = "mutated"
	require.NotEqual(t, "mutated", Definitions()[0].Resource)
}
