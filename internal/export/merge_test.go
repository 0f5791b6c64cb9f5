package export

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexanderakbik/GarminExport/internal/domain"
)

func TestMergeFreshValuesWin(t *testing.T) {
	fresh := domain.Record{
		domain.FieldActivityID:    "123",
		domain.FieldSleepDuration: "7.5",
		domain.FieldStressAvg:     "30",
	}
	previous := domain.Record{
		domain.FieldActivityID:    "123",
		domain.FieldSleepDuration: "6.0",
		domain.FieldDailySteps:    "9000",
	}

	merged := Merge(fresh, previous)

	require.Equal(t, "7.5", merged[domain.FieldSleepDuration], "non-blank fresh value is never overwritten")
	require.Equal(t, "30", merged[domain.FieldStressAvg])
	require.Equal(t, "9000", merged[domain.FieldDailySteps], "previous fills keys missing from fresh")
}

func TestMergeFillsBlankFreshValues(t *testing.T) {
	fresh := domain.Record{domain.FieldStressAvg: "  "}
	previous := domain.Record{domain.FieldStressAvg: "42"}

	merged := Merge(fresh, previous)
	require.Equal(t, "42", merged[domain.FieldStressAvg])
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	fresh := domain.Record{domain.FieldActivityID: "1"}
	previous := domain.Record{domain.FieldCalories: "400"}

	merged := Merge(fresh, previous)
	merged[domain.FieldActivityID] = "2"
	merged[domain.FieldCalories] = "0"

	require.Equal(t, "1", fresh[domain.FieldActivityID])
	require.NotContains(t, fresh, domain.FieldCalories)
	require.Equal(t, "400", previous[domain.FieldCalories])
}

func TestMergeWithEmptyPrevious(t *testing.T) {
	fresh := domain.Record{domain.FieldActivityID: "1"}
	require.Equal(t, fresh, Merge(fresh, nil))
	require.Equal(t, fresh, Merge(fresh, domain.Record{}))
}
