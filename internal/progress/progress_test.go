package progress

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dataset-engine/internal/signal"
)

func TestReporterWrapForwardsEveryElement(t *testing.T) {
	in := make(chan signal.ComputeOutput, 3)
	in <- signal.ComputeOutput{Key: "1", Value: "a"}
	in <- signal.ComputeOutput{Key: "2", Value: "b"}
	in <- signal.ComputeOutput{Key: "3", Value: "c"}
	close(in)

	r := NewReporter("test", 3)
	out := r.Wrap(in)

	var got []signal.ComputeOutput
	for o := range out {
		got = append(got, o)
	}

	require.Len(t, got, 3)
	require.Equal(t, "1", got[0].Key)
	require.Equal(t, "2", got[1].Key)
	require.Equal(t, "3", got[2].Key)
}

func TestReporterWrapClosesOnEmptyInput(t *testing.T) {
	in := make(chan signal.ComputeOutput)
	close(in)

	r := NewReporter("empty", 0)
	out := r.Wrap(in)

	_, ok := <-out
	require.False(t, ok)
}
