package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())
}

func TestSettingsValidateRejectsBadFields(t *testing.T) {
	cases := []struct {
		name string
		fn   func(*Settings)
	}{
		{"threads too low", func(s *Settings) { s.Threads = 1 }},
		{"zero min segment size", func(s *Settings) { s.MinSegmentSize = 0 }},
		{"zero segmenting slice width", func(s *Settings) { s.SegmentingSliceWidth = 0 }},
		{"negative segmenting max distance", func(s *Settings) { s.SegmentingMaxDistance = -1 }},
		{"zero calculations slice width", func(s *Settings) { s.CalculationsSliceWidth = 0 }},
		{"zero neighbors count", func(s *Settings) { s.NeighborsCount = 0 }},
		{"zero neighbors max distance", func(s *Settings) { s.NeighborsMaxDistance = 0 }},
		{"zero trunk diameter range", func(s *Settings) { s.TrunkDiameterRange = 0 }},
		{"negative crown diameter difference", func(s *Settings) { s.CrownDiameterDifference = -1 }},
		{"zero lod size scale", func(s *Settings) { s.LODSizeScale = 0 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := DefaultSettings()
			c.fn(s)
			require.Error(t, s.Validate())
		})
	}
}
