package gps

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nmeaLine(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", payload, ck)
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestState_RMCUpdatesFix(t *testing.T) {
	st := NewState()
	updated := st.Feed(now, []byte(nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")))
	require.True(t, updated)

	snap := st.Snapshot(now, 0)
	assert.True(t, snap.Valid)
	require.NotNil(t, snap.LatDeg)
	require.NotNil(t, snap.LonDeg)
	assert.InDelta(t, 48.1173, *snap.LatDeg, 1e-4)
	assert.InDelta(t, 11.5167, *snap.LonDeg, 1e-4)
	require.NotNil(t, snap.SpeedKt)
	assert.InDelta(t, 22.4, *snap.SpeedKt, 1e-9)
	require.NotNil(t, snap.TrackDeg)
	assert.InDelta(t, 84.4, *snap.TrackDeg, 1e-9)
	assert.Nil(t, snap.AltM)
	assert.Equal(t, uint64(1), snap.Sentences)
}

func TestState_VoidRMCIgnored(t *testing.T) {
	st := NewState()
	assert.False(t, st.Feed(now, []byte(nmeaLine("GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"))))
	assert.False(t, st.Snapshot(now, 0).Valid)
}

func TestState_GGAParsesQualitySatsHDOPAltitude(t *testing.T) {
	st := NewState()
	require.True(t, st.Feed(now, []byte(nmeaLine("GNGGA,123519,4807.038,S,01131.000,W,1,08,0.9,545.4,M,46.9,M,,"))))

	snap := st.Snapshot(now, 0)
	require.NotNil(t, snap.FixQuality)
	assert.Equal(t, 1, *snap.FixQuality)
	require.NotNil(t, snap.Satellites)
	assert.Equal(t, 8, *snap.Satellites)
	require.NotNil(t, snap.HDOP)
	assert.InDelta(t, 0.9, *snap.HDOP, 1e-9)
	require.NotNil(t, snap.AltM)
	assert.InDelta(t, 545.4, *snap.AltM, 1e-9)
	assert.Less(t, *snap.LatDeg, 0.0)
	assert.Less(t, *snap.LonDeg, 0.0)
}

func TestState_GGANoFixIgnored(t *testing.T) {
	st := NewState()
	assert.False(t, st.Feed(now, []byte(nmeaLine("GPGGA,123519,,,,,0,00,,,M,,M,,"))))
	assert.Nil(t, st.Snapshot(now, 0).FixQuality)
}

func TestState_SplitChunksAndNoise(t *testing.T) {
	st := NewState()
	stream := "garbage\r\n" + nmeaLine("GPGSV,1,1,00") + nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	updated := false
	for i := 0; i < len(stream); i += 5 {
		end := min(i+5, len(stream))
		if st.Feed(now, []byte(stream[i:end])) {
			updated = true
		}
	}
	assert.True(t, updated)
	assert.Equal(t, uint64(1), st.Snapshot(now, 0).Sentences)
}

func TestState_Stale(t *testing.T) {
	st := NewState()
	require.True(t, st.Feed(now, []byte(nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"))))

	snap := st.Snapshot(now.Add(5*time.Second), 3*time.Second)
	assert.True(t, snap.FixStale)
	assert.InDelta(t, 5.0, snap.FixAgeSec, 1e-9)
	assert.False(t, st.Snapshot(now.Add(time.Second), 3*time.Second).FixStale)
}

func TestService_FeedCallsOnFix(t *testing.T) {
	s := New(Config{Enable: true}, nil)
	var got []Snapshot
	s.OnFix(func(snap Snapshot) { got = append(got, snap) })

	s.Feed(now, []byte(nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")))
	s.Feed(now, []byte(nmeaLine("GPGSA,A,3,,,,,,,,,,,,,1.0,1.0,1.0")))
	require.Len(t, got, 1)
	assert.True(t, got[0].Enabled)

	snap := s.Snapshot(now)
	assert.True(t, snap.Valid)
	assert.Empty(t, snap.State, "no stream started")
}

func TestService_DisabledStartIsNoop(t *testing.T) {
	s := New(Config{}, nil)
	require.NoError(t, s.Start(context.Background()))
	s.Close()
}
