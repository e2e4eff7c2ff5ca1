package ais

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vdm(talker string, total, index int, seq, payload string) string {
	body := fmt.Sprintf("%s,%d,%d,%s,A,%s,0", talker, total, index, seq, payload)
	ck := byte(0)
	for i := 0; i < len(body); i++ {
		ck ^= body[i]
	}
	return fmt.Sprintf("!%s*%02X\r\n", body, ck)
}

func feedAll(r *Reassembler, sentences ...string) []Payload {
	var out []Payload
	for _, s := range sentences {
		out = append(out, r.Feed([]byte(s))...)
	}
	return out
}

func TestReassembler_SingleFragment(t *testing.T) {
	r := NewReassembler()
	got := r.Feed([]byte(vdm("AIVDM", 1, 1, "", "13aEOK?P00PD2wVMdLDRhgvL289?")))
	require.Len(t, got, 1)
	assert.Equal(t, "13aEOK?P00PD2wVMdLDRhgvL289?", got[0].Armored())
	assert.False(t, r.Pending())
}

func TestReassembler_TwoFragments(t *testing.T) {
	r := NewReassembler()
	got := feedAll(r,
		vdm("AIVDM", 2, 1, "7", "55P5TL01VIaAL@7WKO@mBplU@<PDhh000000001S;AJ::4A80?4i@E53"),
		vdm("AIVDM", 2, 2, "7", "1@0000000000000"),
	)
	require.Len(t, got, 1)
	assert.Equal(t, "55P5TL01VIaAL@7WKO@mBplU@<PDhh000000001S;AJ::4A80?4i@E53"+"1@0000000000000", got[0].Armored())
	assert.False(t, r.Pending())
	assert.Equal(t, 5, got[0].Type())
}

func TestReassembler_SequenceMismatchDrops(t *testing.T) {
	r := NewReassembler()
	got := feedAll(r,
		vdm("AIVDM", 2, 1, "9", "AAAA"),
		vdm("AIVDM", 2, 2, "7", "BBBB"),
	)
	assert.Empty(t, got)
	assert.False(t, r.Pending())

	_, dropped := r.Stats()
	assert.Equal(t, uint64(1), dropped)

	// The mismatching fragment does not start a message of its own.
	got = r.Feed([]byte(vdm("AIVDM", 2, 2, "7", "CCCC")))
	assert.Empty(t, got)
}

func TestReassembler_IndexGapDrops(t *testing.T) {
	r := NewReassembler()
	got := feedAll(r,
		vdm("AIVDM", 3, 1, "4", "AAAA"),
		vdm("AIVDM", 3, 3, "4", "CCCC"),
		vdm("AIVDM", 3, 2, "4", "BBBB"),
	)
	assert.Empty(t, got)
	assert.False(t, r.Pending())
}

func TestReassembler_ThreeFragmentsOneBuffer(t *testing.T) {
	r := NewReassembler()
	buf := vdm("AIVDM", 3, 1, "2", "AAAA") + vdm("AIVDM", 3, 2, "2", "BBBB") + vdm("AIVDM", 3, 3, "2", "CCCC")
	got := r.Feed([]byte(buf))
	require.Len(t, got, 1)
	assert.Equal(t, "AAAABBBBCCCC", got[0].Armored())
}

func TestReassembler_NewFirstFragmentWins(t *testing.T) {
	r := NewReassembler()
	got := feedAll(r,
		vdm("AIVDM", 2, 1, "1", "OLD"),
		vdm("AIVDM", 2, 1, "2", "NEW"),
		vdm("AIVDM", 2, 2, "2", "TAIL"),
	)
	require.Len(t, got, 1)
	assert.Equal(t, "NEWTAIL", got[0].Armored())
}

func TestReassembler_SingleFragmentKeepsPendingState(t *testing.T) {
	r := NewReassembler()
	got := feedAll(r,
		vdm("AIVDM", 2, 1, "3", "HEAD"),
		vdm("AIVDM", 1, 1, "", "SOLO"),
		vdm("AIVDM", 2, 2, "3", "TAIL"),
	)
	require.Len(t, got, 2)
	assert.Equal(t, "SOLO", got[0].Armored())
	assert.Equal(t, "HEADTAIL", got[1].Armored())
}

func TestReassembler_FragmentsSplitAcrossReads(t *testing.T) {
	r := NewReassembler()
	stream := vdm("AIVDM", 2, 1, "5", "AAAA") + vdm("AIVDM", 2, 2, "5", "BBBB")

	var got []Payload
	for i := 0; i < len(stream); i += 7 {
		end := i + 7
		if end > len(stream) {
			end = len(stream)
		}
		got = append(got, r.Feed([]byte(stream[i:end]))...)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "AAAABBBB", got[0].Armored())
}

func TestReassembler_IgnoresOtherSentences(t *testing.T) {
	r := NewReassembler()
	other := strings.Replace(vdm("AIVDM", 1, 1, "", "AAAA"), "AIVDM", "AIVDX", 1)
	got := feedAll(r,
		other,
		vdm("AIVDO", 1, 1, "", "OWN"),
		"$GPGGA,1*00\r\n",
	)
	assert.Empty(t, got)

	r.AcceptOwnVessel = true
	got = r.Feed([]byte(vdm("AIVDO", 1, 1, "", "OWN")))
	require.Len(t, got, 1)
	assert.Equal(t, "OWN", got[0].Armored())
}

func TestReassembler_EmptyBuffer(t *testing.T) {
	r := NewReassembler()
	r.Feed([]byte(vdm("AIVDM", 2, 1, "1", "HEAD")))
	assert.Empty(t, r.Feed(nil))
	assert.True(t, r.Pending())
}

func TestStore_LatestPerMMSI(t *testing.T) {
	s := NewStore(StoreConfig{MaxTargets: 2, TTL: time.Minute})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	lat := 10.0
	s.Upsert(now, PositionReport{MMSI: 1, LatDeg: &lat})
	lat2 := 11.0
	s.Upsert(now.Add(time.Second), PositionReport{MMSI: 1, LatDeg: &lat2})
	s.Upsert(now.Add(2*time.Second), PositionReport{MMSI: 2})
	require.Equal(t, 2, s.Len())

	snap := s.Snapshot(now.Add(3 * time.Second))
	require.Len(t, snap, 2)
	assert.Equal(t, uint32(1), snap[0].MMSI)
	assert.InDelta(t, 11.0, *snap[0].LatDeg, 1e-9)

	// Third vessel evicts the least recently seen one.
	s.Upsert(now.Add(4*time.Second), PositionReport{MMSI: 3})
	snap = s.Snapshot(now.Add(4 * time.Second))
	require.Len(t, snap, 2)
	assert.Equal(t, uint32(2), snap[0].MMSI)
	assert.Equal(t, uint32(3), snap[1].MMSI)

	// Expired vessels are purged.
	assert.Empty(t, s.Snapshot(now.Add(2*time.Minute)))
}

func TestStore_UpsertPayloads(t *testing.T) {
	s := NewStore(StoreConfig{})
	msgs := []Payload{
		NewPayload(classA(posFields{typ: 1, mmsi: 42, sog: 1, lon: 0, lat: 0, cog: 0, hdg: 0})),
		NewPayload(newBitWriter(168).put(0, 6, 5).armor()),
	}
	assert.Equal(t, 1, s.UpsertPayloads(time.Now(), msgs))
	assert.Equal(t, 1, s.Len())
}
