package ahrs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpgreen/ahrs/pkg/canaero"
	"github.com/gpgreen/ahrs/pkg/watchdog"
)

func newServicesTest() (*Services, *fakeTransport) {
	tr := newFakeTransport()
	ctx := NewContext()
	ctx.SetState(StateListen)
	ctx.Equipment = Equipment{1, 0, 1, 1}
	ctx.Resets = watchdog.Counters{PowerOn: 3, External: 1, BrownOut: 0, Watchdog: 2}
	return &Services{Context: ctx, Transport: tr}, tr
}

func TestMIS(t *testing.T) {
	testCases := []struct {
		name    string
		code    uint8
		typ     canaero.DataType
		expType canaero.DataType
		expCode uint8
		payload []byte
	}{
		{"state", MISState, canaero.NODATA, canaero.UCHAR2, 0, []byte{1, 1}},
		{"name", MISName, canaero.NODATA, canaero.UCHAR4, 1, []byte("AHRS")},
		{"power-on external", MISResets1, canaero.NODATA, canaero.USHORT2, 2, []byte{0, 3, 0, 1}},
		{"brown-out watchdog", MISResets2, canaero.NODATA, canaero.USHORT2, 3, []byte{0, 0, 0, 2}},
		{"equipment", MISEquipment, canaero.NODATA, canaero.UCHAR4, 10, []byte{1, 0, 1, 1}},
		{"unknown", 7, canaero.NODATA, canaero.NODATA, 255, []byte{}},
		{"bad type", MISName, canaero.UCHAR, canaero.NODATA, 255, []byte{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, tr := newServicesTest()
			require.NoError(t, s.HandleMIS(request(canaero.MIS, tc.code, tc.typ, 9)))
			require.Len(t, tr.replies, 1)
			msg := tr.lastReply()
			require.Equal(t, uint32(129), msg.ID)
			require.Equal(t, uint8(canaero.MIS), msg.Service)
			require.Equal(t, tc.expType, msg.Type)
			require.Equal(t, tc.expCode, msg.Code)
			require.Equal(t, tc.payload, msg.Payload())
		})
	}
}

func TestMCSState(t *testing.T) {
	testCases := []struct {
		name    string
		params  []byte
		filter  FilterMode
		state   NodeState
		reinits []bool
		payload []byte
	}{
		{"activate", []byte{0, 1}, FilterHighPriorityOnly, StateActive, nil, []byte{0, 1}},
		{"listen", []byte{1, 1}, FilterHighPriorityOnly, StateListen, nil, []byte{1, 1}},
		{"open filter", []byte{0, 0}, FilterNone, StateActive, []bool{false}, []byte{0, 0}},
		{"nonzero is high priority", []byte{7, 9}, FilterHighPriorityOnly, StateListen, nil, []byte{1, 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, tr := newServicesTest()
			var stateAtReinit NodeState = -1
			tr.onReinit = func() { stateAtReinit = s.Context.State() }
			require.NoError(t, s.HandleMCS(request(canaero.MCS, MCSState, canaero.UCHAR2, tc.params...)))
			require.Equal(t, tc.filter, s.Context.Filter)
			require.Equal(t, tc.state, s.Context.State())
			require.Equal(t, tc.reinits, tr.reinits)
			if tc.reinits != nil {
				require.Equal(t, StateListen, stateAtReinit)
			}
			msg := tr.lastReply()
			require.Equal(t, uint8(canaero.MCS), msg.Service)
			require.Equal(t, uint8(MCSState), msg.Code)
			require.Equal(t, canaero.UCHAR2, msg.Type)
			require.Equal(t, tc.payload, msg.Payload())
		})
	}
}

func TestMCSStateReinitFails(t *testing.T) {
	s, tr := newServicesTest()
	cause := errors.New("controller stuck")
	tr.reinitErr = cause
	require.Error(t, s.HandleMCS(request(canaero.MCS, MCSState, canaero.UCHAR2, 0, 0)))
	require.Empty(t, tr.replies)
	require.Equal(t, StateListen, s.Context.State())
	require.Equal(t, FilterHighPriorityOnly, s.Context.Filter)

	f := s.Context.TakeFault()
	require.IsType(t, &PreCommsFault{}, f)
	require.True(t, errors.Is(f, cause))
	require.Nil(t, s.Context.TakeFault())
}

func TestMCSBuffers(t *testing.T) {
	testCases := []struct {
		params    []byte
		cleared   int
		seqResets int
	}{
		{[]byte{0, 0}, 0, 0},
		{[]byte{0, 1}, 1, 0},
		{[]byte{1, 0}, 0, 1},
		{[]byte{1, 1}, 1, 1},
	}
	for _, tc := range testCases {
		s, tr := newServicesTest()
		require.NoError(t, s.HandleMCS(request(canaero.MCS, MCSBuffers, canaero.UCHAR2, tc.params...)))
		require.Equal(t, tc.cleared, tr.cleared)
		require.Equal(t, tc.seqResets, tr.seqResets)
		msg := tr.lastReply()
		require.Equal(t, canaero.NODATA, msg.Type)
		require.Equal(t, uint8(MCSBuffers), msg.Code)
	}
}

func TestMCSEquipment(t *testing.T) {
	s, tr := newServicesTest()
	require.NoError(t, s.HandleMCS(request(canaero.MCS, MCSEquipment, canaero.UCHAR4, 0, 5, 0, 1)))
	require.Equal(t, Equipment{0, 5, 0, 1}, s.Context.Equipment)
	require.False(t, s.Context.Equipment.Enabled(EquipAccelerometer))
	require.True(t, s.Context.Equipment.Enabled(EquipGyroscope))
	msg := tr.lastReply()
	require.Equal(t, canaero.UCHAR4, msg.Type)
	require.Equal(t, []byte{0, 5, 0, 1}, msg.Payload())
}

func TestEquipmentRoundTrip(t *testing.T) {
	for _, flags := range [][]byte{{1, 0, 1, 1}, {0, 5, 0, 1}} {
		s, tr := newServicesTest()
		s.Context.Equipment = Equipment{}
		require.NoError(t, s.HandleMCS(request(canaero.MCS, MCSEquipment, canaero.UCHAR4, flags...)))
		require.NoError(t, s.HandleMIS(request(canaero.MIS, MISEquipment, canaero.NODATA)))
		require.Len(t, tr.replies, 2)
		msg := tr.lastReply()
		require.Equal(t, uint8(canaero.MIS), msg.Service)
		require.Equal(t, uint8(MISEquipment), msg.Code)
		require.Equal(t, canaero.UCHAR4, msg.Type)
		require.Equal(t, flags, msg.Payload())
	}
}

func TestMCSInvalid(t *testing.T) {
	testCases := []struct {
		name string
		code uint8
		typ  canaero.DataType
	}{
		{"state as uchar4", MCSState, canaero.UCHAR4},
		{"buffers as nodata", MCSBuffers, canaero.NODATA},
		{"equipment as uchar2", MCSEquipment, canaero.UCHAR2},
		{"unknown", 5, canaero.UCHAR2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, tr := newServicesTest()
			require.NoError(t, s.HandleMCS(request(canaero.MCS, tc.code, tc.typ, 0, 0, 0, 0)))
			require.Equal(t, StateListen, s.Context.State())
			require.Equal(t, Equipment{1, 0, 1, 1}, s.Context.Equipment)
			require.Empty(t, tr.reinits)
			require.Zero(t, tr.cleared)
			msg := tr.lastReply()
			require.Equal(t, canaero.NODATA, msg.Type)
			require.Equal(t, uint8(canaero.MCS), msg.Service)
			require.Equal(t, canaero.InvalidCode, msg.Code)
		})
	}
}

func TestServicesTable(t *testing.T) {
	s, tr := newServicesTest()
	table := s.Table(tr.StandardServices())
	require.Equal(t, []canaero.ServiceCode{canaero.IDS, canaero.MIS, canaero.MCS}, table.Services())
	require.Nil(t, table.Lookup(canaero.NSS))
}
