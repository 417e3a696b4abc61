package camera

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/airwrite/internal/pose"
	"github.com/banshee-data/airwrite/internal/timeutil"
)

func TestParseFacing(t *testing.T) {
	tests := []struct {
		in      string
		want    Facing
		wantErr bool
	}{
		{in: "front", want: FacingFront},
		{in: "REAR", want: FacingRear},
		{in: "back", want: FacingRear},
		{in: "side", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFacing(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.want, must(ParseFacing(got.String())))
	}
	assert.Equal(t, "facing(7)", Facing(7).String())
}

func must(f Facing, err error) Facing {
	if err != nil {
		panic(err)
	}
	return f
}

func TestCatalogSelect(t *testing.T) {
	cat := DefaultCatalog(480, 640)

	d, err := cat.Select("", FacingFront)
	require.NoError(t, err)
	assert.Equal(t, "1", d.ID)

	d, err = cat.Select("", FacingRear)
	require.NoError(t, err)
	assert.Equal(t, "0", d.ID)

	d, err = cat.Select("0", FacingFront)
	require.NoError(t, err, "explicit id wins over facing")
	assert.Equal(t, FacingRear, d.Facing)

	_, err = cat.Select("7", FacingFront)
	assert.True(t, errors.Is(err, ErrNoCamera))

	_, err = Catalog{}.Select("", FacingFront)
	assert.ErrorIs(t, err, ErrNoCamera)

	_, err = cat[:1].Select("", FacingFront)
	assert.ErrorIs(t, err, ErrNoCamera)
}

func TestDescriptorMetadata(t *testing.T) {
	d := Descriptor{ID: "1", Facing: FacingFront, SensorWidth: 480, SensorHeight: 640, SensorOrientation: 270}
	assert.Equal(t, pose.FrameMetadata{
		SensorWidth:              480,
		SensorHeight:             640,
		SensorOrientationDegrees: 270,
		DeviceOrientationDegrees: 90,
		FrontFacing:              true,
	}, d.Metadata(90))
}

func TestSyntheticSourceTicks(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	d := DefaultCatalog(480, 640)[1]
	src, err := NewSyntheticSource(clock, d, 33*time.Millisecond)
	require.NoError(t, err)
	defer src.Close()

	for i := uint64(1); i <= 3; i++ {
		clock.Advance(33 * time.Millisecond)
		select {
		case f := <-src.Frames():
			assert.Equal(t, i, f.Sequence)
			assert.True(t, f.Metadata.FrontFacing)
			assert.Equal(t, 480, f.Metadata.SensorWidth)
		case <-time.After(time.Second):
			t.Fatalf("frame %d never arrived", i)
		}
	}

	require.NoError(t, src.SetDeviceOrientation(180))
	for _, bad := range []int{45, -90, 360} {
		assert.ErrorIs(t, src.SetDeviceOrientation(bad), pose.ErrInvalidMetadata, "orientation %d", bad)
	}
	clock.Advance(33 * time.Millisecond)
	f := <-src.Frames()
	assert.Equal(t, 180, f.Metadata.DeviceOrientationDegrees, "rejected values leave the last good orientation")
	assert.NoError(t, f.Metadata.Validate())
}

func TestSyntheticSourceReplacesStaleFrame(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	src, err := NewSyntheticSource(clock, DefaultCatalog(480, 640)[0], 10*time.Millisecond)
	require.NoError(t, err)
	defer src.Close()

	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Millisecond)
		want := uint64(i + 1)
		require.Eventually(t, func() bool { return src.Produced() == want }, time.Second, time.Millisecond)
	}

	require.Eventually(t, func() bool { return src.Dropped() == 4 }, time.Second, time.Millisecond)
	f := <-src.Frames()
	assert.Equal(t, uint64(5), f.Sequence, "only the freshest frame is kept")
}

func TestSyntheticSourceClose(t *testing.T) {
	src, err := NewSyntheticSource(timeutil.NewMockClock(time.Unix(0, 0)), DefaultCatalog(480, 640)[0], time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, ok := <-src.Frames()
	assert.False(t, ok, "frame channel must be closed")
}

func TestNewSyntheticSourceValidation(t *testing.T) {
	_, err := NewSyntheticSource(nil, DefaultCatalog(480, 640)[0], 0)
	assert.Error(t, err)

	_, err = NewSyntheticSource(nil, Descriptor{ID: "x", SensorWidth: 0, SensorHeight: 640}, time.Millisecond)
	assert.ErrorIs(t, err, pose.ErrInvalidMetadata)
}

func TestSyntheticOpener(t *testing.T) {
	var o Opener = SyntheticOpener{Clock: timeutil.NewMockClock(time.Unix(0, 0)), Interval: time.Second}
	src, err := o.Open(DefaultCatalog(480, 640)[1])
	require.NoError(t, err)
	assert.NoError(t, src.Close())

	boom := errors.New("busy")
	o = OpenerFunc(func(Descriptor) (Source, error) { return nil, boom })
	_, err = o.Open(Descriptor{})
	assert.ErrorIs(t, err, boom)
}

func TestFacingJSON(t *testing.T) {
	b, err := json.Marshal(Descriptor{ID: "1", Facing: FacingRear})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"facing":"rear"`)

	var d Descriptor
	require.NoError(t, json.Unmarshal(b, &d))
	assert.Equal(t, FacingRear, d.Facing)
}
