package holdsvg

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/speedwall-planner/backend/internal/holdtype"
	"github.com/speedwall-planner/backend/internal/rotation"
	"github.com/speedwall-planner/backend/internal/wallerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spec(t *testing.T, name string) holdtype.Spec {
	t.Helper()
	s, err := holdtype.DefaultRegistry().Lookup(name)
	require.NoError(t, err)
	return s
}

func TestBuiltinTemplates(t *testing.T) {
	c := NewCache(nil)

	big, err := c.Get(spec(t, "BIG"))
	require.NoError(t, err)
	assert.Equal(t, 400.0, big.Width)
	assert.Equal(t, 345.0, big.Height)
	assert.Equal(t, 200.0, big.AnchorX)
	assert.Equal(t, 230.0, big.AnchorY)
	assert.True(t, big.HasShape())
	assert.True(t, big.HasLabel())
	assert.Equal(t, 4, big.AuxCount())

	foot, err := c.Get(spec(t, "FOOT"))
	require.NoError(t, err)
	assert.True(t, foot.HasShape())
	assert.False(t, foot.HasLabel())

	stop, err := c.Get(spec(t, "STOP"))
	require.NoError(t, err)
	assert.False(t, stop.HasShape())
	key, ok := stop.LabelFragment(rotation.Left)
	assert.True(t, ok)
	assert.Equal(t, "label", key)
	assert.Equal(t, 125.0, stop.AnchorX)
}

type countingLoader struct {
	Loader
	calls int
}

func (l *countingLoader) Load(name string) ([]byte, error) {
	l.calls++
	return l.Loader.Load(name)
}

func TestCacheParsesOnce(t *testing.T) {
	loader := &countingLoader{Loader: DefaultLoader()}
	c := NewCache(loader)

	for i := 0; i < 3; i++ {
		_, err := c.Get(spec(t, "FOOT"))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, err := c.Get(spec(t, "FOOT"))
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestMissingTemplate(t *testing.T) {
	c := NewCache(FSLoader{FS: fstest.MapFS{}})
	_, err := c.Get(holdtype.Spec{Name: "CRIMP", Width: 10, Height: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, wallerr.ErrLookup))
	assert.Contains(t, err.Error(), "crimp.svg")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{"not xml", `<svg`, "template"},
		{"not svg", `<g viewBox="0 0 1 1"/>`, "root element"},
		{"no box", `<svg xmlns="http://www.w3.org/2000/svg"><circle id="insert" cx="1" cy="1" r="1"/></svg>`, "viewBox"},
		{"no insert", `<svg viewBox="0 0 10 10"><rect x="0" y="0" width="1" height="1"/></svg>`, "insert"},
		{"path insert", `<svg viewBox="0 0 10 10"><path id="insert" d="M0 0"/></svg>`, "circle"},
		{"no placeholder", `<svg viewBox="0 0 10 10"><circle id="insert" cx="1" cy="1" r="1"/><text id="label">x</text></svg>`, "placeholder"},
		{"bad label id", `<svg viewBox="0 0 10 10"><circle id="insert" cx="1" cy="1" r="1"/><text id="label-north">#</text></svg>`, "label-north"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("t.svg", []byte(tt.svg))
			require.Error(t, err)
			assert.True(t, errors.Is(err, wallerr.ErrParse))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseRectInsertAndWidthHeight(t *testing.T) {
	tpl, err := Parse("t.svg", []byte(`<svg width="20px" height="10"><rect id="insert" x="4" y="2" width="2" height="4"/></svg>`))
	require.NoError(t, err)
	assert.Equal(t, 20.0, tpl.Width)
	assert.Equal(t, 10.0, tpl.Height)
	assert.Equal(t, 5.0, tpl.AnchorX)
	assert.Equal(t, 4.0, tpl.AnchorY)
	assert.False(t, tpl.HasShape())
}

func TestRecolorStyleAndMissingFill(t *testing.T) {
	tpl, err := Parse("t.svg", []byte(`<svg viewBox="0 0 10 10">`+
		`<g id="hold"><path d="M0 0" style="stroke:#000;fill:#abc"/><path d="M1 1" fill="none"/></g>`+
		`<circle id="insert" cx="5" cy="5" r="1" fill="#fff"/></svg>`))
	require.NoError(t, err)

	inst := tpl.Place(Placement{Width: 10, Height: 10, Color: "teal"})
	assert.Contains(t, inst.Body, "fill:teal")
	assert.Contains(t, inst.Body, `fill="none"`)
	assert.Contains(t, inst.Body, `fill="#fff"`)
	assert.NotContains(t, inst.Body, colorToken)

	tpl, err = Parse("t.svg", []byte(`<svg viewBox="0 0 10 10"><path id="hold" d="M0 0"/><circle id="insert" cx="5" cy="5" r="1"/></svg>`))
	require.NoError(t, err)
	inst = tpl.Place(Placement{Width: 10, Height: 10, Color: "teal"})
	assert.Contains(t, inst.Body, `fill="teal"`)
}

func TestPlace(t *testing.T) {
	big, err := NewCache(nil).Get(spec(t, "BIG"))
	require.NoError(t, err)

	inst := big.Place(Placement{
		X: 100, Y: 200, Rotation: 90, Direction: rotation.Left,
		Width: 400, Height: 345, Color: "#ff0000", Text: "7",
	})
	assert.Equal(t, "translate(100 200) rotate(-90) scale(1) translate(-200 -230)", inst.Transform)
	assert.Equal(t, 1.0, inst.Scale)
	assert.Contains(t, inst.Body, "#ff0000")
	assert.Contains(t, inst.Body, "screw-left")
	assert.NotContains(t, inst.Body, `id="`)
	assert.Contains(t, inst.Label, "rotate(90 200 160)")
	assert.Contains(t, inst.Label, ">7<")
	assert.Contains(t, inst.Label, `font-size="70"`)
}

func TestPlaceScaleInvariantLabel(t *testing.T) {
	big, err := NewCache(nil).Get(spec(t, "BIG"))
	require.NoError(t, err)

	// Aspect ratio is kept: the height bound wins.
	inst := big.Place(Placement{Width: 400, Height: 172.5, Direction: rotation.Up, Color: "red", Text: "<A&B>"})
	assert.Equal(t, 0.5, inst.Scale)
	assert.Contains(t, inst.Transform, "scale(0.5)")
	assert.Contains(t, inst.Label, `font-size="140"`)
	assert.Contains(t, inst.Label, "&lt;A&amp;B&gt;")
	assert.False(t, strings.Contains(inst.Label, "rotate("), "up label is not rotated")

	inst = big.Place(Placement{Width: 400, Height: 345, Direction: rotation.Up, Text: "1", FontSize: 50})
	assert.Contains(t, inst.Label, `font-size="50"`)
}

func TestPlaceWithoutLabel(t *testing.T) {
	foot, err := NewCache(nil).Get(spec(t, "FOOT"))
	require.NoError(t, err)
	inst := foot.Place(Placement{X: 1.23456, Y: -0.00001, Width: 35, Height: 39, Color: "blue"})
	assert.Empty(t, inst.Label)
	assert.Equal(t, "translate(1.2346 0) rotate(0) scale(0.5) translate(-35 -45)", inst.Transform)
}
