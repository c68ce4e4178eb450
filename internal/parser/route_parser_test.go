package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/speedwall-planner/backend/internal/grid"
	"github.com/speedwall-planner/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRoutes = `
reference:
  color: "#e53935"
  columns: ABCDEFGHIKL
  holdScales:
    FOOT: 0.8
  holds:
    - SN1 BIG A1 B2 @P1
    - SN1 FOOT C3 C4
  smearingZones:
    - label: S1
      panel: SN1
      column: B
      row: 2.5
      width: 2
      height: 1
`

func TestParseRouteSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRoutes), 0644))

	routes, err := ParseRouteSet(path)
	require.NoError(t, err)
	require.Contains(t, routes, "reference")

	r := routes["reference"]
	assert.Equal(t, "#e53935", r.Color)
	assert.Equal(t, grid.ColumnsNoJ, r.Columns)
	assert.Equal(t, 0.8, r.HoldScales["FOOT"])
	assert.Len(t, r.Holds, 2)
	require.Len(t, r.SmearingZones, 1)
	assert.Equal(t, 2.5, r.SmearingZones[0].Row)
}

func TestParseRouteSetRejectsUnknownFields(t *testing.T) {
	codec, err := GetGlobalRegistry().GetCodecByName("yaml")
	require.NoError(t, err)

	_, err = ParseRouteSetFromReader(strings.NewReader("r:\n  colour: red\n  holds: []\n"), codec)
	assert.Error(t, err)
}

func TestParseRouteSetEmpty(t *testing.T) {
	codec, err := GetGlobalRegistry().GetCodecByName("yaml")
	require.NoError(t, err)

	routes, err := ParseRouteSetFromReader(strings.NewReader(""), codec)
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestDecodeConfig(t *testing.T) {
	content := `
wall:
  lanes: 2
  panelsHeight: 10
routes:
  - segments:
      - source: reference
        fromHold: P1
        toHold: 4
        excludeHolds: [2, M1]
        anchor: {panel: DX1, column: "<", row: 0}
        color: "#000"
        laneOffset: 1
`
	codec, err := GetGlobalRegistry().FindCodec("config.yml")
	require.NoError(t, err)

	var cfg models.Config
	require.NoError(t, codec.Decode([]byte(content), &cfg))
	assert.Equal(t, models.WallConfig{Lanes: 2, PanelsHeight: 10}, cfg.Wall)
	require.Len(t, cfg.Routes, 1)

	seg := cfg.Routes[0].Segments[0]
	assert.Equal(t, models.LabelRef("P1"), *seg.FromHold)
	assert.Equal(t, models.IndexRef(4), *seg.ToHold)
	assert.Equal(t, []models.HoldRef{models.IndexRef(2), models.LabelRef("M1")}, seg.ExcludeHolds)
	assert.Equal(t, &models.Anchor{Panel: "DX1", Column: "<", Row: 0}, seg.Anchor)
	assert.Equal(t, 1, seg.LaneOffset)
}

func TestCodecsRoundTripConfig(t *testing.T) {
	from, to := models.IndexRef(2), models.LabelRef("P2")
	cfg := models.Config{
		Wall: models.WallConfig{Lanes: 1, PanelsHeight: 5},
		Routes: []models.GeneratedRoute{{Segments: []models.RouteSegment{{
			Source:       "a",
			FromHold:     &from,
			ToHold:       &to,
			ExcludeHolds: []models.HoldRef{models.IndexRef(3), models.LabelRef("X")},
		}}}},
	}

	for _, name := range []string{"yaml", "json", "msgpack"} {
		t.Run(name, func(t *testing.T) {
			codec, err := GetGlobalRegistry().GetCodecByName(name)
			require.NoError(t, err)

			data, err := codec.Encode(cfg)
			require.NoError(t, err)

			var got models.Config
			require.NoError(t, codec.Decode(data, &got))
			assert.Equal(t, cfg, got)
		})
	}
}

func TestRegistryFindCodec(t *testing.T) {
	r := NewRegistry()
	tests := map[string]string{
		"routes.yaml":                     "yaml",
		"dir/routes.YML":                  "yaml",
		"application/x-yaml":              "yaml",
		"routes.json":                     "json",
		"application/json; charset=utf-8": "json",
		"routes.msgpack":                  "msgpack",
		"application/msgpack":             "msgpack",
	}
	for in, want := range tests {
		c, err := r.FindCodec(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, c.Name(), in)
	}

	_, err := r.FindCodec("routes.txt")
	assert.Error(t, err)
	_, err = r.GetCodecByName("toml")
	assert.Error(t, err)
}
