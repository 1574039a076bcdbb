package yaml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	v := struct {
		Video   string             `yaml:"video"`
		Samples map[string]int     `yaml:"samples"`
		Quality map[string]float64 `yaml:"quality,omitempty"`
	}{
		Video:   "GX010001.MP4",
		Samples: map[string]int{"position": 18, "camera": 30},
	}

	b, err := Encode(v, 2)
	require.Nil(t, err)
	require.Equal(t, `video: GX010001.MP4
samples:
  camera: 30
  position: 18
`, string(b))
}

func TestUnmarshal(t *testing.T) {
	var cfg struct {
		Log map[string]string `yaml:"log"`
	}
	cfg.Log = map[string]string{"level": "info", "output": "stderr"}

	err := Unmarshal([]byte("log:\n  level: debug\n"), &cfg)
	require.Nil(t, err)
	require.Equal(t, map[string]string{"level": "debug", "output": "stderr"}, cfg.Log)

	err = Unmarshal([]byte("log: [1, 2"), &cfg)
	require.NotNil(t, err)
}
