package steps

import (
	"os"
	"path/filepath"
	"testing"

	"cdptour/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinToursAreNonEmptyAndNormalized(t *testing.T) {
	r := NewRegistry()
	for _, tt := range model.AllTours {
		seq := r.Steps(tt)
		require.NotEmpty(t, seq, "tour %s", tt)
		for _, s := range seq {
			assert.NotEmpty(t, s.Placement)
			assert.NotEmpty(t, s.Target)
		}
	}
	assert.Equal(t, 3, r.Len(model.TourOverview))
	assert.Equal(t, model.PlacementBottom, r.Steps(model.TourOverview)[2].Placement)
}

func TestStepsReturnsCopy(t *testing.T) {
	r := NewRegistry()
	seq := r.Steps(model.TourOverview)
	seq[0].Title = "mutated"
	assert.NotEqual(t, "mutated", r.Steps(model.TourOverview)[0].Title)
	assert.Nil(t, r.Steps("unknown"))
}

func TestLoadFileOverridesTour(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tours.yml")
	body := `
tours:
  referrals:
    - target: "#partners"
      title: Partners
      content: All partner firms.
  admin: []
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	r, err := LoadFile(path)
	require.NoError(t, err)
	seq := r.Steps(model.TourReferrals)
	require.Len(t, seq, 1)
	assert.Equal(t, "#partners", seq[0].Target)
	assert.Equal(t, model.PlacementBottom, seq[0].Placement)
	assert.Equal(t, 0, r.Len(model.TourAdmin))
	assert.Equal(t, 3, r.Len(model.TourOverview))
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown tour":      "tours:\n  billing:\n    - target: body\n",
		"invalid placement": "tours:\n  overview:\n    - target: body\n      placement: diagonal\n",
		"empty target":      "tours:\n  overview:\n    - title: x\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tours.yml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := LoadFile(path)
			assert.Error(t, err)
		})
	}
}
