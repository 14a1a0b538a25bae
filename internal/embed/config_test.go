package embed

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Gating(t *testing.T) {
	cases := []struct {
		name     string
		reportID string
		token    string
		want     bool
	}{
		{name: "both present", reportID: "r1", token: "tok", want: true},
		{name: "no report", reportID: "", token: "tok", want: false},
		{name: "no token", reportID: "r1", token: "", want: false},
		{name: "neither", reportID: "", token: "", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, ok := Build(Input{ReportID: tc.reportID, AccessToken: tc.token})
			assert.Equal(t, tc.want, ok)
			if tc.want {
				require.NotNil(t, cfg)
			} else {
				assert.Nil(t, cfg)
			}
		})
	}
}

func TestBuild_WhitespaceCountsAsAbsent(t *testing.T) {
	_, ok := Build(Input{ReportID: "  ", AccessToken: "tok"})
	assert.False(t, ok)
	_, ok = Build(Input{ReportID: "r1", AccessToken: "\t"})
	assert.False(t, ok)
}

func TestBuild_IdentityFilterAndSlicer(t *testing.T) {
	cfg, ok := Build(Input{
		ReportID:    "r1",
		AccessToken: "tok",
		LoginName:   "alice@contoso.com",
		Options:     DisplayOptions{TargetTable: "Users", TargetColumn: "Email"},
	})
	require.True(t, ok)

	want := BasicFilter{
		Schema:                 BasicFilterSchema,
		FilterType:             FilterTypeBasic,
		Target:                 Target{Table: "Users", Column: "Email"},
		Operator:               "In",
		Values:                 []string{"alice@contoso.com"},
		RequireSingleSelection: false,
	}
	require.Len(t, cfg.Filters, 1)
	assert.Equal(t, want, cfg.Filters[0])

	require.Len(t, cfg.Slicers, 1)
	assert.Equal(t, SlicerTargetSelectorSchema, cfg.Slicers[0].Selector.Schema)
	assert.Equal(t, Target{Table: "Users", Column: "Email"}, cfg.Slicers[0].Selector.Target)
	require.Len(t, cfg.Slicers[0].State.Filters, 1)
	assert.Equal(t, want, cfg.Slicers[0].State.Filters[0])
}

func TestBuild_NoTargetMeansNoFilters(t *testing.T) {
	for _, opts := range []DisplayOptions{
		{TargetTable: "", TargetColumn: "Email"},
		{TargetTable: "Users", TargetColumn: ""},
		{},
	} {
		cfg, ok := Build(Input{ReportID: "r1", AccessToken: "tok", LoginName: "alice@contoso.com", Options: opts})
		require.True(t, ok)
		assert.Empty(t, cfg.Filters)
		assert.Empty(t, cfg.Slicers)
	}
}

func TestBuild_DisplayToggles(t *testing.T) {
	cfg, ok := Build(Input{
		ReportID:    "r1",
		AccessToken: "tok",
		Options:     DisplayOptions{HideFilterPane: true, HidePageNavigation: false, ZoomLevel: 1.3},
	})
	require.True(t, ok)
	assert.False(t, cfg.Settings.Panes.Filters.Visible)
	assert.False(t, cfg.Settings.Panes.Filters.Expanded)
	assert.True(t, cfg.Settings.Panes.PageNavigation.Visible)
	assert.Equal(t, 1.3, cfg.Settings.ZoomLevel)
	assert.Equal(t, TokenTypeAad, cfg.TokenType)
	assert.Equal(t, "report", cfg.Type)
	assert.Equal(t, "tok", cfg.AccessToken)
}

func TestBuild_EmbedURL(t *testing.T) {
	cfg, ok := Build(Input{ReportID: "r1", AccessToken: "tok"})
	require.True(t, ok)
	assert.Equal(t, "https://app.powerbi.com/reportEmbed?reportId=r1", cfg.EmbedURL)

	assert.Equal(t, "https://host/embed?groupId=g&reportId=a%26b", EmbedURL("https://host/embed?groupId=g", "a&b"))
}

func TestConfiguration_JSONShape(t *testing.T) {
	cfg, ok := Build(Input{
		ReportID:    "r1",
		AccessToken: "tok",
		LoginName:   "alice@contoso.com",
		Options:     DisplayOptions{TargetTable: "Users", TargetColumn: "Email", ZoomLevel: 1},
	})
	require.True(t, ok)

	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	s := string(b)
	for _, frag := range []string{
		`"type":"report"`,
		`"tokenType":0`,
		`"$schema":"http://powerbi.com/product/schema#basic"`,
		`"$schema":"http://powerbi.com/product/schema#slicerTargetSelector"`,
		`"pageNavigation":{"visible":true}`,
		`"zoomLevel":1`,
	} {
		assert.True(t, strings.Contains(s, frag), "missing %s in %s", frag, s)
	}
}

func TestConfiguration_EventHandlers(t *testing.T) {
	cfg, _ := Build(Input{ReportID: "r1", AccessToken: "tok"})
	assert.Equal(t, []string{"rendered"}, cfg.EventHandlers())
}
