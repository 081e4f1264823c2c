package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/medpanel/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/medpanel/internal/config"
	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/testutil"
)

func sampleResult() *core.CaseResult {
	c := testutil.NewCase("55-year-old with crushing chest pain radiating to the left arm")
	c.Tier = core.TierModerate
	lead := core.Member{ID: "lead", Specialty: "Internal Medicine", Role: core.RoleLead}
	return &core.CaseResult{
		Case: *c,
		Tier: core.TierModerate,
		Recruitment: core.Recruitment{
			Tier:  core.TierModerate,
			Panel: &core.Team{Lead: lead, Members: []core.Member{{ID: "s1", Specialty: "Cardiologist", Role: core.RoleConsultant}}},
		},
		Decision: core.FinalDecision{
			Choice:            "B",
			Rationale:         "ST elevation with troponin rise.",
			ConsensusStatus:   "consensus (100%)",
			ConsensusAchieved: true,
			AgreementRate:     1,
		},
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  42 * time.Second,
	}
}

// useTestConfig writes a configuration whose store and reports live in a
// temp directory and points --config at it.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Log.Level = "error"
	cfg.Store.Path = filepath.Join(dir, "cases.db")
	cfg.Report.Dir = filepath.Join(dir, "reports")
	cfg.Catalog.Path = ""
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))

	old := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = old })
	return cfg
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		casesJSON, casesFormat, casesTier = false, formatText, ""
		specialtiesJSON, specialtiesLimit = false, 10
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Structure(t *testing.T) {
	assert.Equal(t, "medpanel", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range []string{"consult", "recruit", "specialties", "cases", "serve", "doctor", "init", "version"} {
		assert.True(t, registered[name], "%s command not registered", name)
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("v1.2.3", "abc123def", "2026-01-15")
	t.Cleanup(func() { SetVersion("", "", "") })

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "medpanel v1.2.3")
	assert.Contains(t, out, "commit: abc123def")
	assert.Contains(t, out, "built:  2026-01-15")
	assert.Equal(t, "v1.2.3", GetVersion())
}

func TestLoadRequest(t *testing.T) {
	t.Run("arguments and options", func(t *testing.T) {
		req, err := loadRequest([]string{"Chest", "pain?"}, "", []string{"a=Reflux", "B = Acute coronary syndrome"}, "case-1", "intermediate", nil)
		require.NoError(t, err)
		assert.Equal(t, "Chest pain?", req.Question)
		assert.Equal(t, "case-1", req.ID)
		assert.Equal(t, core.Options{"A": "Reflux", "B": "Acute coronary syndrome"}, req.Options)
		assert.Equal(t, core.TierModerate, req.Tier)
	})

	t.Run("input file with overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "case.json")
		data := `{"id":"from-file","question":"From file","options":{"a":"One","b":"Two"},"tier":"advanced"}`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		req, err := loadRequest(nil, path, []string{"C=Three"}, "", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "from-file", req.ID)
		assert.Equal(t, "From file", req.Question)
		assert.Equal(t, []string{"A", "B", "C"}, req.Options.Letters())
		assert.Equal(t, core.TierHigh, req.Tier)

		req, err = loadRequest([]string{"Override"}, path, nil, "", "low", nil)
		require.NoError(t, err)
		assert.Equal(t, "Override", req.Question)
		assert.Equal(t, core.TierLow, req.Tier)
	})

	t.Run("stdin", func(t *testing.T) {
		stdin := strings.NewReader(`{"question":"From stdin","options":{"A":"x","B":"y"}}`)
		req, err := loadRequest(nil, "-", nil, "", "", stdin)
		require.NoError(t, err)
		assert.Equal(t, "From stdin", req.Question)
		assert.Empty(t, req.Tier)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := loadRequest(nil, "", nil, "", "", nil)
		assert.True(t, core.IsCategory(err, core.ErrCatValidation))

		_, err = loadRequest([]string{"q"}, "", []string{"no-separator"}, "", "", nil)
		assert.Error(t, err)

		_, err = loadRequest([]string{"q"}, "", nil, "", "extreme", nil)
		assert.Error(t, err)

		_, err = loadRequest(nil, filepath.Join(t.TempDir(), "missing.json"), nil, "", "", nil)
		assert.Error(t, err)

		_, err = loadRequest(nil, "-", nil, "", "", strings.NewReader("{not json"))
		assert.Error(t, err)
	})
}

func TestParseOption(t *testing.T) {
	tests := []struct {
		in     string
		letter string
		text   string
		ok     bool
	}{
		{"A=Reflux", "A", "Reflux", true},
		{" b = Acute coronary syndrome ", "B", "Acute coronary syndrome", true},
		{"C=x=y", "C", "x=y", true},
		{"=Reflux", "", "", false},
		{"D=", "", "", false},
		{"E", "", "", false},
	}
	for _, tt := range tests {
		letter, text, err := parseOption(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.letter, letter)
		assert.Equal(t, tt.text, text)
	}
}

func TestPrintResult(t *testing.T) {
	result := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, result, formatText, true, false))
	assert.Equal(t, "B) Acute coronary syndrome\n", buf.String())

	buf.Reset()
	require.NoError(t, printResult(&buf, result, formatJSON, false, false))
	var decoded core.CaseResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "B", decoded.Decision.Choice)

	buf.Reset()
	require.NoError(t, printResult(&buf, result, formatMarkdown, false, false))
	assert.Contains(t, buf.String(), "ST elevation with troponin rise.")

	buf.Reset()
	require.NoError(t, printResult(&buf, result, formatText, false, false))
	assert.Contains(t, buf.String(), "Acute coronary syndrome")

	empty := sampleResult()
	empty.Decision = core.FinalDecision{}
	buf.Reset()
	require.NoError(t, printResult(&buf, empty, formatText, true, false))
	assert.Equal(t, "no decision\n", buf.String())
}

func TestInitCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".medpanel")
	t.Cleanup(func() { initForce, initCatalog, initDir = false, false, config.DefaultConfigDir })

	out, err := execute(t, "init", "--dir", dir, "--catalog")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "config.yaml"))
	assert.Contains(t, out, filepath.Join(dir, "specialties.yaml"))

	cfg, err := config.NewLoader().WithConfigFile(filepath.Join(dir, "config.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "specialties.yaml"), cfg.Catalog.Path)
	require.NoError(t, config.ValidateConfig(cfg))

	catalog, err := loadCatalog(cfg.Catalog.Path)
	require.NoError(t, err)
	assert.Positive(t, catalog.Len())

	_, err = execute(t, "init", "--dir", dir)
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "init", "--dir", dir, "--force")
	assert.NoError(t, err)
}

func TestSpecialtiesCommands(t *testing.T) {
	useTestConfig(t)

	out, err := execute(t, "specialties", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "SPECIALTY")
	assert.Contains(t, out, "Cardiologist")

	out, err = execute(t, "specialties", "show", "Cardiologist")
	require.NoError(t, err)
	assert.Contains(t, out, "Cardiologist (organ, position")
	assert.Contains(t, out, "Keywords:")

	_, err = execute(t, "specialties", "show", "zzzzzz")
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))

	out, err = execute(t, "specialties", "rank", "--json", "-n", "3", "crushing chest pain with ST elevation on ECG")
	require.NoError(t, err)
	var ranked []struct {
		Specialty string  `json:"specialty"`
		Score     float64 `json:"score"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	require.Len(t, ranked, 3)
	assert.Equal(t, "Cardiologist", ranked[0].Specialty)
}

func TestCasesCommands(t *testing.T) {
	cfg := useTestConfig(t)

	s, err := store.NewSQLiteStore(cfg.Store.Path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), sampleResult()))
	require.NoError(t, s.Close())

	out, err := execute(t, "cases", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "case-test")
	assert.Contains(t, out, "moderate")

	out, err = execute(t, "cases", "list", "--tier", "high")
	require.NoError(t, err)
	assert.Contains(t, out, "No cases stored.")

	out, err = execute(t, "cases", "show", "case-test", "--format", "json")
	require.NoError(t, err)
	var got core.CaseResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "B", got.Decision.Choice)

	out, err = execute(t, "cases", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "SPECIALTY")

	out, err = execute(t, "cases", "delete", "case-test")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted case case-test")

	_, err = execute(t, "cases", "show", "case-test")
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestCasesCommands_StoreDisabled(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Store.Enabled = false
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))
	old := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = old })

	_, err = execute(t, "cases", "list")
	assert.ErrorContains(t, err, "case store is disabled")
}
