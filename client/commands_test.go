package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/containifyci/analysis-worker/pkg/workflows/analysis"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestCreateAndLatest(t *testing.T) {
	base := t.TempDir()

	out, err := run(t, "create", "--base", base, "--prefix", "run", "--tag", "12")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "run_12"), out)

	out, err = run(t, "latest", "--base", base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "run_12"), out)
}

func TestCreate_TimestampTagByDefault(t *testing.T) {
	base := t.TempDir()

	out, err := run(t, "create", "--base", base, "--prefix", "bench")
	require.NoError(t, err)
	assert.Regexp(t, `bench_\d{8}_\d{6}$`, out)
}

func TestCreate_PointerFile(t *testing.T) {
	base := t.TempDir()

	_, err := run(t, "create", "--base", base, "--tag", "1", "--link-mode", "pointer", "--strategy", "in-place")
	require.NoError(t, err)

	info, err := os.Lstat(filepath.Join(base, "latest"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
}

func TestCreate_InvalidLinkMode(t *testing.T) {
	_, err := run(t, "create", "--base", t.TempDir(), "--tag", "1", "--link-mode", "hardlink")
	assert.ErrorContains(t, err, "unknown link mode")
}

func TestLatest_Missing(t *testing.T) {
	_, err := run(t, "latest", "--base", t.TempDir())
	assert.Error(t, err)
}

func TestPrune(t *testing.T) {
	base := t.TempDir()
	for _, tag := range []string{"1", "2"} {
		_, err := run(t, "create", "--base", base, "--tag", tag)
		require.NoError(t, err)
	}

	// keep 1 leaves only the run latest points at
	out, err := run(t, "prune", "--base", base, "--keep", "1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "run_1"), out)
	assert.DirExists(t, filepath.Join(base, "run_2"))
}

func TestSubmit_RequiresAnalyzer(t *testing.T) {
	_, err := run(t, "submit", "--tag", "1")
	assert.ErrorContains(t, err, "analyzer")
}

func TestSubmit_RequiresAbsoluteBase(t *testing.T) {
	_, err := run(t, "submit", "--analyzer", "iotcom", "--base", "out", "--tag", "1")
	assert.ErrorIs(t, err, analysis.ErrRelativeBase)

	// the default base is relative as well
	_, err = run(t, "submit", "--analyzer", "iotcom", "--tag", "1")
	assert.ErrorIs(t, err, analysis.ErrRelativeBase)
}

func TestSubmitFlags_Job(t *testing.T) {
	f := submitFlags{
		runFlags:   runFlags{base: "/srv/out", prefix: "run", tag: "12"},
		repo:       "https://github.com/example/smartapps",
		analyzer:   "iotcom",
		outdirFlag: "--outdir",
		env:        map[string]string{"JAVA_OPTS": "-Xmx4g"},
		keep:       3,
	}

	job := f.job([]string{"--bundle", "apps.json"})
	assert.Equal(t, "/srv/out", job.Base)
	assert.Equal(t, "12", job.Tag)
	assert.Equal(t, "iotcom", job.Analyzer)
	assert.Equal(t, []string{"--bundle", "apps.json"}, job.Args)
	assert.Equal(t, "-Xmx4g", job.Env["JAVA_OPTS"])
	assert.Equal(t, 3, job.Keep)
}
