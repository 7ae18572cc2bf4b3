package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openScratch returns a fresh temp file the caller can pass to run() as
// stdout or stderr, plus a reader that rewinds and returns its contents.
func openScratch(t *testing.T) (*os.File, func() string) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "kasm-cli-*")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, func() string {
		_, err := f.Seek(0, 0)
		require.NoError(t, err)
		data, err := os.ReadFile(f.Name())
		require.NoError(t, err)
		return string(data)
	}
}

func writeInput(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRunRequiresExactlyOneInputFile(t *testing.T) {
	out, _ := openScratch(t)
	errOut, readErr := openScratch(t)
	code := run([]string{"-o", "out.ko"}, out, errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, readErr(), "exactly one input file")
}

func TestRunRequiresOutputFlag(t *testing.T) {
	in := writeInput(t, "m.kasm", "push 1\n")
	out, _ := openScratch(t)
	errOut, readErr := openScratch(t)
	code := run([]string{in}, out, errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, readErr(), "-o is required")
}

func TestRunHelpExitsZeroWithoutInput(t *testing.T) {
	out, readOut := openScratch(t)
	errOut, _ := openScratch(t)
	code := run([]string{"--help"}, out, errOut)
	assert.Equal(t, 0, code)
	assert.Contains(t, readOut(), "usage: kasm")
}

func TestRunAssemblesSimpleProgramToKOContainer(t *testing.T) {
	in := writeInput(t, "m.kasm", "push 1\npush 2\nadd\n")
	outPath := filepath.Join(t.TempDir(), "m.ko")
	out, _ := openScratch(t)
	errOut, readErr := openScratch(t)

	code := run([]string{"-o", outPath, in}, out, errOut)
	require.Equal(t, 0, code, "stderr: %s", readErr())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("KOBJ"), data[:4])
}

func TestRunPreprocessOnlyWritesRenderedSource(t *testing.T) {
	in := writeInput(t, "m.kasm", ".define NUM 5\npush NUM\n")
	outPath := filepath.Join(t.TempDir(), "m.pp.kasm")
	out, _ := openScratch(t)
	errOut, readErr := openScratch(t)

	code := run([]string{"-p", "-o", outPath, in}, out, errOut)
	require.Equal(t, 0, code, "stderr: %s", readErr())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "push 5\n", string(data))
}

func TestRunSkipPreprocessOnPreprocessedOutputMatchesDirectAssembly(t *testing.T) {
	src := ".define NUM 5\npush NUM\n"
	in := writeInput(t, "m.kasm", src)

	directOut := filepath.Join(t.TempDir(), "direct.ko")
	out1, _ := openScratch(t)
	err1, readErr1 := openScratch(t)
	require.Equal(t, 0, run([]string{"-f", "m.kasm", "-o", directOut, in}, out1, err1), "stderr: %s", readErr1())

	ppOut := filepath.Join(t.TempDir(), "m.pp.kasm")
	out2, _ := openScratch(t)
	err2, readErr2 := openScratch(t)
	require.Equal(t, 0, run([]string{"-p", "-o", ppOut, in}, out2, err2), "stderr: %s", readErr2())

	viaPreproc := writeInput(t, "m.pp.kasm", readFile(t, ppOut))
	twoStepOut := filepath.Join(t.TempDir(), "twostep.ko")
	out3, _ := openScratch(t)
	err3, readErr3 := openScratch(t)
	require.Equal(t, 0, run([]string{"-a", "-f", "m.kasm", "-o", twoStepOut, viaPreproc}, out3, err3), "stderr: %s", readErr3())

	direct := readFile(t, directOut)
	twoStep := readFile(t, twoStepOut)
	assert.Equal(t, direct, twoStep)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunReportsParseErrorAndExitsOne(t *testing.T) {
	in := writeInput(t, "m.kasm", "frobnicate\n")
	outPath := filepath.Join(t.TempDir(), "m.ko")
	out, _ := openScratch(t)
	errOut, readErr := openScratch(t)

	code := run([]string{"-o", outPath, in}, out, errOut)
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, readErr())
	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMissingInputFileIsError(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "m.ko")
	out, _ := openScratch(t)
	errOut, readErr := openScratch(t)

	code := run([]string{"-o", outPath, filepath.Join(t.TempDir(), "nope.kasm")}, out, errOut)
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, readErr())
}

func TestRunWarningFlagSuppressesWarningDiagnostics(t *testing.T) {
	// .macro with identical min and max arity warns that the range is
	// degenerate; see preprocess's doMacro.
	src := ".macro ONE 1-1\npush &1\n.endmacro\nONE(3)\n"

	in := writeInput(t, "m.kasm", src)
	outPath := filepath.Join(t.TempDir(), "loud.ko")
	out, _ := openScratch(t)
	errOut, readErr := openScratch(t)
	code := run([]string{"-o", outPath, in}, out, errOut)
	require.Equal(t, 0, code, "stderr: %s", readErr())
	loud := readErr()

	outPath2 := filepath.Join(t.TempDir(), "quiet.ko")
	out2, _ := openScratch(t)
	errOut2, readErr2 := openScratch(t)
	code2 := run([]string{"-w", "-o", outPath2, in}, out2, errOut2)
	require.Equal(t, 0, code2, "stderr: %s", readErr2())
	quiet := readErr2()

	assert.NotEmpty(t, loud)
	assert.Empty(t, quiet)
}

func TestRunMergesKasmYAMLIncludeDirs(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "lib")
	require.NoError(t, os.Mkdir(libDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "helper.kasm"), []byte("push 9\n"), 0o644))
	yamlContents := "include_dirs:\n  - " + libDir + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kasm.yaml"), []byte(yamlContents), 0o644))

	in := filepath.Join(dir, "m.kasm")
	require.NoError(t, os.WriteFile(in, []byte(".include \"helper.kasm\"\npush 1\n"), 0o644))

	outPath := filepath.Join(dir, "m.ko")
	out, _ := openScratch(t)
	errOut, readErr := openScratch(t)
	code := run([]string{"-o", outPath, in}, out, errOut)
	assert.Equal(t, 0, code, "stderr: %s", readErr())
}
