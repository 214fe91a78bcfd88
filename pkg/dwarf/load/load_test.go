package load

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manu343726/dwarfcore/pkg/diag"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/core"
)

func TestKeepAllAlwaysReturnsKeep(t *testing.T) {
	assert.Equal(t, KEEP, KeepAll(&core.CU{}))
}

func TestDefaultConfigTargets64Bit(t *testing.T) {
	assert.Equal(t, 8, DefaultConfig().PointerSize)
}

func TestLoadFileMissingPathReturnsError(t *testing.T) {
	l := New(DefaultConfig(), diag.New(false))
	_, err := l.LoadFile(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	require.Error(t, err)
}

func TestLoadFileRejectsNonELFInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-an-elf")
	require.NoError(t, os.WriteFile(path, []byte("this is not an object file"), 0o644))

	l := New(DefaultConfig(), diag.New(false))
	_, err := l.LoadFile(path, nil)
	require.Error(t, err)
}

func TestLoaderSharesOnePoolAcrossLoads(t *testing.T) {
	l := New(DefaultConfig(), diag.New(false))
	require.NotNil(t, l.Pool())

	id := l.Pool().AddString("same_pool")
	assert.Equal(t, "same_pool", l.Pool().Ptr(id))
}
