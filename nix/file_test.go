package nix_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jacentio/nixcore/nix"
)

func TestNewFile(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 15, 999, time.UTC)
	f := nix.NewFile(nix.WithClock(func() time.Time { return now }))

	assert.NoError(t, uuid.Validate(f.ID()))
	assert.Equal(t, nix.Format, f.Format())
	assert.Equal(t, []int{1, 2, 0}, f.Version())
	assert.Equal(t, now.Truncate(time.Second), f.CreatedAt())
	assert.NotNil(t, f.Backend())
	assert.Zero(t, f.BlockCount())
	assert.Zero(t, f.SectionCount())
}

func TestFile_Blocks(t *testing.T) {
	f := nix.NewFile()

	b, err := f.CreateBlock("session 1", "recording")
	require.NoError(t, err)
	assert.Equal(t, "session 1", b.Name())
	assert.Equal(t, "recording", b.Type())
	assert.Same(t, f, b.File())

	_, err = f.CreateBlock("session 1", "other")
	assert.True(t, errors.Is(err, nix.ErrDuplicateName))

	_, err = f.CreateBlock("a/b", "recording")
	assert.True(t, errors.Is(err, nix.ErrInvalidArgument))
	assert.Contains(t, errors.FlattenHints(err), "a_b")

	_, err = f.CreateBlock("", "recording")
	assert.True(t, errors.Is(err, nix.ErrInvalidArgument))
	_, err = f.CreateBlock("session 2", "")
	assert.True(t, errors.Is(err, nix.ErrInvalidArgument))

	assert.Same(t, b, f.Block("session 1"))
	assert.Same(t, b, f.Block(b.ID()))
	assert.True(t, f.HasBlock(b.ID()))
	assert.Nil(t, f.Block("missing"))
	assert.Equal(t, 1, f.BlockCount())

	assert.True(t, f.DeleteBlock(b.ID()))
	assert.False(t, f.DeleteBlock(b.ID()))
	assert.Zero(t, f.BlockCount())
}

func TestFile_DeleteBlockCascades(t *testing.T) {
	f, b := newBlock(t)
	da := newArray(t, b, "trace", 10)
	src, err := b.CreateSource("electrode", "hardware")
	require.NoError(t, err)
	require.NoError(t, da.AddSource(src))
	_, err = b.CreateTag("spike", "event", []float64{1})
	require.NoError(t, err)

	meta, err := f.CreateSection("recording", "metadata")
	require.NoError(t, err)
	require.NoError(t, b.SetMetadata(meta))

	require.True(t, f.DeleteBlock("session"))

	// Sections are not owned by blocks.
	assert.Same(t, meta, f.Section("recording"))

	other, err := f.CreateBlock("other", "recording")
	require.NoError(t, err)
	assert.Error(t, other.SetMetadata(nil))

	// Entities of the deleted block can no longer be linked anywhere.
	otherArray := newArray(t, other, "trace", 10)
	assert.True(t, errors.Is(otherArray.AddSource(src), nix.ErrNotFound))
}

func TestFile_MetadataScrubbedOnDelete(t *testing.T) {
	f, b := newBlock(t)
	meta, err := f.CreateSection("recording", "metadata")
	require.NoError(t, err)
	child, err := meta.CreateSection("amplifier", "hardware")
	require.NoError(t, err)

	da := newArray(t, b, "trace", 10)
	require.NoError(t, b.SetMetadata(meta))
	require.NoError(t, da.SetMetadata(child))
	assert.Same(t, child, da.Metadata())

	require.True(t, f.DeleteSection("recording"))
	assert.Nil(t, b.Metadata())
	assert.Nil(t, da.Metadata())
	assert.Empty(t, f.FindSections(nil, nix.Unlimited))
}

func TestFile_Timestamps(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	f := nix.NewFile(nix.WithClock(clock))

	b, err := f.CreateBlock("session", "recording")
	require.NoError(t, err)
	assert.Equal(t, now, b.CreatedAt())

	now = now.Add(time.Minute)
	require.NoError(t, b.SetType("sorting"))
	assert.Equal(t, now, b.UpdatedAt())
	assert.Equal(t, now.Add(-time.Minute), b.CreatedAt())

	forced := time.Date(2001, 1, 1, 0, 0, 0, 500, time.UTC)
	b.ForceCreatedAt(forced)
	assert.Equal(t, forced.Truncate(time.Second), b.CreatedAt())
}

func TestFile_DefinitionAndType(t *testing.T) {
	_, b := newBlock(t)
	b.SetDefinition("one recording session")
	assert.Equal(t, "one recording session", b.Definition())
	b.SetDefinition("")
	assert.Empty(t, b.Definition())

	assert.True(t, errors.Is(b.SetType(""), nix.ErrInvalidArgument))
	assert.Equal(t, "recording", b.Type())
}

func TestFile_LogsDeletes(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := nix.NewFile(nix.WithLogger(zap.New(core).Sugar()))
	b, err := f.CreateBlock("session", "recording")
	require.NoError(t, err)
	_, err = b.CreateDataArray("trace", "signal", nix.DataTypeDouble, nix.NDSize{3})
	require.NoError(t, err)

	require.True(t, f.DeleteBlock("session"))

	entries := logs.FilterMessage("entity deleted").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, b.ID(), fields["id"])
	assert.EqualValues(t, 2, fields["removed"])
}
