package fs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduos/eduos/internal/fs/fserrors"
	"github.com/eduos/eduos/internal/fsdisk"
	"github.com/eduos/eduos/internal/kernel/blockdev"
	"github.com/eduos/eduos/internal/kernel/sched"
)

const testOwner = sched.TaskID(1)

func newTestFS(t *testing.T) *FileSystem {
	t.Helper()
	dev := blockdev.NewMemory(128)
	layout := fsdisk.Layout{SuperBlockStart: 0, MaxInodes: 32}
	f := New(dev, layout, 32, int64(fsdisk.InodeNDirect)*fsdisk.BlockSize)
	require.NoError(t, f.Init(64))
	return f
}

// TestMkfsOpenWriteReadUnlinkRoundTrip reproduces spec §8 scenario 5:
// fs_mkfs -> fs_open(CREAT|RDWR) -> write "hello world" -> lseek(0) ->
// read -> matches; unlink leaves only the root inode allocated.
func TestMkfsOpenWriteReadUnlinkRoundTrip(t *testing.T) {
	f := newTestFS(t)

	fd, err := f.Open(testOwner, "f", ModeRDWR|ModeCREAT)
	require.NoError(t, err)

	n, err := f.Write(testOwner, fd, []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	_, err = f.Lseek(testOwner, fd, 0, SeekSet)
	require.NoError(t, err)

	buf := make([]byte, 11)
	n, err = f.Read(testOwner, fd, buf)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, "hello world", string(buf))

	require.NoError(t, f.Close(testOwner, fd))
	require.NoError(t, f.Unlink(testOwner, "f"))

	population := 0
	for i := 0; i < fsdisk.BitmapBits; i++ {
		if f.inodeBitmap.Get(i) {
			population++
		}
	}
	assert.Equal(t, 1, population, "only the root inode should remain allocated")
}

// TestOpenCreatTwiceFindsSameFile reproduces spec §8's round-trip
// property: open(name, 0)...close(); open(name, CREAT)...close() twice
// must find the file the second time rather than creating a duplicate.
func TestOpenCreatTwiceFindsSameFile(t *testing.T) {
	f := newTestFS(t)

	fd1, err := f.Open(testOwner, "dup", ModeRDWR|ModeCREAT)
	require.NoError(t, err)
	_, err = f.Write(testOwner, fd1, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, f.Close(testOwner, fd1))

	fd2, err := f.Open(testOwner, "dup", ModeRDWR|ModeCREAT)
	require.NoError(t, err)
	buf := make([]byte, 1)
	n, err := f.Read(testOwner, fd2, buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "x", string(buf))
	require.NoError(t, f.Close(testOwner, fd2))
}

// TestMkdirChdirRmdirLeavesNoExtraDataBlocks reproduces spec §8's
// round-trip property: mkdir("a"); chdir("a"); mkdir("b"); chdir("..");
// rmdir("a") leaves the filesystem with no extra data blocks in use.
func TestMkdirChdirRmdirLeavesNoExtraDataBlocks(t *testing.T) {
	f := newTestFS(t)

	before := f.dataBitmap

	require.NoError(t, f.Mkdir(testOwner, "a"))
	require.NoError(t, f.Chdir(testOwner, "a"))
	require.NoError(t, f.Mkdir(testOwner, "b"))
	require.NoError(t, f.Chdir(testOwner, ".."))
	require.NoError(t, f.Rmdir(testOwner, "a"))

	assert.Equal(t, before, f.dataBitmap)
}

func TestRmdirRefusesRoot(t *testing.T) {
	f := newTestFS(t)
	err := f.Rmdir(testOwner, "/")
	assert.Error(t, err)
}

// TestWriteUpToMaxFilesizeSucceeds exercises spec invariant 9's bound: a
// write that exactly fills every direct block up to maxFilesize succeeds
// and leaves size == maxFilesize.
func TestWriteUpToMaxFilesizeSucceeds(t *testing.T) {
	f := newTestFS(t)
	fd, err := f.Open(testOwner, "full", ModeRDWR|ModeCREAT)
	require.NoError(t, err)

	buf := make([]byte, f.maxFilesize)
	n, err := f.Write(testOwner, fd, buf)
	require.NoError(t, err)
	assert.Equal(t, int(f.maxFilesize), n)
}

// TestWriteBeyondDirectCapacityFails exercises resizeInode's guard:
// since no indirect blocks exist, a write that would need more than
// INODE_NDIRECT blocks must fail with FSE_FULL instead of silently
// truncating or panicking on an out-of-range direct-block index.
func TestWriteBeyondDirectCapacityFails(t *testing.T) {
	f := newTestFS(t)
	f.maxFilesize = int64(fsdisk.InodeNDirect+4) * fsdisk.BlockSize
	fd, err := f.Open(testOwner, "toobig", ModeRDWR|ModeCREAT)
	require.NoError(t, err)

	buf := make([]byte, f.maxFilesize)
	_, err = f.Write(testOwner, fd, buf)
	assert.ErrorIs(t, err, fserrors.Full)
}

func TestLinkAndUnlinkAdjustNlinks(t *testing.T) {
	f := newTestFS(t)
	fd, err := f.Open(testOwner, "orig", ModeRDWR|ModeCREAT)
	require.NoError(t, err)
	require.NoError(t, f.Close(testOwner, fd))

	require.NoError(t, f.Link(testOwner, "alias", "orig"))

	st, err := statByPath(t, f, "alias")
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.NLinks)

	require.NoError(t, f.Unlink(testOwner, "orig"))
	st, err = statByPath(t, f, "alias")
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.NLinks)

	require.NoError(t, f.Unlink(testOwner, "alias"))
	_, err = f.name2Inode(testOwner, "alias")
	assert.ErrorIs(t, err, fserrors.NotExist)
}

func statByPath(t *testing.T, f *FileSystem, name string) (Stat, error) {
	t.Helper()
	fd, err := f.Open(testOwner, name, ModeRDONLY)
	if err != nil {
		return Stat{}, err
	}
	defer f.Close(testOwner, fd)
	return f.StatFD(testOwner, fd)
}

func TestOpenNonexistentWithoutCreatFails(t *testing.T) {
	f := newTestFS(t)
	_, err := f.Open(testOwner, "nope", ModeRDONLY)
	assert.ErrorIs(t, err, fserrors.NotExist)
}

func TestOpenDirectoryAsFileFails(t *testing.T) {
	f := newTestFS(t)
	require.NoError(t, f.Mkdir(testOwner, "adir"))
	_, err := f.Open(testOwner, "adir", ModeRDONLY)
	assert.ErrorIs(t, err, fserrors.DirIsFile)
}

// TestDirectoryInvariants reproduces spec §8 invariant 8: directory size
// is an exact multiple of the entry record size, and every live
// directory contains "." referring to itself and ".." referring to its
// parent (root's ".." refers to root).
func TestDirectoryInvariants(t *testing.T) {
	f := newTestFS(t)
	require.NoError(t, f.Mkdir(testOwner, "sub"))

	rootEntries, err := f.listDirEntries(&f.inodes[f.super.RootInode])
	require.NoError(t, err)
	assertDotDot(t, rootEntries, f.super.RootInode, f.super.RootInode)

	subIno, err := f.name2Inode(testOwner, "sub")
	require.NoError(t, err)
	assert.Equal(t, int64(0), int64(f.inodes[subIno].Size)%fsdisk.DirEntrySize)

	subEntries, err := f.listDirEntries(&f.inodes[subIno])
	require.NoError(t, err)
	assertDotDot(t, subEntries, subIno, f.super.RootInode)
}

func assertDotDot(t *testing.T, entries []fsdisk.DirEntry, self, parent int32) {
	t.Helper()
	var gotSelf, gotParent bool
	for _, e := range entries {
		switch e.Name {
		case ".":
			assert.Equal(t, self, e.InodeNum)
			gotSelf = true
		case "..":
			assert.Equal(t, parent, e.InodeNum)
			gotParent = true
		}
	}
	assert.True(t, gotSelf, `directory missing "." entry`)
	assert.True(t, gotParent, `directory missing ".." entry`)
}

// TestDataBlockAllocationMatchesInvariant9 reproduces spec §8 invariant
// 9: the number of allocated direct blocks equals ceil(size/BLOCK_SIZE).
func TestDataBlockAllocationMatchesInvariant9(t *testing.T) {
	f := newTestFS(t)
	fd, err := f.Open(testOwner, "sized", ModeRDWR|ModeCREAT)
	require.NoError(t, err)

	buf := make([]byte, fsdisk.BlockSize) // exact multiple of BLOCK_SIZE
	_, err = f.Write(testOwner, fd, buf)
	require.NoError(t, err)

	ino, err := f.name2Inode(testOwner, "sized")
	require.NoError(t, err)
	n := &f.inodes[ino]
	allocated := 0
	for _, b := range n.Direct {
		if b != fsdisk.Unallocated {
			allocated++
		}
	}
	assert.Equal(t, 1, allocated, "an exact-multiple size must not over-allocate a trailing block")
}

// TestAllocInodeReturnsNoMoreInodesWhenTableFull reproduces a reviewer
// finding: GetFreeEntry scans the full 2048-bit bitmap and can hand back
// an index past len(fs.inodes) long before the bitmap itself is full.
// allocInode must report FSE_NOMOREINODES instead of indexing fs.inodes
// out of range, and must give the bit back so it doesn't leak.
func TestAllocInodeReturnsNoMoreInodesWhenTableFull(t *testing.T) {
	f := newTestFS(t)

	// Root already holds inode 0; fill the remaining maxInodes-1 slots.
	// Each fd is closed again so the 16-slot open-file table never fills.
	for i := 0; i < f.maxInodes-1; i++ {
		name := fmt.Sprintf("f%d", i)
		fd, err := f.Open(testOwner, name, ModeRDWR|ModeCREAT)
		require.NoError(t, err)
		require.NoError(t, f.Close(testOwner, fd))
	}

	// The table is now full; the next create must fail cleanly rather
	// than panic with an out-of-range index.
	_, err := f.Open(testOwner, "overflow", ModeRDWR|ModeCREAT)
	assert.ErrorIs(t, err, fserrors.NoMoreInodes)

	// The bit GetFreeEntry handed out past the table bound must have been
	// given back: a subsequent free + retry still works instead of
	// permanently wasting bitmap slots 32..2047.
	require.NoError(t, f.Unlink(testOwner, "f0"))
	_, err = f.Open(testOwner, "reuse", ModeRDWR|ModeCREAT)
	require.NoError(t, err)
}

// TestResizeInodeReturnsFullWhenDataBlocksExhausted reproduces a
// reviewer finding: the data bitmap has 2048 bits but the filesystem's
// actual data region only has ndata_blks blocks. resizeInode must stop
// handing out blocks at that bound instead of letting transfer compute a
// sector past the data region.
func TestResizeInodeReturnsFullWhenDataBlocksExhausted(t *testing.T) {
	dev := blockdev.NewMemory(256)
	layout := fsdisk.Layout{SuperBlockStart: 0, MaxInodes: 32}
	f := New(dev, layout, 32, int64(fsdisk.InodeNDirect)*fsdisk.BlockSize)
	const ndataBlocks = 2 // far smaller than the 2048-bit bitmap scan range
	require.NoError(t, f.Init(ndataBlocks))

	fd, err := f.Open(testOwner, "f", ModeRDWR|ModeCREAT)
	require.NoError(t, err)

	// Root's "." and ".." already consumed one data block, leaving one
	// free; a write needing two more direct blocks must fail with
	// FSE_FULL, not read/write past the data region.
	buf := make([]byte, 3*fsdisk.BlockSize)
	_, err = f.Write(testOwner, fd, buf)
	assert.ErrorIs(t, err, fserrors.Full)
}
