package files

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wordstep/wordstep/protocol"
)

func TestDirSource(t *testing.T) {
	require := require.New(t)

	root := t.TempDir()
	err := os.WriteFile(filepath.Join(root, "greeting.txt"), []byte("hello world END\n"), 0644)
	require.Nil(err)
	err = os.Mkdir(filepath.Join(root, "folder"), 0755)
	require.Nil(err)

	source := NewDirSource(root)
	r, err := source.Open("greeting.txt")
	require.Nil(err)
	var words []string
	for {
		w, err := r.Next()
		if err == io.EOF {
			break
		}
		require.Nil(err)
		words = append(words, w)
	}
	require.Nil(r.Close())
	require.Equal([]string{"hello", "world", "END"}, words)

	_, err = source.Open("missing.txt")
	require.ErrorIs(err, protocol.ErrFileNotFound)
	_, err = source.Open("folder")
	require.ErrorIs(err, protocol.ErrFileNotFound)
	_, err = source.Open("")
	require.ErrorIs(err, protocol.ErrFileNotFound)
	require.ErrorIs(err, protocol.ErrEmptyFilename)
}

func TestFileSink(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "client", "received_file.txt")
	sink := NewFileSink(path)

	w, err := sink.Create()
	require.Nil(err)
	require.Nil(w.WriteWord("stale"))
	require.Nil(w.WriteWord("content"))
	require.Nil(w.WriteWord("here"))
	require.Nil(w.Close())

	w, err = sink.Create()
	require.Nil(err)
	require.Nil(w.WriteWord("hello"))
	require.Nil(w.WriteWord("world"))
	require.Nil(w.Close())

	data, err := os.ReadFile(path)
	require.Nil(err)
	require.Equal("hello\nworld\n", string(data))

	require.Nil(sink.Remove())
	_, err = os.Stat(path)
	require.True(os.IsNotExist(err))
	require.Nil(sink.Remove())

	blocked := filepath.Join(t.TempDir(), "file")
	require.Nil(os.WriteFile(blocked, nil, 0644))
	_, err = NewFileSink(filepath.Join(blocked, "out.txt")).Create()
	require.ErrorIs(err, protocol.ErrFileAccess)
}
