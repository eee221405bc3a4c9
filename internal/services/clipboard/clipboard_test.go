package clipboard_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/ctxtree/internal/services/clipboard"
)

type recordingCopier struct {
	copied []string
	err    error
}

func (copier *recordingCopier) Copy(text string) error {
	copier.copied = append(copier.copied, text)
	return copier.err
}

func TestCapturingWriterMirrorsAndCopies(testingInstance *testing.T) {
	var destination bytes.Buffer
	copier := &recordingCopier{}
	writer := clipboard.NewCapturingWriter(&destination, copier)

	_, writeError := fmt.Fprint(writer, "project\n└─ main.go\n")
	require.NoError(testingInstance, writeError)
	require.Equal(testingInstance, "project\n└─ main.go\n", destination.String())
	require.Empty(testingInstance, copier.copied)

	require.NoError(testingInstance, writer.Flush())
	require.Equal(testingInstance, []string{"project\n└─ main.go\n"}, copier.copied)
}

func TestCapturingWriterWithoutDestination(testingInstance *testing.T) {
	copier := &recordingCopier{}
	writer := clipboard.NewCapturingWriter(nil, copier)
	_, writeError := writer.Write([]byte("tree"))
	require.NoError(testingInstance, writeError)
	require.Equal(testingInstance, "tree", writer.Captured())
}

func TestCapturingWriterPropagatesCopyError(testingInstance *testing.T) {
	copyError := errors.New("no clipboard")
	writer := clipboard.NewCapturingWriter(nil, &recordingCopier{err: copyError})
	require.ErrorIs(testingInstance, writer.Flush(), copyError)
}
