package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/iati-export/internal/types"
)

func activities(raw ...string) []*types.Activity {
	out := make([]*types.Activity, len(raw))
	for i, r := range raw {
		out[i] = &types.Activity{IATIIdentifier: "X", RawXML: r}
	}
	return out
}

// wellFormed parses the whole document and fails on any syntax error.
func wellFormed(t *testing.T, doc []byte) {
	t.Helper()
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	for {
		_, err := decoder.RawToken()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
	}
}

func TestGenerateWrapsRawMarkup(t *testing.T) {
	doc := Generate(activities("<test />"), DefaultOptions())

	require.Equal(t,
		"<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<iati-activities>\n<test />\n</iati-activities>\n",
		string(doc))
	wellFormed(t, doc)
}

func TestGenerateRoundTripsUnicode(t *testing.T) {
	raw := "<iati-activity><title>Snowman ☃ and naïve café</title></iati-activity>"
	doc := Generate(activities(raw), DefaultOptions())

	require.Contains(t, string(doc), raw)
	wellFormed(t, doc)
}

func TestGenerateKeepsUnboundPrefix(t *testing.T) {
	doc := Generate(activities("<t:test />"), DefaultOptions())

	require.Contains(t, string(doc), "<t:test />")
	wellFormed(t, doc)
}

func TestGenerateEmpty(t *testing.T) {
	doc := Generate(nil, Options{RootElement: "iati-activities"})

	require.Equal(t, "<iati-activities></iati-activities>", string(doc))
	wellFormed(t, doc)
}

func TestGenerateRootAttributes(t *testing.T) {
	options := DefaultOptions()
	options.Version = "2.03"
	options.GeneratedAt = time.Date(2024, 1, 15, 14, 30, 0, 0, time.FixedZone("X", 3600))

	doc := string(Generate(activities("<a/>", "<b/>"), options))

	require.Contains(t, doc, `<iati-activities version="2.03" generated-datetime="2024-01-15T13:30:00Z">`)
	require.Less(t, strings.Index(doc, "<a/>"), strings.Index(doc, "<b/>"))
}

func TestStreamChunks(t *testing.T) {
	pulled := 0
	seq := func(yield func(*types.Activity) bool) {
		for _, a := range activities("<a/>", "<b/>") {
			pulled++
			if !yield(a) {
				return
			}
		}
	}

	stream := NewStream(seq, Options{})
	defer stream.Close()

	require.True(t, stream.Next())
	require.Equal(t, "<iati-activities>", string(stream.Chunk()))
	require.Equal(t, 0, pulled)

	require.True(t, stream.Next())
	require.Equal(t, "<a/>", string(stream.Chunk()))
	require.True(t, stream.Next())
	require.Equal(t, "<b/>", string(stream.Chunk()))

	require.True(t, stream.Next())
	require.Equal(t, "</iati-activities>", string(stream.Chunk()))
	require.False(t, stream.Next())

	require.Equal(t, 2, stream.Count())
	require.NoError(t, stream.Err())
}

func TestStreamCloseStopsInput(t *testing.T) {
	released := false
	seq := func(yield func(*types.Activity) bool) {
		defer func() { released = true }()
		for {
			if !yield(&types.Activity{RawXML: "<a/>"}) {
				return
			}
		}
	}

	stream := XML(seq)
	require.True(t, stream.Next())
	require.True(t, stream.Next())
	require.NoError(t, stream.Close())

	require.True(t, released)
	require.False(t, stream.Next())
}
