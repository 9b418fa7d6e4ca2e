package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssembleNormalizesWhitespaceTrailingSpaceAndSentenceCase(t *testing.T) {
	t.Parallel()

	got := Assemble([]string{" hello", "world.", "\nhow", "are", "you"}, Options{
		TrailingSpace:       true,
		CapitalizeSentences: true,
	})
	require.Equal(t, "Hello world. How are you ", got)
}

func TestAssembleWithoutOptionsJoinsVerbatim(t *testing.T) {
	t.Parallel()

	require.Equal(t, "HELLO THANK-YOU", Assemble([]string{"HELLO", "THANK-YOU"}, Options{}))
}

func TestAssembleLowercasesClassifierLabels(t *testing.T) {
	t.Parallel()

	got := Assemble([]string{"HELLO", "I", "LOVE", "YOU"}, Options{
		Lowercase:           true,
		CapitalizeSentences: true,
	})
	require.Equal(t, "Hello I love you", got)
}

func TestAssembleEmptyInput(t *testing.T) {
	t.Parallel()

	require.Empty(t, Assemble(nil, Options{TrailingSpace: true, CapitalizeSentences: true}))
	require.Empty(t, Assemble([]string{"  ", "\n\t"}, Options{TrailingSpace: true}))
}

func TestAssembleSentenceCaseCapitalizesPronounI(t *testing.T) {
	t.Parallel()

	got := Assemble([]string{"when i sign i'm clearer. i think i will keep going!", "yes"}, Options{
		CapitalizeSentences: true,
	})
	require.Equal(t, "When I sign I'm clearer. I think I will keep going! Yes", got)
}

func TestAssembleIdempotentForNormalizedOutput(t *testing.T) {
	t.Parallel()

	opts := Options{Lowercase: true, CapitalizeSentences: true}
	first := Assemble([]string{"HELLO. MY NAME"}, opts)
	second := Assemble([]string{first}, opts)
	require.Equal(t, first, second)
	require.Equal(t, "Hello. My name", first)
}

func TestSentenceCaseEdges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "3 cats. then dogs", want: "3 cats. Then dogs"},
		{in: `"hello" she said`, want: `"Hello" she said`},
		{in: "is it? i’ll see", want: "Is it? I’ll see"},
		{in: "india is big", want: "India is big"},
		{in: "why i. ok", want: "Why I. Ok"},
		{in: "item (i) here", want: "Item (I) here"},
		{in: "... wait", want: "... Wait"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, sentenceCase(tc.in), tc.in)
	}
}
