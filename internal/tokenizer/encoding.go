package tokenizer

import (
	"errors"

	"github.com/pkoukk/tiktoken-go"
)

var errMissingEncoding = errors.New("tokenizer encoding not loaded")

// encodingCounter counts tokens of rendered summaries with one tiktoken
// encoding. Special-token markers in file names are counted as plain text.
type encodingCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func newEncodingCounter(name string, encoding *tiktoken.Tiktoken) encodingCounter {
	return encodingCounter{encoding: encoding, name: name}
}

// Name returns the model or encoding the counter was created for.
func (counter encodingCounter) Name() string {
	return counter.name
}

// CountString returns the number of tokens in input.
func (counter encodingCounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errMissingEncoding
	}
	return len(counter.encoding.EncodeOrdinary(input)), nil
}
