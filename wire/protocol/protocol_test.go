package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGet(t *testing.T) {
	req := ParseRequest("GET mykey")
	require.Equal(t, TypeGet, req.Type)
	assert.Equal(t, "mykey", req.Key)
}

func TestParsePut(t *testing.T) {
	req := ParseRequest("PUT mykey myvalue")
	require.Equal(t, TypePut, req.Type)
	assert.Equal(t, "mykey", req.Key)
	assert.Equal(t, "myvalue", req.Value)
}

func TestParsePutValueWithSpaces(t *testing.T) {
	// the value extends to the end of the line
	req := ParseRequest("PUT foo bar baz qux")
	require.Equal(t, TypePut, req.Type)
	assert.Equal(t, "foo", req.Key)
	assert.Equal(t, "bar baz qux", req.Value)
}

func TestParseUnknown(t *testing.T) {
	for _, line := range []string{
		"",
		"DELETE key",
		"get key", // case-sensitive
		"GETkey",
		"PUT keyonly",
		"PUT  ", // empty key
		"garbage",
	} {
		req := ParseRequest(line)
		assert.Equal(t, TypeUnknown, req.Type, "line %q", line)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	for _, req := range []Request{
		NewGetRequest("k"),
		NewPutRequest("k", "v"),
		NewPutRequest("k", "value with spaces"),
	} {
		assert.Equal(t, req, ParseRequest(req.String()))
	}
}

func TestResponseOK(t *testing.T) {
	resp := NewOKResponse()
	assert.Equal(t, "OK", resp.String())

	parsed := ParseResponse("OK")
	assert.True(t, parsed.OK)
	assert.False(t, parsed.HasValue)
}

func TestResponseValue(t *testing.T) {
	resp := NewValueResponse("bar baz")
	assert.Equal(t, "VALUE bar baz", resp.String())

	parsed := ParseResponse("VALUE bar baz")
	require.True(t, parsed.OK)
	assert.Equal(t, "bar baz", parsed.Value)
}

func TestResponseEmptyValue(t *testing.T) {
	// a hit with an empty value is still a VALUE response, not an OK
	resp := NewValueResponse("")
	assert.Equal(t, "VALUE ", resp.String())

	parsed := ParseResponse("VALUE ")
	require.True(t, parsed.OK)
	assert.True(t, parsed.HasValue)
	assert.Empty(t, parsed.Value)
}

func TestResponseError(t *testing.T) {
	resp := NewNotFoundResponse("mykey")
	assert.Equal(t, "ERROR Key not found: mykey", resp.String())

	parsed := ParseResponse("ERROR Key not found: mykey")
	require.False(t, parsed.OK)
	assert.Equal(t, "Key not found: mykey", parsed.Err)
}

func TestResponseMalformed(t *testing.T) {
	parsed := ParseResponse("NONSENSE")
	assert.False(t, parsed.OK)
	assert.NotEmpty(t, parsed.Err)
}
