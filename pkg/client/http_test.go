package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestHTTPClient_Execute(t *testing.T) {
	t.Parallel()

	t.Run("posts the document and decodes data", func(t *testing.T) {
		t.Parallel()

		var gotBody []byte
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotBody = readBody(t, r)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":{"tagValues":[{"name":"HMI_Tag_1","value":{"value":42}}]}}`))
		}))
		t.Cleanup(srv.Close)

		c := NewHTTPClient(srv.URL, nil, nil)
		c.SetToken("tok-1")

		var result struct {
			TagValues []*TagValue `json:"tagValues"`
		}
		err := c.Execute(context.Background(), tagValuesQuery, map[string]any{
			"names": []string{"HMI_Tag_1"},
		}, &result)

		require.NoError(t, err)
		require.Len(t, result.TagValues, 1)
		assert.Equal(t, "HMI_Tag_1", *result.TagValues[0].Name)
		assert.Equal(t, float64(42), result.TagValues[0].Value.Value)

		assert.Equal(t, "Bearer tok-1", gotAuth)
		assert.Equal(t, "HMI_Tag_1", gjson.GetBytes(gotBody, "variables.names.0").String())
		assert.Contains(t, gjson.GetBytes(gotBody, "query").String(), "tagValues")
	})

	t.Run("omits the bearer header without a token", func(t *testing.T) {
		t.Parallel()

		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{"data":{}}`))
		}))
		t.Cleanup(srv.Close)

		c := NewHTTPClient(srv.URL, nil, nil)

		require.NoError(t, c.Execute(context.Background(), sessionQuery, nil, nil))
		assert.Empty(t, gotAuth)
	})

	t.Run("graphql errors become a RequestError", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"errors":[{"message":"Cannot query field \"bogus\""}]}`))
		}))
		t.Cleanup(srv.Close)

		c := NewHTTPClient(srv.URL, nil, nil)

		err := c.Execute(context.Background(), "query { bogus }", nil, nil)

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Contains(t, reqErr.Errors[0].Message, "bogus")
	})

	t.Run("non-200 status fails", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(srv.Close)

		c := NewHTTPClient(srv.URL, nil, nil)

		err := c.Execute(context.Background(), sessionQuery, nil, nil)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}

func TestHTTPClient_Token(t *testing.T) {
	t.Parallel()

	c := NewHTTPClient("http://localhost", nil, nil)

	assert.Empty(t, c.Token())
	c.SetToken("tok-1")
	assert.Equal(t, "tok-1", c.Token())
	c.SetToken("")
	assert.Empty(t, c.Token())
}

func readBody(t *testing.T, r *http.Request) []byte {
	t.Helper()

	var buf json.RawMessage
	require.NoError(t, json.NewDecoder(r.Body).Decode(&buf))
	return buf
}
