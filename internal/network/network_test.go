package network

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gotest.tools/v3/assert"

	"github.com/leengari/tree-tutor/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	testInput = "team, computer, name\n" +
		"Data, Mac, Matt\n" +
		"Data, Lenovo, Michael\n" +
		"Data, Lenovo, Eric\n"

	testConfig = "root: {path: SAMPLE}\n" +
		"paths:\n" +
		"  SAMPLE:\n" +
		"    - {const: team}\n" +
		"    - {field: team}\n" +
		"    - {field: computer, data: {tcomp: {type: key.top, key: computer, size: 10}}}\n" +
		"    - {field: name}\n"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	registry, err := session.NewRegistry(t.TempDir(), 10, time.Hour)
	assert.NilError(t, err)
	t.Cleanup(func() { registry.Close() })
	return NewHandler(registry)
}

func get(t *testing.T, router http.Handler, endpoint string, params url.Values, cookies ...*http.Cookie) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/tree/"+endpoint+"?"+params.Encode(), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var res Response
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return rec, res
}

// =============================================================================
// HANDLER
// =============================================================================

func TestHandleOperations(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	res, err := h.Handle(ctx, Request{Op: OpQuery, UID: "u", Path: "team/+"})
	assert.NilError(t, err)
	assert.Equal(t, MsgNoTree, res.Message)

	res, err = h.Handle(ctx, Request{Op: OpStep, UID: "u", Input: testInput, Configuration: testConfig})
	assert.NilError(t, err)
	assert.Equal(t, `[{"title":"team","children":[{"title":"Data","children":[{"title":"Mac*","children":[{"title":"Matt","children":[],"folder":false}],"folder":true}],"folder":true}],"folder":true}]`,
		string(res.Tree))

	res, err = h.Handle(ctx, Request{Op: OpBack, UID: "u", Input: testInput, Configuration: testConfig})
	assert.NilError(t, err)
	assert.Equal(t, "[]", string(res.Tree))

	res, err = h.Handle(ctx, Request{Op: OpBuild, UID: "u", Input: testInput, Configuration: testConfig})
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(string(res.Tree), `"Lenovo*"`))

	res, err = h.Handle(ctx, Request{Op: OpQuery, UID: "u", Path: "team/Data/+:+hits", Ops: "sort=1:n:d"})
	assert.NilError(t, err)
	assert.DeepEqual(t, [][]string{{"Lenovo", "2"}, {"Mac", "1"}}, res.Table.Rows)

	res, err = h.Handle(ctx, Request{Op: OpData, UID: "u", Path: "team/Data/Lenovo*"})
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(string(res.Data), `"Lenovo":2`))

	res, err = h.Handle(ctx, Request{Op: OpData, UID: "u", Path: "team/Data"})
	assert.NilError(t, err)
	assert.Equal(t, `"None"`, string(res.Data))

	res, err = h.Handle(ctx, Request{Op: OpStash, UID: "u", Stash: "[1]"})
	assert.NilError(t, err)
	assert.Equal(t, MsgStashUpdated, res.Message)

	res, err = h.Handle(ctx, Request{Op: OpState, UID: "u"})
	assert.NilError(t, err)
	assert.Equal(t, "[1]", res.State.Stash)
	assert.Equal(t, "team/Data/+:+hits", res.State.Path)

	res, err = h.Handle(ctx, Request{Op: OpReset, UID: "u"})
	assert.NilError(t, err)
	assert.Equal(t, MsgReset, res.Message)
}

func TestHandleErrors(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	tests := []struct {
		req    Request
		client bool
		text   string
	}{
		{Request{Op: OpBuild, UID: "e", Input: "a, b\nx\n", Configuration: "paths: {root: [{field: a}]}"}, true, MsgInvalidInput},
		{Request{Op: OpBuild, UID: "e", Input: "a\nx\n", Configuration: "paths: {}"}, true, ""},
		{Request{Op: OpBuild, UID: "e", Input: "a, b\nx, 1.2.3\n", Configuration: "paths: {root: [{field: a}]}"}, true, ""},
		{Request{Op: "explode", UID: "e"}, true, "unknown operation"},
		{Request{Op: OpData, UID: "e", Path: "nothing*"}, true, "no tree"},
	}

	for i, tt := range tests {
		res, err := h.Handle(ctx, tt.req)
		if err == nil {
			t.Fatalf("tests[%d] - expected an error", i)
		}
		assert.Equal(t, "e", res.UID)
		if IsClientError(err) != tt.client {
			t.Errorf("tests[%d] - client error = %v, want %v (%v)", i, !tt.client, tt.client, err)
		}
		if !strings.Contains(ErrorMessage(err), tt.text) {
			t.Errorf("tests[%d] - message %q does not contain %q", i, ErrorMessage(err), tt.text)
		}
	}
}

func TestHandleBadQueryExplainsPath(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	_, err := h.Handle(ctx, Request{Op: OpBuild, UID: "q", Input: testInput, Configuration: testConfig})
	assert.NilError(t, err)

	_, err = h.Handle(ctx, Request{Op: OpQuery, UID: "q", Path: "team/+:+bogus"})
	assert.Assert(t, IsClientError(err))
	assert.Assert(t, strings.Contains(err.Error(), "\n"))

	res, err := h.Handle(ctx, Request{Op: OpQuery, UID: "q", Path: "team/Sales/+"})
	assert.NilError(t, err)
	assert.Equal(t, 0, res.Table.Len())
	assert.Assert(t, strings.Contains(res.Message, "'Sales' is a valid branch"))
}

func TestHandleReadsDoNotCreateSessions(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	res, err := h.Handle(ctx, Request{Op: OpQuery, UID: "nobody", Path: "team/+"})
	assert.NilError(t, err)
	assert.Equal(t, MsgNoTree, res.Message)

	res, err = h.Handle(ctx, Request{Op: OpData, UID: "nobody", Path: "team"})
	assert.NilError(t, err)
	assert.Equal(t, `"None"`, string(res.Data))

	_, err = h.Handle(ctx, Request{Op: OpData, UID: "nobody", Path: "team*"})
	assert.Assert(t, errors.Is(err, session.ErrNoTree))
	assert.Assert(t, IsClientError(err))

	assert.Equal(t, 0, h.registry.Len())

	_, err = h.Handle(ctx, Request{Op: OpState, UID: "nobody"})
	assert.NilError(t, err)
	assert.Equal(t, 1, h.registry.Len())
}

func TestHandleMintsUID(t *testing.T) {
	h := newTestHandler(t)
	res, err := h.Handle(context.Background(), Request{Op: OpState})
	assert.NilError(t, err)
	assert.Assert(t, res.UID != "")
	assert.Equal(t, session.DefaultConfiguration, res.State.Configuration)
}

// =============================================================================
// HTTP
// =============================================================================

func TestRouter(t *testing.T) {
	router := NewRouter(newTestHandler(t))

	rec, res := get(t, router, "build", url.Values{
		"inputText":     {testInput},
		"configuration": {testConfig},
		"uid":           {"web"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "web", res.UID)
	assert.Assert(t, strings.HasPrefix(string(res.Tree), `[{"title":"team"`))

	rec, res = get(t, router, "query", url.Values{"uid": {"web"}, "path": {"team/Data/+"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.DeepEqual(t, [][]string{{"Lenovo"}, {"Mac"}}, res.Table.Rows)

	rec, res = get(t, router, "build", url.Values{
		"inputText":     {"team, computer, name\nData, Mac\n"},
		"configuration": {testConfig},
		"uid":           {"web"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Assert(t, strings.HasPrefix(res.Error, MsgInvalidInput))

	rec, res = get(t, router, "build", url.Values{
		"inputText":     {testInput},
		"configuration": {"paths: [not, a, map]"},
		"uid":           {"web"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Assert(t, res.Error != "")

	rec, res = get(t, router, "reset", url.Values{"uid": {"web"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgReset, res.Message)
}

func TestRouterCookieSession(t *testing.T) {
	router := NewRouter(newTestHandler(t))

	rec, res := get(t, router, "updateStash", url.Values{"stash": {`["x"]`}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Assert(t, res.UID != "")

	cookies := rec.Result().Cookies()
	assert.Equal(t, 1, len(cookies))
	assert.Equal(t, uidCookie, cookies[0].Name)
	assert.Equal(t, res.UID, cookies[0].Value)

	_, state := get(t, router, "getState", url.Values{}, cookies[0])
	assert.Equal(t, res.UID, state.UID)
	assert.Equal(t, `["x"]`, state.State.Stash)
}

// =============================================================================
// TCP
// =============================================================================

func TestServeTCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, newTestHandler(t)) }()

	conn, err := net.Dial("tcp", listener.Addr().String())
	assert.NilError(t, err)
	defer conn.Close()

	encoder := json.NewEncoder(conn)
	decoder := json.NewDecoder(conn)

	requests := []Request{
		{Op: OpStep, UID: "tcp", Input: testInput, Configuration: testConfig},
		{Op: OpStep, UID: "tcp", Input: testInput, Configuration: testConfig},
		{Op: OpQuery, UID: "tcp", Path: "team/Data/+:+hits"},
		{Op: OpBuild, UID: "tcp", Input: "a, b\nx\n", Configuration: testConfig},
	}
	var responses []Response
	for i, req := range requests {
		if err := encoder.Encode(req); err != nil {
			t.Fatalf("tests[%d] - failed to send request: %v", i, err)
		}
		var res Response
		if err := decoder.Decode(&res); err != nil {
			t.Fatalf("tests[%d] - failed to decode response: %v", i, err)
		}
		responses = append(responses, res)
	}

	assert.Assert(t, strings.Contains(string(responses[1].Tree), `"Lenovo*"`))
	assert.DeepEqual(t, [][]string{{"Lenovo", "1"}, {"Mac", "1"}}, responses[2].Table.Rows)
	assert.Assert(t, strings.HasPrefix(responses[3].Error, MsgInvalidInput))

	// a malformed request ends the connection with an error response
	_, err = conn.Write([]byte("{not json}\n"))
	assert.NilError(t, err)
	var res Response
	assert.NilError(t, decoder.Decode(&res))
	assert.Assert(t, strings.HasPrefix(res.Error, "Invalid request format"))

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
