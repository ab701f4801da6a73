package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/leengari/tree-tutor/internal/bundle"
	"github.com/leengari/tree-tutor/internal/query"
	"github.com/leengari/tree-tutor/internal/session"
	"github.com/leengari/tree-tutor/internal/treeconfig"
	"github.com/leengari/tree-tutor/internal/view"
)

// Operations understood by the handler
const (
	OpBuild = "build"
	OpStep  = "step"
	OpBack  = "back"
	OpReset = "reset"
	OpQuery = "query"
	OpData  = "data"
	OpState = "state"
	OpStash = "stash"
	OpExit  = "exit"
)

const (
	MsgNoTree       = "You have to build a tree before you can run a query."
	MsgReset        = "Your session has been reset."
	MsgStashUpdated = "Your stash has been updated."
	MsgInvalidInput = "It appears that you have entered an invalid Input. Double check to make sure that " +
		"you haven't forgotten a data value or are missing a ','."
)

var ErrUnknownOp = errors.New("unknown operation")

// noData is returned for a node whose title carries no data marker
var noData = json.RawMessage(`"None"`)

// Request is one client call. Only the fields the operation needs are read.
type Request struct {
	Op            string `json:"op"`
	UID           string `json:"uid,omitempty"`
	Input         string `json:"input,omitempty"`
	Configuration string `json:"configuration,omitempty"`
	Path          string `json:"path,omitempty"`
	Ops           string `json:"ops,omitempty"`
	Stash         string `json:"stash,omitempty"`
}

// Response is the answer to a Request. Tree is the serialized view for
// build, step and back.
type Response struct {
	UID     string          `json:"uid"`
	Tree    json.RawMessage `json:"tree,omitempty"`
	Table   *query.Table    `json:"table,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	State   *session.State  `json:"state,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Handler dispatches requests to the session registry. It is shared by
// the TCP and HTTP front ends.
type Handler struct {
	registry *session.Registry
}

func NewHandler(registry *session.Registry) *Handler {
	return &Handler{registry: registry}
}

// Handle runs one request. A request without a uid gets a fresh one,
// returned in the response. On error the response carries the uid and
// the error is returned for the caller to report.
func (h *Handler) Handle(ctx context.Context, req Request) (*Response, error) {
	if req.UID == "" {
		req.UID = uuid.NewString()
	}
	res := &Response{UID: req.UID}

	var cursor *session.Cursor
	switch req.Op {
	case OpQuery, OpData:
		// reads never create a session
		var ok bool
		if cursor, ok = h.registry.Lookup(req.UID); !ok {
			return res, noSession(req, res)
		}
	default:
		var err error
		if cursor, err = h.registry.Get(req.UID); err != nil {
			return res, err
		}
	}

	switch req.Op {
	case OpBuild:
		nodes, err := cursor.Build(ctx, req.Input, req.Configuration)
		if err != nil {
			return res, err
		}
		return res, setTree(res, nodes)

	case OpStep:
		nodes, err := cursor.Step(ctx, req.Input, req.Configuration)
		if err != nil {
			return res, err
		}
		return res, setTree(res, nodes)

	case OpBack:
		nodes, ok, err := cursor.Back(ctx, req.Input, req.Configuration)
		if err != nil {
			return res, err
		}
		if !ok {
			nodes = nil
		}
		return res, setTree(res, nodes)

	case OpReset:
		if err := cursor.Reset(); err != nil {
			return res, err
		}
		res.Message = MsgReset
		return res, nil

	case OpQuery:
		return res, h.query(ctx, cursor, req, res)

	case OpData:
		if !strings.HasSuffix(req.Path, view.DataMarker) {
			res.Data = noData
			return res, nil
		}
		data, err := cursor.Data(req.Path)
		if err != nil {
			return res, err
		}
		if data == nil {
			data = noData
		}
		res.Data = data
		return res, nil

	case OpState:
		state := cursor.State()
		res.State = &state
		return res, nil

	case OpStash:
		cursor.UpdateStash(req.Stash)
		res.Message = MsgStashUpdated
		return res, nil

	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownOp, req.Op)
	}
}

func (h *Handler) query(ctx context.Context, cursor *session.Cursor, req Request, res *Response) error {
	result, err := cursor.Query(ctx, req.Path, req.Ops)
	switch {
	case errors.Is(err, session.ErrNoTree):
		res.Message = MsgNoTree
		return nil
	case err != nil:
		if msg, checkErr := cursor.CheckPath(req.Path); checkErr == nil {
			return fmt.Errorf("%w\n%s", err, msg)
		}
		return err
	}
	res.Table = result.Table
	res.Message = result.Message
	return nil
}

// noSession answers a read for a uid with no live session
func noSession(req Request, res *Response) error {
	switch {
	case req.Op == OpQuery:
		res.Message = MsgNoTree
		return nil
	case !strings.HasSuffix(req.Path, view.DataMarker):
		res.Data = noData
		return nil
	}
	return session.ErrNoTree
}

func setTree(res *Response, nodes []*view.Node) error {
	tree, err := view.Serialize(nodes)
	if err != nil {
		return err
	}
	res.Tree = tree
	return nil
}

// IsClientError reports whether err was caused by the request rather
// than by the server
func IsClientError(err error) bool {
	return bundle.IsInputError(err) ||
		errors.Is(err, treeconfig.ErrInvalid) ||
		errors.Is(err, query.ErrBadPath) ||
		errors.Is(err, query.ErrBadOp) ||
		errors.Is(err, session.ErrNoTree) ||
		errors.Is(err, session.ErrNotFound) ||
		errors.Is(err, ErrUnknownOp)
}

// ErrorMessage is the text shown to a client for err
func ErrorMessage(err error) string {
	if errors.Is(err, bundle.ErrShortRow) || errors.Is(err, bundle.ErrHeaderMissing) {
		return MsgInvalidInput + " (" + err.Error() + ")"
	}
	return err.Error()
}
