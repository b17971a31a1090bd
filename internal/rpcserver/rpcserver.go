// Package rpcserver implements the method-dispatch RPC surface: a fixed
// HTTP path accepting namespaced method calls ("<prefix>.<method>")
// against exactly the whitelisted operation set, with every result
// materialized into a plain JSON value before it crosses the wire.
package rpcserver

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/simsearch/simsearch/internal/simindex"
)

// whitelist is the exact method set a remote shard exposes. Anything else
// is rejected as unsupported, whether or not the underlying index could
// technically serve it (IndexFiles, IndexFilenames, and LoadStoplist are
// valid SimIndex operations but never cross this transport).
var whitelist = map[string]bool{
	"index_urls":             true,
	"index_string_buffers":   true,
	"del_docids":             true,
	"docid_to_name":          true,
	"name_to_docid":          true,
	"postings_list":          true,
	"docids_with_terms":      true,
	"docnames_with_terms":    true,
	"set_query_scorer":       true,
	"query":                  true,
	"set_global_N":           true,
	"get_local_N":            true,
	"set_global_df_map":      true,
	"get_local_df_map":       true,
	"get_name_to_docid_map":  true,
	"config":                 true,
	"set_config":             true,
	"update_config":          true,
}

// Request is the wire shape of a single RPC call: a namespaced method name
// and its arguments as a raw JSON object, decoded per-method below.
type Request struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args"`
}

// Response is the wire envelope for every call.
type Response struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Server dispatches whitelisted RPC calls to a wrapped SimIndex under a
// fixed namespace prefix.
type Server struct {
	index  simindex.SimIndex
	prefix string
	router *chi.Mux
}

// New builds a Server that answers calls addressed to "<prefix>.<method>"
// by forwarding them to index.
func New(index simindex.SimIndex, prefix string) *Server {
	s := &Server{index: index, prefix: prefix, router: chi.NewRouter()}
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Logger)
	s.router.Post("/rpc", s.handleRPC)
	return s
}

// Router returns the server's chi.Mux so a caller can mount additional
// routes (GraphQL, websocket stats) alongside the RPC endpoint.
func (s *Server) Router() *chi.Mux { return s.router }

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("rpcserver: decode request: %w", err))
		return
	}

	method, ok := strings.CutPrefix(req.Method, s.prefix+".")
	if !ok || !whitelist[method] {
		s.writeError(w, &simindex.UnsupportedMethodError{Method: req.Method})
		return
	}

	handler, ok := s.methods()[method]
	if !ok {
		s.writeError(w, &simindex.UnsupportedMethodError{Method: req.Method})
		return
	}

	result, err := handler(req.Args)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, result)
}

// writeError logs the failure and re-raises it across the transport as an
// error envelope.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	log.Printf("rpcserver: %v", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Response{OK: false, Error: err.Error()})
}

func (s *Server) writeResult(w http.ResponseWriter, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		s.writeError(w, fmt.Errorf("rpcserver: encode result: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Response{OK: true, Result: raw})
}

// methodFunc decodes its raw args and returns a materialized result, or an
// error the caller wraps into the response envelope.
type methodFunc func(args json.RawMessage) (any, error)

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &simindex.BadRequestError{Msg: "malformed arguments: " + err.Error()}
	}
	return nil
}

// methods builds the per-call dispatch table. Built fresh per request
// (cheap: eighteen map entries) rather than stored, so the table always
// closes over the receiver without needing a separate wiring step at
// construction time.
func (s *Server) methods() map[string]methodFunc {
	return map[string]methodFunc{
		"index_string_buffers": func(args json.RawMessage) (any, error) {
			var a struct {
				Buffers []simindex.NamedBuffer `json:"buffers"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return nil, s.index.IndexStringBuffers(a.Buffers)
		},
		"index_urls": func(args json.RawMessage) (any, error) {
			var a struct {
				URLs []string `json:"urls"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return nil, s.index.IndexURLs(a.URLs)
		},
		"del_docids": func(args json.RawMessage) (any, error) {
			var a struct {
				IDs []string `json:"ids"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return nil, s.index.DelDocids(a.IDs...)
		},
		"docid_to_name": func(args json.RawMessage) (any, error) {
			var a struct {
				Docid string `json:"docid"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return s.index.DocidToName(a.Docid)
		},
		"name_to_docid": func(args json.RawMessage) (any, error) {
			var a struct {
				Name string `json:"name"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return s.index.NameToDocid(a.Name)
		},
		"postings_list": func(args json.RawMessage) (any, error) {
			var a struct {
				Term string `json:"term"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return s.index.PostingsList(a.Term)
		},
		"docids_with_terms": func(args json.RawMessage) (any, error) {
			var a struct {
				Terms []string `json:"terms"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return s.index.DocidsWithTerms(a.Terms)
		},
		"docnames_with_terms": func(args json.RawMessage) (any, error) {
			var a struct {
				Terms []string `json:"terms"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return s.index.DocnamesWithTerms(a.Terms)
		},
		"set_query_scorer": func(args json.RawMessage) (any, error) {
			var a struct {
				Scorer string `json:"scorer"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return nil, s.index.SetQueryScorer(a.Scorer)
		},
		"query": func(args json.RawMessage) (any, error) {
			var a struct {
				Q string `json:"q"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return s.index.Query(a.Q)
		},
		"set_global_N": func(args json.RawMessage) (any, error) {
			var a struct {
				N int `json:"n"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return nil, s.index.SetGlobalN(a.N)
		},
		"get_local_N": func(args json.RawMessage) (any, error) {
			return s.index.GetLocalN()
		},
		"set_global_df_map": func(args json.RawMessage) (any, error) {
			var a struct {
				DF map[string]int `json:"df"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return nil, s.index.SetGlobalDFMap(a.DF)
		},
		"get_local_df_map": func(args json.RawMessage) (any, error) {
			return s.index.GetLocalDFMap()
		},
		"get_name_to_docid_map": func(args json.RawMessage) (any, error) {
			return s.index.GetNameToDocidMap()
		},
		"config": func(args json.RawMessage) (any, error) {
			var a struct {
				Key string `json:"key"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return s.index.Config(a.Key)
		},
		"set_config": func(args json.RawMessage) (any, error) {
			var a struct {
				Key   string `json:"key"`
				Value any    `json:"value"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return nil, s.index.SetConfig(a.Key, a.Value)
		},
		"update_config": func(args json.RawMessage) (any, error) {
			var a struct {
				Values map[string]any `json:"values"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return nil, err
			}
			return nil, s.index.UpdateConfig(a.Values)
		},
	}
}
