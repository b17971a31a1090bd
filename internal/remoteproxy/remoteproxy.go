// Package remoteproxy implements a local stand-in for an index living
// behind a method-dispatch transport. It forwards exactly the whitelisted
// method set under a fixed namespace prefix and rejects everything else as
// unsupported, so to any parent collection it behaves like a leaf index.
// The transport is abstracted behind Channel so internal/rpcclient (HTTP)
// can implement it without this package knowing about HTTP.
package remoteproxy

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/simsearch/simsearch/internal/simindex"
)

// Channel is an opaque bidirectional method-dispatch transport to a remote
// index. Call invokes method with args and returns the raw JSON result
// payload.
type Channel interface {
	Call(method string, args map[string]any) (json.RawMessage, error)
}

// RemoteProxy forwards the whitelisted operation set to a remote index
// over channel, under the namespace prefix.
type RemoteProxy struct {
	channel Channel
	prefix  string
}

// New builds a RemoteProxy that namespaces every call as "<prefix>.<method>".
func New(channel Channel, prefix string) *RemoteProxy {
	return &RemoteProxy{channel: channel, prefix: prefix}
}

var _ simindex.SimIndex = (*RemoteProxy)(nil)

// IsRemote reports true, so a parent Collection's instance-scorer
// rejection policy sees this shard as crossing a transport boundary.
func (p *RemoteProxy) IsRemote() bool { return true }

func (p *RemoteProxy) method(name string) string {
	return p.prefix + "." + name
}

func (p *RemoteProxy) call(method string, args map[string]any) (json.RawMessage, error) {
	result, err := p.channel.Call(p.method(method), args)
	if err != nil {
		return nil, fmt.Errorf("remoteproxy: %s: %w", method, err)
	}
	return result, nil
}

func (p *RemoteProxy) callVoid(method string, args map[string]any) error {
	_, err := p.call(method, args)
	return err
}

func (p *RemoteProxy) callDecode(method string, args map[string]any, out any) error {
	raw, err := p.call(method, args)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("remoteproxy: %s: decode result: %w", method, err)
	}
	return nil
}

// --- methods outside the whitelist: IndexFiles, IndexFilenames, and
// LoadStoplist are not RPC methods a remote server exposes (only
// index_urls and index_string_buffers cross the wire among the ingestion
// methods, and load_stoplist never crosses at all) ---

// IndexFiles is not in the remote whitelist; streams cannot cross a
// transport boundary unmaterialised (a Collection always materialises to
// IndexStringBuffers before reaching a shard, so this path is unreachable
// through normal composition, but is still rejected explicitly here).
func (p *RemoteProxy) IndexFiles(streams []simindex.NamedStream) error {
	return &simindex.UnsupportedMethodError{Method: "index_files"}
}

// IndexFilenames is not in the remote whitelist, for the same reason as
// IndexFiles.
func (p *RemoteProxy) IndexFilenames(names []string) error {
	return &simindex.UnsupportedMethodError{Method: "index_filenames"}
}

// LoadStoplist is not in the remote whitelist; stoplist configuration
// crosses only via set_config("stoplist", ...).
func (p *RemoteProxy) LoadStoplist(r io.Reader) error {
	return &simindex.UnsupportedMethodError{Method: "load_stoplist"}
}

// --- whitelisted methods ---

func (p *RemoteProxy) IndexStringBuffers(buffers []simindex.NamedBuffer) error {
	return p.callVoid("index_string_buffers", map[string]any{"buffers": buffers})
}

func (p *RemoteProxy) IndexURLs(urls []string) error {
	return p.callVoid("index_urls", map[string]any{"urls": urls})
}

func (p *RemoteProxy) DelDocids(ids ...string) error {
	return p.callVoid("del_docids", map[string]any{"ids": ids})
}

func (p *RemoteProxy) DocidToName(docid string) (string, error) {
	var name string
	err := p.callDecode("docid_to_name", map[string]any{"docid": docid}, &name)
	return name, err
}

func (p *RemoteProxy) NameToDocid(name string) (string, error) {
	var docid string
	err := p.callDecode("name_to_docid", map[string]any{"name": name}, &docid)
	return docid, err
}

func (p *RemoteProxy) PostingsList(term string) ([]simindex.Posting, error) {
	var postings []simindex.Posting
	err := p.callDecode("postings_list", map[string]any{"term": term}, &postings)
	return postings, err
}

func (p *RemoteProxy) DocidsWithTerms(terms []string) ([]string, error) {
	var ids []string
	err := p.callDecode("docids_with_terms", map[string]any{"terms": terms}, &ids)
	return ids, err
}

func (p *RemoteProxy) DocnamesWithTerms(terms []string) ([]string, error) {
	var names []string
	err := p.callDecode("docnames_with_terms", map[string]any{"terms": terms}, &names)
	return names, err
}

func (p *RemoteProxy) Query(q string) ([]simindex.Result, error) {
	var results []simindex.Result
	err := p.callDecode("query", map[string]any{"q": q}, &results)
	return results, err
}

func (p *RemoteProxy) Config(key string) (any, error) {
	var value any
	err := p.callDecode("config", map[string]any{"key": key}, &value)
	return value, err
}

func (p *RemoteProxy) SetConfig(key string, value any) error {
	return p.callVoid("set_config", map[string]any{"key": key, "value": value})
}

func (p *RemoteProxy) UpdateConfig(values map[string]any) error {
	return p.callVoid("update_config", map[string]any{"values": values})
}

// SetQueryScorer forwards only a registry name: an instance scorer cannot
// cross the transport.
func (p *RemoteProxy) SetQueryScorer(scorer any) error {
	name, ok := scorer.(string)
	if !ok {
		return &simindex.UnsupportedMethodError{Method: "set_query_scorer(instance) across remote boundary"}
	}
	return p.callVoid("set_query_scorer", map[string]any{"scorer": name})
}

func (p *RemoteProxy) GetLocalN() (int, error) {
	var n int
	err := p.callDecode("get_local_N", nil, &n)
	return n, err
}

func (p *RemoteProxy) GetLocalDFMap() (map[string]int, error) {
	var df map[string]int
	err := p.callDecode("get_local_df_map", nil, &df)
	return df, err
}

func (p *RemoteProxy) GetNameToDocidMap() (map[string]string, error) {
	var m map[string]string
	err := p.callDecode("get_name_to_docid_map", nil, &m)
	return m, err
}

func (p *RemoteProxy) SetGlobalN(n int) error {
	return p.callVoid("set_global_N", map[string]any{"n": n})
}

func (p *RemoteProxy) SetGlobalDFMap(df map[string]int) error {
	return p.callVoid("set_global_df_map", map[string]any{"df": df})
}
