// Package collection implements the sharded collection: a node that fans
// writes out to shards by a shard function, fans reads out to every shard
// and merges, and reconciles aggregated N/df statistics on every write.
package collection

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/simsearch/simsearch/internal/docsource"
	"github.com/simsearch/simsearch/internal/simindex"
)

// ShardFunc maps a document name (or URL) to a shard index in [0, numShards).
type ShardFunc func(name string, numShards int) int

// Collection is a node in the composition tree. It satisfies
// simindex.SimIndex by delegation to its shards, so a collection can
// itself be a shard of a larger collection.
type Collection struct {
	mu sync.Mutex

	shards    []simindex.SimIndex
	shardFunc ShardFunc
	salt      string

	root bool

	nameToNodeID map[string]string
	aggN         int
	aggDF        map[string]int

	writeDepth int
	dirty      bool

	fetcher       *docsource.Fetcher
	statsListener func(StatsEvent)
}

// StatsEvent reports a completed reconciliation: the collection's freshly
// aggregated N and df, and whether this collection is the root (and thus
// also just broadcast the override down to every shard). Consumed by
// internal/statswatch to push live updates to monitoring clients.
type StatsEvent struct {
	N    int
	DF   map[string]int
	Root bool
}

// SetStatsListener installs f to be called once per completed write
// reconciliation, after aggregated stats have been replaced. A nil
// listener (the default) disables notification.
func (c *Collection) SetStatsListener(f func(StatsEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statsListener = f
}

// New builds a Collection over shards. The default shard function hashes
// "<name><salt>" with FNV-1a and reduces mod len(shards); the salt is
// generated once per collection lifetime, so shard placement is stable for
// the process's duration but not across restarts.
func New(shards []simindex.SimIndex) *Collection {
	c := &Collection{
		shards:       shards,
		salt:         randomSalt(),
		nameToNodeID: make(map[string]string),
		aggDF:        make(map[string]int),
		fetcher:      docsource.DefaultFetcher(),
	}
	c.shardFunc = c.defaultShardFunc
	return c
}

func randomSalt() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "simsearch-fallback-salt"
	}
	return hex.EncodeToString(buf)
}

func (c *Collection) defaultShardFunc(name string, numShards int) int {
	h := fnv.New64a()
	h.Write([]byte(name))
	h.Write([]byte(c.salt))
	return int(h.Sum64() % uint64(numShards))
}

// SetShardFunc overrides the shard placement function.
func (c *Collection) SetShardFunc(f ShardFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shardFunc = f
}

var _ simindex.SimIndex = (*Collection)(nil)

// IsRemote reports false: a Collection is a local composition node even
// when some of its shards are remote proxies. Used by parent collections
// deciding whether an instance scorer may propagate.
func (c *Collection) IsRemote() bool { return false }

// remoteAware is implemented by remoteproxy.RemoteProxy to mark itself as
// crossing a transport boundary.
type remoteAware interface {
	IsRemote() bool
}

func (c *Collection) hasRemoteShard() bool {
	for _, s := range c.shards {
		if ra, ok := s.(remoteAware); ok && ra.IsRemote() {
			return true
		}
	}
	return false
}

// --- update trigger ---

// doWrite runs fn, then, if this is the outermost write call on the
// current call stack, reconciles aggregated stats and (if root)
// broadcasts them. Re-entrant: a write that internally calls another
// write (index_files -> index_string_buffers) reconciles once, at the
// outermost boundary.
func (c *Collection) doWrite(fn func() error) error {
	c.mu.Lock()
	c.writeDepth++
	c.dirty = true
	c.mu.Unlock()

	err := fn()

	c.mu.Lock()
	c.writeDepth--
	outermost := c.writeDepth == 0
	c.mu.Unlock()

	if !outermost {
		return err
	}
	if err != nil {
		return err
	}

	if recErr := c.updateNodeStats(); recErr != nil {
		return fmt.Errorf("collection: reconciliation failed: %w", recErr)
	}
	c.mu.Lock()
	c.dirty = false
	isRoot := c.root
	c.mu.Unlock()
	if isRoot {
		if bErr := c.broadcastNodeStats(); bErr != nil {
			return fmt.Errorf("collection: broadcast failed: %w", bErr)
		}
	}

	c.mu.Lock()
	listener := c.statsListener
	ev := StatsEvent{N: c.aggN, Root: isRoot}
	ev.DF = make(map[string]int, len(c.aggDF))
	for term, count := range c.aggDF {
		ev.DF[term] = count
	}
	c.mu.Unlock()
	if listener != nil {
		listener(ev)
	}
	return nil
}

// updateNodeStats fetches local N and df from every shard, sums/merges
// them, and rebuilds the name<->node-docid bijection. Replaces, never
// incrementally updates. A single shard's failure aborts the whole
// reconciliation, leaving prior aggregated state in place.
func (c *Collection) updateNodeStats() error {
	newN := 0
	newDF := make(map[string]int)
	newNameToNodeID := make(map[string]string)

	for shardIdx, shard := range c.shards {
		n, err := shard.GetLocalN()
		if err != nil {
			return fmt.Errorf("shard %d: get_local_N: %w", shardIdx, err)
		}
		newN += n

		df, err := shard.GetLocalDFMap()
		if err != nil {
			return fmt.Errorf("shard %d: get_local_df_map: %w", shardIdx, err)
		}
		for term, count := range df {
			newDF[term] += count
		}

		names, err := shard.GetNameToDocidMap()
		if err != nil {
			return fmt.Errorf("shard %d: get_name_to_docid_map: %w", shardIdx, err)
		}
		for name, innerID := range names {
			newNameToNodeID[name] = EncodeDocid(shardIdx, innerID)
		}
	}

	c.mu.Lock()
	c.aggN = newN
	c.aggDF = newDF
	c.nameToNodeID = newNameToNodeID
	c.mu.Unlock()
	return nil
}

// broadcastNodeStats pushes aggregated N and df down to every shard,
// recursing through nested collections so the global override reaches
// leaves at any depth. Only the root collection calls this.
func (c *Collection) broadcastNodeStats() error {
	c.mu.Lock()
	n := c.aggN
	df := make(map[string]int, len(c.aggDF))
	for k, v := range c.aggDF {
		df[k] = v
	}
	c.mu.Unlock()

	for shardIdx, shard := range c.shards {
		if err := shard.SetGlobalN(n); err != nil {
			return fmt.Errorf("shard %d: set_global_N: %w", shardIdx, err)
		}
		if err := shard.SetGlobalDFMap(df); err != nil {
			return fmt.Errorf("shard %d: set_global_df_map: %w", shardIdx, err)
		}
	}
	return nil
}

// EncodeDocid builds the compound node-docid "<shardIdx>-<inner>".
func EncodeDocid(shardIdx int, inner string) string {
	return strconv.Itoa(shardIdx) + "-" + inner
}

// DecodeDocid splits a compound node-docid into its leading shard index and
// the remainder, which may itself be compound for trees deeper than one
// level.
func DecodeDocid(nodeDocid string) (shardIdx int, inner string, err error) {
	sep := strings.IndexByte(nodeDocid, '-')
	if sep < 0 {
		return 0, "", &simindex.BadRequestError{Msg: "malformed node-docid " + nodeDocid}
	}
	shardIdx, err = strconv.Atoi(nodeDocid[:sep])
	if err != nil {
		return 0, "", &simindex.BadRequestError{Msg: "malformed node-docid " + nodeDocid}
	}
	return shardIdx, nodeDocid[sep+1:], nil
}

// --- writes ---

// IndexFiles materializes every stream into a string buffer, then forwards
// to IndexStringBuffers: the transport boundary to a remote shard can't
// carry an open stream.
func (c *Collection) IndexFiles(streams []simindex.NamedStream) error {
	return c.doWrite(func() error {
		buffers := make([]simindex.NamedBuffer, 0, len(streams))
		for _, s := range streams {
			data, err := io.ReadAll(s.Reader)
			if err != nil {
				return fmt.Errorf("collection: read %s: %w", s.Name, err)
			}
			buffers = append(buffers, simindex.NamedBuffer{Name: s.Name, Text: string(data)})
		}
		return c.IndexStringBuffers(buffers)
	})
}

// IndexFilenames opens each path and forwards to IndexStringBuffers.
func (c *Collection) IndexFilenames(names []string) error {
	buffers := make([]simindex.NamedBuffer, 0, len(names))
	for _, name := range names {
		r, err := c.fetcher.Open(name)
		if err != nil {
			return err
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return err
		}
		buffers = append(buffers, simindex.NamedBuffer{Name: name, Text: string(data)})
	}
	return c.IndexStringBuffers(buffers)
}

// IndexStringBuffers groups buffers by shard and issues one call per shard.
func (c *Collection) IndexStringBuffers(buffers []simindex.NamedBuffer) error {
	return c.doWrite(func() error {
		groups := make(map[int][]simindex.NamedBuffer)
		for _, b := range buffers {
			idx := c.shardFunc(b.Name, len(c.shards))
			groups[idx] = append(groups[idx], b)
		}
		for shardIdx, group := range groups {
			if err := c.shards[shardIdx].IndexStringBuffers(group); err != nil {
				return fmt.Errorf("shard %d: index_string_buffers: %w", shardIdx, err)
			}
		}
		return nil
	})
}

// IndexURLs groups urls by shard and pushes them verbatim, so shards that
// are better placed to do I/O (e.g. remote shards) fetch themselves.
func (c *Collection) IndexURLs(urls []string) error {
	return c.doWrite(func() error {
		groups := make(map[int][]string)
		for _, u := range urls {
			idx := c.shardFunc(u, len(c.shards))
			groups[idx] = append(groups[idx], u)
		}
		for shardIdx, group := range groups {
			if err := c.shards[shardIdx].IndexURLs(group); err != nil {
				return fmt.Errorf("shard %d: index_urls: %w", shardIdx, err)
			}
		}
		return nil
	})
}

// DelDocids groups compound ids by leading shard index and dispatches the
// remainder to each shard.
func (c *Collection) DelDocids(ids ...string) error {
	return c.doWrite(func() error {
		groups := make(map[int][]string)
		for _, id := range ids {
			shardIdx, inner, err := DecodeDocid(id)
			if err != nil {
				continue // malformed ids are a no-op, same as a double delete
			}
			if shardIdx < 0 || shardIdx >= len(c.shards) {
				continue
			}
			groups[shardIdx] = append(groups[shardIdx], inner)
		}
		for shardIdx, inner := range groups {
			if err := c.shards[shardIdx].DelDocids(inner...); err != nil {
				return fmt.Errorf("shard %d: del_docids: %w", shardIdx, err)
			}
		}
		return nil
	})
}

// --- reads ---

// DocidToName decodes the compound docid and asks the owning shard.
func (c *Collection) DocidToName(nodeDocid string) (string, error) {
	shardIdx, inner, err := DecodeDocid(nodeDocid)
	if err != nil {
		return "", err
	}
	if shardIdx < 0 || shardIdx >= len(c.shards) {
		return "", &simindex.NotFoundError{Kind: "docid", Key: nodeDocid}
	}
	return c.shards[shardIdx].DocidToName(inner)
}

// NameToDocid looks up the collection's reconciled name->node-docid table.
func (c *Collection) NameToDocid(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.nameToNodeID[name]
	if !ok {
		return "", &simindex.NotFoundError{Kind: "name", Key: name}
	}
	return id, nil
}

// PostingsList concatenates every shard's postings list, rewriting each
// inner docid to its compound form.
func (c *Collection) PostingsList(term string) ([]simindex.Posting, error) {
	var out []simindex.Posting
	for shardIdx, shard := range c.shards {
		postings, err := shard.PostingsList(term)
		if err != nil {
			return nil, fmt.Errorf("shard %d: postings_list: %w", shardIdx, err)
		}
		for _, p := range postings {
			out = append(out, simindex.Posting{DocID: EncodeDocid(shardIdx, p.DocID), Freq: p.Freq})
		}
	}
	return out, nil
}

// DocidsWithTerms intersects compound-docid sets across all given terms,
// built on top of the rewritten postings lists.
func (c *Collection) DocidsWithTerms(terms []string) ([]string, error) {
	if len(terms) == 0 {
		return []string{}, nil
	}
	var sets []map[string]struct{}
	for _, term := range terms {
		postings, err := c.PostingsList(term)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(postings))
		for _, p := range postings {
			set[p.DocID] = struct{}{}
		}
		sets = append(sets, set)
	}
	result := sets[0]
	for _, s := range sets[1:] {
		next := make(map[string]struct{})
		for id := range result {
			if _, ok := s[id]; ok {
				next[id] = struct{}{}
			}
		}
		result = next
	}
	ids := make([]string, 0, len(result))
	for id := range result {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DocnamesWithTerms translates DocidsWithTerms to document names.
func (c *Collection) DocnamesWithTerms(terms []string) ([]string, error) {
	ids, err := c.DocidsWithTerms(terms)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, err := c.DocidToName(id)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// Query invokes query on every shard and merges, sorted by score
// descending. Scores are comparable across shards because global N and df
// have been pushed down by broadcastNodeStats.
func (c *Collection) Query(q string) ([]simindex.Result, error) {
	var all []simindex.Result
	for shardIdx, shard := range c.shards {
		results, err := shard.Query(q)
		if err != nil {
			return nil, fmt.Errorf("shard %d: query: %w", shardIdx, err)
		}
		all = append(all, results...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	return all, nil
}

// LoadStoplist forwards to every shard.
func (c *Collection) LoadStoplist(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for shardIdx, shard := range c.shards {
		if err := shard.LoadStoplist(strings.NewReader(string(data))); err != nil {
			return fmt.Errorf("shard %d: load_stoplist: %w", shardIdx, err)
		}
	}
	return nil
}

// Config reads a recognized key. "root" is collection-local; any other key
// is read from the first shard, assuming config is kept uniform across
// shards by passthrough.
func (c *Collection) Config(key string) (any, error) {
	if key == "root" {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.root, nil
	}
	if len(c.shards) == 0 {
		return nil, &simindex.BadRequestError{Msg: "unknown configuration key " + key}
	}
	return c.shards[0].Config(key)
}

// SetConfig sets a key with the default passthrough=true policy.
func (c *Collection) SetConfig(key string, value any) error {
	return c.SetConfigPassthrough(key, value, true)
}

// SetConfigPassthrough sets a key, optionally forwarding to every shard.
// "root" is stored on the collection and never forwarded regardless of the
// flag. The collection stores no other key itself, so with passthrough
// false any key other than "root" has no effect.
func (c *Collection) SetConfigPassthrough(key string, value any, passthrough bool) error {
	if key == "root" {
		b, ok := value.(bool)
		if !ok {
			return &simindex.BadRequestError{Msg: "root requires a bool value"}
		}
		c.mu.Lock()
		c.root = b
		c.mu.Unlock()
		return nil
	}
	if !passthrough {
		return nil
	}
	for shardIdx, shard := range c.shards {
		if err := shard.SetConfig(key, value); err != nil {
			return fmt.Errorf("shard %d: set_config: %w", shardIdx, err)
		}
	}
	return nil
}

// UpdateConfig applies every key via SetConfig.
func (c *Collection) UpdateConfig(values map[string]any) error {
	for key, value := range values {
		if err := c.SetConfig(key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetQueryScorer forwards to every shard. An instance scorer is rejected
// when any shard is remote, since only a registry name can cross the
// transport.
func (c *Collection) SetQueryScorer(scorer any) error {
	if _, isName := scorer.(string); !isName && c.hasRemoteShard() {
		return &simindex.UnsupportedMethodError{Method: "set_query_scorer(instance) across remote boundary"}
	}
	for shardIdx, shard := range c.shards {
		if err := shard.SetQueryScorer(scorer); err != nil {
			return fmt.Errorf("shard %d: set_query_scorer: %w", shardIdx, err)
		}
	}
	return nil
}

// GetLocalN reports this collection's own aggregated document count,
// ignoring any global override pushed down from an ancestor (the name
// "local" here mirrors the leaf's: "local to this node", not "local to one
// shard").
func (c *Collection) GetLocalN() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aggN, nil
}

// GetLocalDFMap reports this collection's own aggregated document
// frequency table.
func (c *Collection) GetLocalDFMap() (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.aggDF))
	for term, count := range c.aggDF {
		out[term] = count
	}
	return out, nil
}

// GetNameToDocidMap reports the collection's own reconciled bijection.
func (c *Collection) GetNameToDocidMap() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.nameToNodeID))
	for name, id := range c.nameToNodeID {
		out[name] = id
	}
	return out, nil
}

// SetGlobalN recurses to every shard, so the override reaches leaves at
// any depth of nested collections.
func (c *Collection) SetGlobalN(n int) error {
	for shardIdx, shard := range c.shards {
		if err := shard.SetGlobalN(n); err != nil {
			return fmt.Errorf("shard %d: set_global_N: %w", shardIdx, err)
		}
	}
	return nil
}

// SetGlobalDFMap recurses to every shard.
func (c *Collection) SetGlobalDFMap(df map[string]int) error {
	for shardIdx, shard := range c.shards {
		if err := shard.SetGlobalDFMap(df); err != nil {
			return fmt.Errorf("shard %d: set_global_df_map: %w", shardIdx, err)
		}
	}
	return nil
}
