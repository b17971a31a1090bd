// Command simindex-server serves a single local memory index, or, when
// --remote_shards is given, a Collection fanning out to remote proxies
// over the RPC surface of internal/rpcserver.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/simsearch/simsearch/internal/collection"
	"github.com/simsearch/simsearch/internal/concurrency"
	"github.com/simsearch/simsearch/internal/graphqlapi"
	"github.com/simsearch/simsearch/internal/remoteproxy"
	"github.com/simsearch/simsearch/internal/rpcclient"
	"github.com/simsearch/simsearch/internal/rpcserver"
	"github.com/simsearch/simsearch/internal/simindex"
	"github.com/simsearch/simsearch/internal/statswatch"
)

// servicePrefix namespaces every RPC method this server answers and every
// method a remote shard is asked to answer.
const servicePrefix = "sim_index"

// stringList accumulates repeated --remote_shards flags.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	port := flag.Int("port", 9001, "RPC server port")
	var remoteShards stringList
	flag.Var(&remoteShards, "remote_shards", "remote shard base URL (repeatable); if given, this server fans out to shards instead of serving a local index")
	noroot := flag.Bool("noroot", false, "if this server is itself a collection, mark it non-root so it does not broadcast aggregated stats")
	enableGraphQL := flag.Bool("graphql", true, "enable the GraphQL query surface at /graphql")
	enableStatsWS := flag.Bool("stats-ws", true, "enable the websocket stats broadcast at /_ws/stats")
	flag.Parse()

	index, coll, err := buildIndex(remoteShards, *noroot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build index: %v\n", err)
		os.Exit(1)
	}

	envelope := concurrency.New(index)
	srv := rpcserver.New(envelope, servicePrefix)
	router := srv.Router()

	var statsManager *statswatch.Manager
	if *enableStatsWS && coll != nil {
		statsManager = statswatch.NewManager()
		coll.SetStatsListener(statsManager.Notify)
		router.Get("/_ws/stats", statsManager.HandleWS)
		log.Println("websocket stats broadcast enabled at /_ws/stats")
	}

	if *enableGraphQL {
		gqlHandler, err := graphqlapi.NewHandler(envelope)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build GraphQL handler: %v\n", err)
			os.Exit(1)
		}
		router.Post("/graphql", gqlHandler.ServeHTTP)
		router.Get("/graphiql", graphqlapi.GraphiQLHandler())
		log.Println("GraphQL API enabled at /graphql (playground at /graphiql)")
	}

	addr := fmt.Sprintf(":%d", *port)
	httpSrv := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("sim_index server listening on %s (rpc endpoint /rpc, namespace %q)", addr, servicePrefix)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Printf("server error: %v", err)
		os.Exit(1)
	case <-sigCh:
		log.Println("shutting down")
		if statsManager != nil {
			statsManager.Close()
		}
		httpSrv.Close()
	}
}

// buildIndex constructs either a single local MemoryIndex (no remote
// shards given) or a Collection of RemoteProxy shards. It also returns the
// *collection.Collection, if any, so main can wire the optional
// stats-broadcast listener; that's nil for the local-index case.
func buildIndex(remoteShards []string, noroot bool) (simindex.SimIndex, *collection.Collection, error) {
	if len(remoteShards) == 0 {
		return simindex.NewMemoryIndex(), nil, nil
	}

	shards := make([]simindex.SimIndex, 0, len(remoteShards))
	for _, url := range remoteShards {
		channel := rpcclient.NewFromURL(url)
		shards = append(shards, remoteproxy.New(channel, servicePrefix))
	}

	coll := collection.New(shards)
	if err := coll.SetConfig("root", !noroot); err != nil {
		return nil, nil, fmt.Errorf("set root config: %w", err)
	}
	return coll, coll, nil
}
