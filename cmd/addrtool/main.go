package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"chainwatch/internal/address"
	"chainwatch/internal/chain"
	"chainwatch/internal/indexer"
)

var (
	chainName = flag.String("chain", "BTC", "chain the addresses belong to (BTC, BCH, DOGE)")
	mode      = flag.String("mode", "strict", "segwit decode mode (strict, permissive)")
	endpoint  = flag.String("indexer", "", "indexer endpoint; when set, address history is fetched too")
	timeout   = flag.Duration("timeout", 10*time.Second, "indexer request timeout")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] address...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	id, err := chain.ParseID(*chainName)
	if err != nil {
		fail(err)
	}
	decodeMode, err := address.ParseDecodeMode(*mode)
	if err != nil {
		fail(err)
	}
	codec := address.NewCodec(decodeMode)

	ctx := context.Background()
	var client *indexer.RPCClient
	if *endpoint != "" {
		client, err = indexer.NewRPCClient(ctx, indexer.RPCClientConfig{Endpoint: *endpoint, Timeout: *timeout})
		if err != nil {
			fail(err)
		}
		defer client.Close()
	}

	invalid := 0
	for _, addr := range flag.Args() {
		script, ok := codec.ToScript(id, addr)
		if !ok {
			fmt.Printf("%s\tinvalid %s address\n", addr, id)
			invalid++
			continue
		}
		fmt.Printf("%s\tscript=%s\tscripthash=%s\n", addr, hex.EncodeToString(script), address.Scripthash(script))

		if client == nil {
			continue
		}
		history, err := client.GetHistory(ctx, addr)
		if err != nil {
			fmt.Printf("\thistory error: %v\n", err)
			continue
		}
		for _, tx := range history {
			fmt.Printf("\t%s\theight=%d\n", tx.TxHash, tx.Height)
		}
	}

	if invalid > 0 {
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(2)
}
