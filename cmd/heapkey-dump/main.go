// Command heapkey-dump loads one heap dump and its sidecar, then prints the
// block classification and DTN boundaries for a requested address range.
// It is the debugging analogue of a hex-dump utility, scoped to this
// module's binary format instead of raw hex bytes.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/scigolib/heapkey/internal/builder"
	"github.com/scigolib/heapkey/internal/classify"
	"github.com/scigolib/heapkey/internal/reader"
)

func parseAddr(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

func main() {
	start := flag.String("start", "", "start address (hex) to dump from")
	length := flag.Int("length", 64, "number of blocks to dump")
	blockSize := flag.Uint64("block-byte-size", 8, "block width B")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: heapkey-dump [flags] <heap.raw>")
		fmt.Println("Flags:")
		flag.PrintDefaults()
		return
	}

	pair, err := reader.Load(args[0])
	if err != nil {
		log.Fatalf("Failed to load dump: %v", err)
	}

	startAddr := pair.BaseAddr
	if *start != "" {
		startAddr, err = parseAddr(*start)
		if err != nil {
			log.Fatalf("Invalid start address: %v", err)
		}
	}
	if startAddr < pair.BaseAddr || startAddr > pair.MaxAddr {
		log.Fatalf("Start address 0x%x outside dump range [0x%x, 0x%x]", startAddr, pair.BaseAddr, pair.MaxAddr)
	}

	g, err := builder.Build(pair, builder.Options{BlockSize: *blockSize})
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}

	fmt.Printf("Dump %s: base=0x%x max=0x%x blocks=%d\n", args[0], pair.BaseAddr, pair.MaxAddr, len(pair.Bytes)/int(*blockSize))

	for i := 0; i < *length; i++ {
		addr := startAddr + uint64(i)**blockSize
		if addr > pair.MaxAddr {
			break
		}
		offset := addr - pair.BaseAddr
		if offset+*blockSize > uint64(len(pair.Bytes)) {
			break
		}
		block := pair.Bytes[offset : offset+*blockSize]

		if dtn, ok := g.DTNAt(addr); ok {
			fmt.Printf("0x%08x: DTN byte_size=%d nb_ptr=%d nb_val=%d dtn_type=%s\n",
				addr, dtn.ByteSize, dtn.NbPointerNodes, dtn.NbValueNodes, dtn.DTNType)
			continue
		}

		kind, target := classify.Block(block, pair.BaseAddr, pair.MaxAddr)
		parent, _ := g.ParentDTN(addr)
		switch kind {
		case classify.Pointer:
			fmt.Printf("0x%08x: pointer -> 0x%08x (dtn=0x%08x)\n", addr, target, parent)
		default:
			fmt.Printf("0x%08x: value % x (dtn=0x%08x)\n", addr, block, parent)
		}
	}
}
