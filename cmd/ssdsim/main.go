// Command ssdsim runs a standalone 2B-SSD simulator: a NAND device, FTL,
// DRAM cache and request pipeline behind a gRPC+HTTP control plane, with a
// background housekeeping ticker reporting wear/GC health.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"

	"google.golang.org/grpc"

	"github.com/pollux006/bytefs-go/internal/control"
	"github.com/pollux006/bytefs-go/internal/housekeep"
	"github.com/pollux006/bytefs-go/internal/nand"
	"github.com/pollux006/bytefs-go/internal/ssd"
)

var (
	flagHTTP       = flag.String("http", ":8080", "HTTP control-plane listen address (empty to disable)")
	flagGRPC       = flag.String("grpc", ":9090", "gRPC control-plane listen address (empty to disable)")
	flagCacheSlots = flag.Int("cache-slots", 1024, "number of DRAM cache slots")
	flagCacheLRU   = flag.Bool("cache-lru", true, "use the fully-associative LRU cache engine (false selects set-associative)")
	flagCacheWays  = flag.Int("cache-ways", 8, "ways per set for the set-associative engine")
	flagQueueDepth = flag.Int("queue-depth", 256, "request pipeline queue depth")
	flagWorkerCPU  = flag.Int("worker-cpu", -1, "pin the FTL worker goroutine to this CPU (-1 to leave unpinned)")
	flagPollerCPU  = flag.Int("poller-cpu", -1, "pin the poller goroutine to this CPU (-1 to leave unpinned)")
	flagHousekeep  = flag.String("housekeep-cron", "*/30 * * * * *", "cron schedule for the housekeeping report")
)

func main() {
	flag.Parse()

	cfg := ssd.DefaultConfig()
	cfg.Params = nand.DefaultParams()
	cfg.CacheSlots = *flagCacheSlots
	cfg.CacheWays = *flagCacheWays
	cfg.QueueDepth = *flagQueueDepth
	cfg.WorkerCPU = *flagWorkerCPU
	cfg.PollerCPU = *flagPollerCPU
	if *flagCacheLRU {
		cfg.CacheKind = ssd.CacheLRU
	} else {
		cfg.CacheKind = ssd.CacheSetAssociative
	}

	dev := ssd.New(cfg)
	defer dev.Close()
	log.Printf("ssdsim: device up, %d pages across %d channels", cfg.Params.TotalPages, cfg.Params.NumChannels)

	ticker, err := housekeep.NewTicker(dev, *flagHousekeep, nil)
	if err != nil {
		log.Fatalf("ssdsim: housekeeping schedule: %v", err)
	}
	ticker.Start()
	defer ticker.Stop()

	plane := control.NewPlane(dev)
	control.RegisterJSONCodec()

	var grpcErr error
	if *flagGRPC != "" {
		go func() {
			lis, err := net.Listen("tcp", *flagGRPC)
			if err != nil {
				log.Printf("ssdsim: gRPC listen error: %v", err)
				grpcErr = err
				return
			}
			gs := grpc.NewServer()
			control.RegisterGRPC(gs, plane)
			log.Printf("ssdsim: gRPC control plane listening on %s", *flagGRPC)
			if err := gs.Serve(lis); err != nil {
				log.Printf("ssdsim: gRPC serve error: %v", err)
				grpcErr = err
			}
		}()
	}

	if *flagHTTP == "" {
		select {}
	}
	mux := control.HTTPMux(plane)
	log.Printf("ssdsim: HTTP control plane listening on %s", *flagHTTP)
	if err := http.ListenAndServe(*flagHTTP, mux); err != nil {
		if grpcErr != nil {
			log.Fatal(fmt.Errorf("ssdsim: both control listeners failed: http=%v grpc=%v", err, grpcErr))
		}
		log.Fatalf("ssdsim: HTTP serve error: %v", err)
	}
}
