// Package control implements the administrative plane over a running SSD:
// a gRPC service (hand-rolled ServiceDesc + JSON codec, no protoc) plus a
// matching HTTP/JSON mirror, both exposing Stats/Reset/TriggerGC.
package control

import (
	"context"
	"encoding/json"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/pollux006/bytefs-go/internal/ssd"
)

// StatsResponse reports point-in-time health counters.
type StatsResponse struct {
	FreeBlocks    int    `json:"free_blocks"`
	TotalBlocks   int    `json:"total_blocks"`
	GCCandidates  int    `json:"gc_candidates"`
	CacheHits     uint64 `json:"cache_hits"`
	CacheMisses   uint64 `json:"cache_misses"`
	CacheEvicts   uint64 `json:"cache_evictions"`
	CachePromotes uint64 `json:"cache_promotes"`
}

// ResetRequest/ResetResponse and TriggerGCRequest/TriggerGCResponse are
// effectively empty envelopes — kept as named types so the gRPC method
// signatures and JSON bodies stay self-documenting.
type ResetRequest struct{}
type ResetResponse struct{ OK bool `json:"ok"` }

type TriggerGCRequest struct{}
type TriggerGCResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// jsonCodec is a no-protobuf gRPC wire format: requests and responses are
// plain JSON-tagged structs marshaled with encoding/json.
type jsonCodec struct{}

func (jsonCodec) Name() string                      { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Server is the gRPC service interface implemented by Plane below.
type Server interface {
	Stats(context.Context, *struct{}) (*StatsResponse, error)
	Reset(context.Context, *ResetRequest) (*ResetResponse, error)
	TriggerGC(context.Context, *TriggerGCRequest) (*TriggerGCResponse, error)
}

func registerServer(s *grpc.Server, srv Server) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "bytefs.Control",
		HandlerType: (*Server)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Stats", Handler: statsHandler},
			{MethodName: "Reset", Handler: resetHandler},
			{MethodName: "TriggerGC", Handler: triggerGCHandler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "bytefs",
	}, srv)
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(struct{})
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/bytefs.Control/Stats"}
	handler := func(ctx context.Context, req any) (any, error) { return srv.(Server).Stats(ctx, req.(*struct{})) }
	return interceptor(ctx, in, info, handler)
}

func resetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ResetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Reset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/bytefs.Control/Reset"}
	handler := func(ctx context.Context, req any) (any, error) { return srv.(Server).Reset(ctx, req.(*ResetRequest)) }
	return interceptor(ctx, in, info, handler)
}

func triggerGCHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TriggerGCRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).TriggerGC(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/bytefs.Control/TriggerGC"}
	handler := func(ctx context.Context, req any) (any, error) { return srv.(Server).TriggerGC(ctx, req.(*TriggerGCRequest)) }
	return interceptor(ctx, in, info, handler)
}

// Plane implements Server over a running *ssd.SSD.
type Plane struct {
	dev *ssd.SSD
}

// NewPlane wraps dev with the administrative surface.
func NewPlane(dev *ssd.SSD) *Plane { return &Plane{dev: dev} }

func (p *Plane) Stats(ctx context.Context, _ *struct{}) (*StatsResponse, error) {
	f := p.dev.FTL()
	buf := p.dev.Buffer()
	return &StatsResponse{
		FreeBlocks:    f.FreeBlockCount(),
		TotalBlocks:   f.Device().Params.TotalBlocks,
		GCCandidates:  f.GCCandidateCount(),
		CacheHits:     buf.Stats.Hits.Load(),
		CacheMisses:   buf.Stats.Misses.Load(),
		CacheEvicts:   buf.Stats.Evictions.Load(),
		CachePromotes: buf.Stats.Promotes.Load(),
	}, nil
}

func (p *Plane) Reset(ctx context.Context, _ *ResetRequest) (*ResetResponse, error) {
	p.dev.Reset()
	return &ResetResponse{OK: true}, nil
}

func (p *Plane) TriggerGC(ctx context.Context, _ *TriggerGCRequest) (*TriggerGCResponse, error) {
	if err := p.dev.FTL().TriggerGC(); err != nil {
		return &TriggerGCResponse{OK: false, Error: err.Error()}, nil
	}
	return &TriggerGCResponse{OK: true}, nil
}

// RegisterGRPC mounts plane on s under the bytefs.Control service name.
func RegisterGRPC(s *grpc.Server, plane *Plane) { registerServer(s, plane) }

// HTTPMux builds the HTTP/JSON mirror of the same three operations.
func HTTPMux(plane *Plane) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/control/stats", func(w http.ResponseWriter, r *http.Request) {
		resp, _ := plane.Stats(r.Context(), nil)
		writeJSON(w, resp)
	})
	mux.HandleFunc("/control/reset", func(w http.ResponseWriter, r *http.Request) {
		resp, _ := plane.Reset(r.Context(), &ResetRequest{})
		writeJSON(w, resp)
	})
	mux.HandleFunc("/control/gc", func(w http.ResponseWriter, r *http.Request) {
		resp, _ := plane.TriggerGC(r.Context(), &TriggerGCRequest{})
		writeJSON(w, resp)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// RegisterJSONCodec registers the control plane's JSON gRPC codec; call
// once per process before the first dial or serve.
func RegisterJSONCodec() { encoding.RegisterCodec(jsonCodec{}) }
